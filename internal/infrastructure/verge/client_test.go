package verge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, srv *httptest.Server, username, password, token string) *Client {
	t.Helper()
	return NewClient(Options{
		BaseURL:    srv.URL,
		Username:   username,
		Password:   password,
		Token:      token,
		HTTPClient: srv.Client(),
	}, discardLogger())
}

func tokenFrom(r *http.Request) string {
	c, err := r.Cookie(tokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func TestClient_LoginSendsTokenCookie(t *testing.T) {
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case loginPath:
			logins.Add(1)
			var req loginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode login body: %v", err)
			}
			if req.Login != "admin" || req.Password != "secret" {
				t.Errorf("login body = %+v", req)
			}
			_, _ = w.Write([]byte(`{"$key":"tok-1"}`))
		case "/api/v4/vms/5":
			if got := tokenFrom(r); got != "tok-1" {
				t.Errorf("token cookie = %q, want tok-1", got)
			}
			_, _ = w.Write([]byte(`{"$key":5,"name":"web","machine":42,"cpu_cores":2,"ram":4096}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "admin", "secret", "")

	for i := 0; i < 2; i++ {
		vm, err := c.GetVM(context.Background(), 5)
		if err != nil {
			t.Fatalf("GetVM: %v", err)
		}
		if vm.Machine != 42 || vm.CPUCores != 2 || vm.RAM != 4096 {
			t.Fatalf("unexpected vm: %+v", vm)
		}
	}
	if n := logins.Load(); n != 1 {
		t.Errorf("logins = %d, want 1 (session must be reused)", n)
	}
}

func TestClient_RetriesOnceAfterUnauthorized(t *testing.T) {
	var logins, calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == loginPath {
			n := logins.Add(1)
			_, _ = w.Write([]byte(`{"$key":"tok-` + string(rune('0'+n)) + `"}`))
			return
		}
		calls.Add(1)
		if tokenFrom(r) == "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "admin", "secret", "")
	if _, err := c.Alarms(context.Background()); err != nil {
		t.Fatalf("Alarms: %v", err)
	}
	if logins.Load() != 2 || calls.Load() != 2 {
		t.Errorf("logins=%d calls=%d, want 2 and 2", logins.Load(), calls.Load())
	}
}

func TestClient_SecondUnauthorizedIsSurfaced(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == loginPath {
			_, _ = w.Write([]byte(`{"$key":"tok"}`))
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "admin", "secret", "")
	_, err := c.Alarms(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClient_StaticTokenIsNotRefreshed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == loginPath {
			t.Error("static token session must not log in")
		}
		calls.Add(1)
		if got := tokenFrom(r); got != "static" {
			t.Errorf("token cookie = %q", got)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", "", "static")
	_, err := c.ClusterStatus(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want APIError 401", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_CredentialPairWinsOverToken(t *testing.T) {
	s := NewSession("admin", "secret", "static")
	if !s.CanRefresh() {
		t.Fatal("expected credential pair session")
	}
	if s.Valid() {
		t.Error("static token must be ignored when a credential pair is configured")
	}
}

func TestClient_NoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", "", "")
	if _, err := c.Alarms(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
}

func TestClient_ErrorCategories(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI bool
		wantNF  bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantAPI: true},
		{name: "not found", status: http.StatusNotFound, body: "missing", wantAPI: true, wantNF: true},
		{name: "bad json", status: http.StatusOK, body: "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv, "", "", "tok")
			_, err := c.GetVM(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *APIError
			var decErr *DecodeError
			switch {
			case tt.wantAPI:
				if !errors.As(err, &apiErr) {
					t.Fatalf("err = %v, want APIError", err)
				}
				if apiErr.StatusCode != tt.status || apiErr.Body != tt.body {
					t.Errorf("apiErr = %+v", apiErr)
				}
				if !strings.Contains(err.Error(), "HTTP ") {
					t.Errorf("error text %q lacks status", err)
				}
			default:
				if !errors.As(err, &decErr) {
					t.Fatalf("err = %v, want DecodeError", err)
				}
			}
			if got := errors.Is(err, ErrNotFound); got != tt.wantNF {
				t.Errorf("errors.Is(ErrNotFound) = %v, want %v", got, tt.wantNF)
			}
		})
	}
}

func TestClient_MachineStatusIsClientFiltered(t *testing.T) {
	var filters []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filters = append(filters, r.URL.Query().Get("filter"))
		// server ignores the filter
		_, _ = w.Write([]byte(`[
			{"machine":7,"running":true,"status":"running"},
			{"machine":42,"running":false,"status":"stopped"}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", "", "tok")
	st, err := c.MachineStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("MachineStatus: %v", err)
	}
	if st.Machine != 42 || st.Running {
		t.Errorf("status = %+v", st)
	}

	if _, err := c.MachineStatus(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	want := []string{"machine eq 42", "machine eq 99"}
	if len(filters) != len(want) || filters[0] != want[0] || filters[1] != want[1] {
		t.Errorf("filters = %v, want %v", filters, want)
	}
}

func TestClient_UpdateVMSendsOnlyRequestedFields(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", "", "tok")
	ram := 8192
	if err := c.UpdateVM(context.Background(), 3, VMUpdate{RAM: &ram}); err != nil {
		t.Fatalf("UpdateVM: %v", err)
	}
	if _, ok := body["cpu_cores"]; ok {
		t.Errorf("cpu_cores must not be sent: %v", body)
	}
	if body["ram"] != float64(8192) {
		t.Errorf("ram = %v", body["ram"])
	}
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		in   Page
		want Page
	}{
		{Page{}, Page{Limit: DefaultPageLimit}},
		{Page{Limit: 10, Offset: 20}, Page{Limit: 10, Offset: 20}},
		{Page{Limit: 5000, Offset: -1}, Page{Limit: MaxPageLimit}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestClient_ReadyReusesSession(t *testing.T) {
	var logins, probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case loginPath:
			logins.Add(1)
			_, _ = w.Write([]byte(`{"$key":"tok-1"}`))
		case "/api/v4/cluster_status":
			probes.Add(1)
			if got := tokenFrom(r); got != "tok-1" {
				t.Errorf("token cookie = %q, want tok-1", got)
			}
			if got := r.URL.Query().Get("limit"); got != "1" {
				t.Errorf("limit = %q, want 1", got)
			}
			_, _ = w.Write([]byte(`[{"$key":1}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "admin", "secret", "")
	for i := 0; i < 5; i++ {
		if err := c.Ready(context.Background()); err != nil {
			t.Fatalf("Ready #%d: %v", i+1, err)
		}
	}
	if n := logins.Load(); n != 1 {
		t.Errorf("logins = %d, want 1", n)
	}
	if n := probes.Load(); n != 5 {
		t.Errorf("backend probes = %d, want 5", n)
	}
	if got := c.Session().Token(); got != "tok-1" {
		t.Errorf("session token = %q", got)
	}
}

func TestClient_ReadyReportsBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", "", "tok")
	var apiErr *APIError
	if err := c.Ready(context.Background()); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("err = %v, want 502 APIError", err)
	}
}

type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	body   map[string]any
}

// recordingServer answers every request with reply and records what it saw.
func recordingServer(t *testing.T, reply string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, query: map[string]string{}}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				if err := json.Unmarshal(data, &rec.body); err != nil {
					t.Errorf("decode body %q: %v", data, err)
				}
			}
		}
		seen = append(seen, rec)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestClient_ActionBodies(t *testing.T) {
	tests := []struct {
		name     string
		call     func(*Client) error
		wantPath string
		wantBody map[string]any
	}{
		{
			name:     "network",
			call:     func(c *Client) error { return c.NetworkAction(context.Background(), 4, "apply") },
			wantPath: "/api/v4/vnet_actions",
			wantBody: map[string]any{"vnet": float64(4), "action": "apply"},
		},
		{
			name:     "tenant",
			call:     func(c *Client) error { return c.TenantAction(context.Background(), 9, "kill") },
			wantPath: "/api/v4/tenant_actions",
			wantBody: map[string]any{"tenant": float64(9), "action": "kill"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen := recordingServer(t, "")
			c := newTestClient(t, srv, "", "", "tok")

			if err := tt.call(c); err != nil {
				t.Fatalf("action: %v", err)
			}
			if len(*seen) != 1 {
				t.Fatalf("requests = %d, want 1", len(*seen))
			}
			got := (*seen)[0]
			if got.method != http.MethodPost || got.path != tt.wantPath {
				t.Errorf("request = %s %s", got.method, got.path)
			}
			if len(got.body) != len(tt.wantBody) {
				t.Errorf("body = %v, want %v", got.body, tt.wantBody)
			}
			for k, v := range tt.wantBody {
				if got.body[k] != v {
					t.Errorf("body[%s] = %v, want %v", k, got.body[k], v)
				}
			}
		})
	}
}

func TestClient_LogsQuery(t *testing.T) {
	srv, seen := recordingServer(t, `[{"$key":1,"level":"error","text":"disk failed","timestamp":1700000000}]`)
	c := newTestClient(t, srv, "", "", "tok")

	entries, err := c.Logs(context.Background(), 20, "error")
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(entries) != 1 || entries[0].Level != "error" || entries[0].Text != "disk failed" {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := c.Logs(context.Background(), 0, ""); err != nil {
		t.Fatalf("Logs without level: %v", err)
	}

	filtered, all := (*seen)[0], (*seen)[1]
	if filtered.method != http.MethodGet || filtered.path != "/api/v4/logs" {
		t.Errorf("request = %s %s", filtered.method, filtered.path)
	}
	if filtered.query["sort"] != "-timestamp" || filtered.query["limit"] != "20" {
		t.Errorf("query = %v", filtered.query)
	}
	if filtered.query["filter"] != "level eq 'error'" {
		t.Errorf("filter = %q", filtered.query["filter"])
	}
	if _, ok := all.query["filter"]; ok {
		t.Errorf("unexpected filter without level: %v", all.query)
	}
	if all.query["limit"] != "50" || all.query["sort"] != "-timestamp" {
		t.Errorf("default query = %v", all.query)
	}
}

func TestClient_ClusterStatusAndAlarmsDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/cluster_status":
			_, _ = w.Write([]byte(`[{"$key":1,"name":"main","status":"online","total_nodes":3,"online_nodes":3,
				"total_cores":96,"used_cores":40,"total_ram":393216,"used_ram":131072,"running_machines":12}]`))
		case "/api/v4/alarms":
			_, _ = w.Write([]byte(`[{"$key":7,"level":"warning","status":"active","description":"node2 degraded","created":1700000000}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv, "", "", "tok")

	clusters, err := c.ClusterStatus(context.Background())
	if err != nil {
		t.Fatalf("ClusterStatus: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("clusters = %+v", clusters)
	}
	cs := clusters[0]
	if cs.Name != "main" || cs.OnlineNodes != 3 || cs.UsedCores != 40 || cs.TotalRAM != 393216 || cs.RunningMachines != 12 {
		t.Errorf("cluster = %+v", cs)
	}

	alarms, err := c.Alarms(context.Background())
	if err != nil {
		t.Fatalf("Alarms: %v", err)
	}
	if len(alarms) != 1 || alarms[0].ID != 7 || alarms[0].Level != "warning" || alarms[0].Description != "node2 degraded" {
		t.Errorf("alarms = %+v", alarms)
	}
}
