package verge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	loginPath    = "/api/sys/tokens"
	tokenCookie  = "token"
	maxErrorBody = 4 << 10
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Username    string
	Password    string
	Token       string
	InsecureTLS bool
	Timeout     time.Duration

	// HTTPClient overrides the default instrumented client. Used by tests.
	HTTPClient *http.Client
}

// Client issues authenticated calls to the virtualization backend.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  *slog.Logger
}

// NewClient creates a backend client. It does not contact the backend; the
// first call logs in if needed.
func NewClient(opts Options, logger *slog.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureTLS {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed appliance certs
		}
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   timeout,
		}
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		session: NewSession(opts.Username, opts.Password, opts.Token),
		logger:  logger.With(slog.String("component", "verge")),
	}
}

// Session returns the credential session owned by this client.
func (c *Client) Session() *Session {
	return c.session
}

// Login exchanges the configured credential pair for a token.
func (c *Client) Login(ctx context.Context) error {
	if !c.session.CanRefresh() {
		if c.session.Valid() {
			return nil
		}
		return ErrNoCredentials
	}

	username, password := c.session.credentials()
	status, data, err := c.send(ctx, http.MethodPost, loginPath, nil, loginRequest{
		Login:    username,
		Password: password,
	}, "")
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("login: %w", &APIError{
			Method:     http.MethodPost,
			Path:       loginPath,
			StatusCode: status,
			Body:       truncate(data),
		})
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return &DecodeError{Path: loginPath, Err: err}
	}
	if resp.Key == "" {
		return &DecodeError{Path: loginPath, Err: fmt.Errorf("response has no $key token")}
	}

	c.session.Set(resp.Key)
	c.logger.Debug("obtained backend session", slog.String("user", username))
	return nil
}

// Ready checks that the backend answers an authenticated call. It reuses the
// current session and only logs in when there is none.
func (c *Client) Ready(ctx context.Context) error {
	q := Page{Limit: 1}.apply(url.Values{"fields": []string{"$key"}})
	var probe []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/v4/cluster_status", q, nil, &probe); err != nil {
		return fmt.Errorf("backend not ready: %w", err)
	}
	return nil
}

// do performs an authenticated request and decodes the response into out.
// A 401 triggers exactly one re-login and retry when the session can refresh.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if !c.session.Valid() {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	status, data, err := c.send(ctx, method, path, query, body, c.session.Token())
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && c.session.CanRefresh() {
		c.logger.Info("session rejected by backend, logging in again",
			slog.String("method", method),
			slog.String("path", path),
		)
		c.session.Invalidate()
		if err := c.Login(ctx); err != nil {
			return err
		}
		status, data, err = c.send(ctx, method, path, query, body, c.session.Token())
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: status,
			Body:       truncate(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, token string) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("backend connection failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("backend call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp.StatusCode, data, nil
}

func truncate(data []byte) string {
	if len(data) > maxErrorBody {
		return string(data[:maxErrorBody]) + "..."
	}
	return string(data)
}
