package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestInitialize_ExportsToWriter(t *testing.T) {
	var buf bytes.Buffer
	tel, err := Initialize(Options{ServiceName: "vergemcp-test", Version: "v1.2.3", Writer: &buf})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ctx, span := otel.Tracer("test").Start(context.Background(), "PowerOff")
	counter, err := otel.Meter("test").Int64Counter("vergemcp.test.calls")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(ctx, 1)

	carrier := propagation.HeaderCarrier(http.Header{})
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if carrier.Get("traceparent") == "" {
		t.Error("traceparent header not injected")
	}
	span.End()

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"PowerOff", "vergemcp-test", "v1.2.3", "vergemcp.test.calls"} {
		if !strings.Contains(out, want) {
			t.Errorf("export output lacks %q", want)
		}
	}
}
