package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SSEOptions configures the HTTP+SSE transport.
type SSEOptions struct {
	Address        string
	BaseURL        string
	AllowedOrigins []string
	RateLimit      int
	Gatherer       prometheus.Gatherer

	// Ready reports whether the backend is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// SSEServer serves MCP over HTTP+SSE along with health and metrics endpoints.
type SSEServer struct {
	sse    *server.SSEServer
	http   *http.Server
	logger *slog.Logger
}

// NewSSEServer builds the router. The MCP endpoints are /sse and /message.
func NewSSEServer(s *server.MCPServer, opts SSEOptions, logger *slog.Logger) *SSEServer {
	logger = logger.With(slog.String("component", "sse"))
	sse := server.NewSSEServer(s, server.WithBaseURL(opts.BaseURL))

	return &SSEServer{
		sse: sse,
		http: &http.Server{
			Addr:              opts.Address,
			Handler:           router(sse, opts, logger),
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler, for tests.
func (s *SSEServer) Handler() http.Handler {
	return s.http.Handler
}

func router(sse *server.SSEServer, opts SSEOptions, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(req.Context()); err != nil {
				logger.Warn("readiness check failed", slog.String("error", err.Error()))
				http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
		}
		r.Method(http.MethodGet, "/sse", otelhttp.NewHandler(sse.SSEHandler(), "mcp.sse"))
		r.Method(http.MethodPost, "/message", otelhttp.NewHandler(sse.MessageHandler(), "mcp.message"))
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *SSEServer) Run(ctx context.Context) error {
	serverErrChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", slog.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := s.sse.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to close SSE sessions", slog.String("error", err.Error()))
		}
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		s.logger.Info("HTTP server stopped")
		return nil
	}
}
