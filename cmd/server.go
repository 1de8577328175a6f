package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/terabiome/vergemcp/internal/config"
	"github.com/terabiome/vergemcp/internal/handler"
	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
	"github.com/terabiome/vergemcp/internal/metrics"
	"github.com/terabiome/vergemcp/internal/routes"
	"github.com/terabiome/vergemcp/internal/service"
	"github.com/terabiome/vergemcp/internal/transport"
	"github.com/terabiome/vergemcp/internal/version"
)

func newClient(cfg *config.Config, log *slog.Logger) *verge.Client {
	return verge.NewClient(verge.Options{
		BaseURL:     cfg.BaseURL(),
		Username:    cfg.Username,
		Password:    cfg.Password,
		Token:       cfg.Token,
		InsecureTLS: cfg.InsecureTLS,
		Timeout:     cfg.RequestTimeout,
	}, log)
}

// newCatalog wires client, services and handlers into the tool catalog.
func newCatalog(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) *routes.Catalog {
	return newCatalogWithClient(newClient(cfg, log), log, m)
}

func newCatalogWithClient(client *verge.Client, log *slog.Logger, m *metrics.Metrics) *routes.Catalog {
	power := service.NewPowerController(client, service.DefaultPollPolicy(), nil, log)
	vmService := service.NewVMService(client, power, log)
	reconfigurer := service.NewReconfigurer(client, power, log)
	infraService := service.NewInfrastructureService(client, log)

	vmHandler := handler.NewVirtualMachine(vmService, power, reconfigurer, log)
	systemHandler := handler.NewSystem(infraService, log)

	return routes.NewCatalog(vmHandler, systemHandler, m, log)
}

// runStdio serves MCP over stdin/stdout.
func runStdio(ctx context.Context, rt *runtime) error {
	catalog := newCatalog(rt.cfg, rt.log, nil)
	s := routes.NewMCPServer(catalog, version.Version())
	return transport.ServeStdio(ctx, s, os.Stdin, os.Stdout, rt.log)
}

// runSSE serves MCP over HTTP+SSE with health and metrics endpoints.
func runSSE(ctx context.Context, rt *runtime) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := newClient(rt.cfg, rt.log)
	catalog := newCatalogWithClient(client, rt.log, metrics.New(registry))
	s := routes.NewMCPServer(catalog, version.Version())

	address := fmt.Sprintf(":%d", rt.cfg.ListenPort)
	rt.log.Info("initializing SSE transport",
		slog.String("address", address),
		slog.String("base_url", rt.cfg.SSEBaseURL()),
	)

	srv := transport.NewSSEServer(s, transport.SSEOptions{
		Address:        address,
		BaseURL:        rt.cfg.SSEBaseURL(),
		AllowedOrigins: rt.cfg.CORSOrigins,
		RateLimit:      rt.cfg.RateLimit,
		Gatherer:       registry,
		Ready:          client.Ready,
	}, rt.log)

	return srv.Run(ctx)
}
