package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/terabiome/vergemcp/internal/config"
	"github.com/terabiome/vergemcp/internal/version"
	"github.com/terabiome/vergemcp/pkg/logger"
	"github.com/terabiome/vergemcp/pkg/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	app := &cli.App{
		Name:                 "vergemcp",
		Usage:                "MCP gateway for the VergeOS virtualization API",
		Version:              version.Version(),
		EnableBashCompletion: true,
		Writer:               os.Stderr,
		ErrWriter:            os.Stderr,
		Action: func(cliCtx *cli.Context) error {
			return withRuntime(ctx, sigChan, cancel, func(rt *runtime) error {
				return runStdio(ctx, rt)
			})
		},
		Commands: []*cli.Command{
			{
				Name:  "stdio",
				Usage: "Serve MCP over stdin/stdout (default)",
				Action: func(cliCtx *cli.Context) error {
					return withRuntime(ctx, sigChan, cancel, func(rt *runtime) error {
						return runStdio(ctx, rt)
					})
				},
			},
			{
				Name:  "sse",
				Usage: "Serve MCP over HTTP with server-sent events",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Listen port (overrides VERGE_LISTEN_PORT)",
					},
					&cli.StringFlag{
						Name:  "server-url",
						Usage: "Base URL announced to clients (overrides VERGE_SERVER_URL)",
					},
				},
				Action: func(cliCtx *cli.Context) error {
					return withRuntime(ctx, sigChan, cancel, func(rt *runtime) error {
						if cliCtx.IsSet("port") {
							rt.cfg.ListenPort = cliCtx.Int("port")
						}
						if cliCtx.IsSet("server-url") {
							rt.cfg.ServerURL = cliCtx.String("server-url")
						}
						if err := rt.cfg.Validate(); err != nil {
							return err
						}
						return runSSE(ctx, rt)
					})
				},
			},
			{
				Name:  "tools",
				Usage: "Print the tool catalog as JSON",
				Action: func(cliCtx *cli.Context) error {
					catalog := newCatalog(toolsOnlyConfig(), slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})), nil)
					out, err := json.MarshalIndent(catalog.Tools(), "", "  ")
					if err != nil {
						return fmt.Errorf("unable to marshal tool catalog: %w", err)
					}
					fmt.Fprintln(os.Stdout, string(out))
					return nil
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(cliCtx *cli.Context) error {
					fmt.Fprintln(os.Stdout, version.Version())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type runtime struct {
	cfg *config.Config
	log *slog.Logger
}

// withRuntime loads configuration, sets up logging and telemetry and runs fn.
func withRuntime(ctx context.Context, sigChan <-chan os.Signal, cancel context.CancelFunc, fn func(*runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("vergemcp starting",
		slog.String("version", version.Version()),
		slog.String("host", cfg.BaseURL()),
		slog.String("log_level", cfg.LogLevel),
		slog.Bool("telemetry_enabled", cfg.TelemetryEnabled),
	)

	if cfg.TelemetryEnabled {
		tel, err := telemetry.Initialize(telemetry.Options{
			ServiceName: "vergemcp",
			Version:     version.Version(),
			Writer:      os.Stderr,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			log.Info("shutting down telemetry")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				log.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
			}
		}()
		log.Info("telemetry initialized")
	} else {
		log.Debug("telemetry disabled")
	}

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return fn(&runtime{cfg: cfg, log: log})
}

// toolsOnlyConfig is enough to build the catalog without contacting a backend.
func toolsOnlyConfig() *config.Config {
	return &config.Config{Host: "localhost", Token: "unused", RequestTimeout: time.Second}
}
