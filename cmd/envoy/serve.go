package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/4ug-aug/envoy-v2/internal/config"
	"github.com/4ug-aug/envoy-v2/internal/httpapi"
)

// buildServeCmd creates the "serve" command that starts Envoy's agent
// runtime and its HTTP/JSON surface.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Envoy agent server",
		Long: `Start Envoy: the agent runtime, its self-extension tool catalog,
its scheduler, and the HTTP/JSON surface that drives them.

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  envoy serve

  # Start with a custom config
  envoy serve --config /etc/envoy/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "envoy.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	if debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	slog.Info("starting envoy", "version", version, "commit", commit, "config", configPath, "debug", debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := buildStack(cfg)
	if err != nil {
		return fmt.Errorf("build runtime stack: %w", err)
	}
	defer st.store.Close()
	defer st.tracerClose(context.Background())

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := st.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer st.scheduler.Stop()

	server := httpapi.NewServer(httpapi.Config{
		Store:        st.store,
		Bus:          st.bus,
		Runtime:      st.runtime,
		Catalog:      st.catalog,
		Integrations: st.integrations,
		Scheduler:    st.scheduler,
		Builtins:     st.builtins,
		Logger:       st.logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx, addr) }()

	slog.Info("envoy started", "http_addr", addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	slog.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("envoy stopped gracefully")
	return nil
}
