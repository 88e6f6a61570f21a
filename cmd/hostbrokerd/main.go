// Command hostbrokerd is the long-lived server binary: it exposes the same
// five boundary operations as cmd/hostbroker over HTTP, plus Prometheus
// metrics and health endpoints, and keeps the reconciler and metrics
// collector running in the background. Grounded on cuemby/warren's
// cmd/warren/main.go clusterInitCmd: manager/scheduler/reconciler/metrics
// startup sequence, background metrics HTTP server, signal-driven
// graceful shutdown — generalized from warren's cluster components to
// hostbroker's reconciler + boundary service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/hostbroker/internal/wiring"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/metrics"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "hostbrokerd",
	Short:   "Cloud host-provisioning broker (long-lived server mode)",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"hostbrokerd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", true, "Output logs in JSON format")
	rootCmd.Flags().String("config", "", "Path to an explicit config file")
	rootCmd.Flags().String("addr", "0.0.0.0:8080", "HTTP listen address for boundary operations")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "HTTP listen address for /metrics, /health, /ready, /live")
}

func run(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	explicitPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(explicitPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	stack, err := wiring.Build(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("build stack: %w", err)
	}
	defer stack.Strategy.Close()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("storage", true, "ready")
	metrics.RegisterComponent("provider", stack.AWSClient != nil, "ready")

	stack.Reconciler.Start()
	defer stack.Reconciler.Stop()

	collector := metrics.NewCollector(stack.Strategy)
	collector.Start()
	defer collector.Stop()

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.Handle("/health", metrics.HealthHandler())
	metricsMux.Handle("/ready", metrics.ReadyHandler())
	metricsMux.Handle("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Logger.Info().Str("addr", metricsAddr).Msg("metrics server listening")

	addr, _ := cmd.Flags().GetString("addr")
	apiServer := &http.Server{Addr: addr, Handler: newAPIHandler(stack.Boundary)}
	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("boundary API server error: %w", err)
		}
	}()
	log.Logger.Info().Str("addr", addr).Msg("boundary API server listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		log.Logger.Error().Err(err).Msg("server error, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Logger.Info().Msg("shutdown complete")
	return nil
}
