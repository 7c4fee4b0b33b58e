package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MeKo-Tech/objdet/internal/config"
	"github.com/MeKo-Tech/objdet/internal/server"
	"github.com/spf13/cobra"
)

const rateLimitPruneInterval = 10 * time.Minute

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the detection API",
	Long: `Start an HTTP server that exposes the detection pipeline.

The server provides the following endpoints:
  POST /predict      - Detect objects in an uploaded image
  POST /predict/pdf  - Detect objects in images embedded in a PDF
  GET  /ws/predict   - WebSocket streaming of predictions
  GET  /health       - Health check endpoint
  GET  /models       - List available models
  GET  /metrics      - Prometheus metrics

Only one prediction runs at a time. Concurrent requests are answered with
503 and Retry-After unless detection.concurrency is set to "queue".

Examples:
  objdet serve
  objdet serve --port 8080
  objdet serve --host 0.0.0.0 --port 3000 --rate-limit 60`,
	SilenceUsage: true,
	RunE:         runServeCommand,
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	if err := applyServerFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyDetectionFlags(cmd, cfg); err != nil {
		return err
	}

	p, err := buildPipeline(cmd, cfg, cfg.Server.OverlayEnabled)
	if err != nil {
		return err
	}
	srv := server.NewServer(serverConfig(cfg), p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.PruneRateLimits(ctx, rateLimitPruneInterval)

	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	go func() {
		slog.Info("Starting detection server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

// applyServerFlags overlays explicitly set server flags onto cfg.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Server.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-mb") {
		cfg.Server.MaxUploadMB, _ = f.GetInt("max-upload-mb")
	}
	if f.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("overlay-enable") {
		cfg.Server.OverlayEnabled, _ = f.GetBool("overlay-enable")
	}
	if f.Changed("concurrency") {
		cfg.Detection.Concurrency, _ = f.GetString("concurrency")
	}
	if f.Changed("rate-limit") {
		cfg.Server.RequestsPerMinute, _ = f.GetInt("rate-limit")
	}
	if f.Changed("requests-per-hour") {
		cfg.Server.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		cfg.Server.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		cfg.Server.MaxDataPerDayMB, _ = f.GetInt("max-data-per-day")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", cfg.Server.Port)
	}
	return nil
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadMB:    int64(cfg.Server.MaxUploadMB),
		TimeoutSec:     cfg.Server.TimeoutSec,
		ModelsDir:      cfg.ModelsDir,
		OverlayEnabled: cfg.Server.OverlayEnabled,
		Overlay:        cfg.ToOverlayOptions(),
		RateLimit: server.RateLimitConfig{
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.MaxRequestsPerDay,
			MaxDataPerDay:     int64(cfg.Server.MaxDataPerDayMB) * 1024 * 1024,
		},
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addDetectionFlags(serveCmd)
	f := serveCmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-mb", 50, "maximum upload size in MB")
	f.Int("timeout", 30, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.Bool("overlay-enable", true, "enable overlay image responses")
	f.String("concurrency", "reject", "behaviour while a prediction is running: reject or queue")
	f.Int("rate-limit", 0, "maximum requests per minute per client (0 = unlimited)")
	f.Int("requests-per-hour", 0, "maximum requests per hour per client (0 = unlimited)")
	f.Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	f.Int("max-data-per-day", 0, "maximum upload volume per day per client in MB (0 = unlimited)")
}
