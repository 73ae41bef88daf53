package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskvault/taskvault/internal/api"
	"github.com/taskvault/taskvault/internal/app"
	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/medium"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("taskvault starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"storage_key", cfg.Storage.Key,
		"cache_ttl", cfg.Storage.CacheTTL,
		"storage_path", cfg.Storage.Path,
		"quota_bytes", cfg.Storage.QuotaBytes,
		"http_port", cfg.HTTP.Port,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to build application", "err", err)
		os.Exit(1)
	}
	if !a.Store.Available() {
		slog.Warn("storage medium unavailable — serving degraded, all writes will fail")
	}

	// Hot reload: quota changes apply live, the rest logs a restart hint.
	go func() {
		if err := config.Watch(ctx, *configPath, a.ApplyConfig); err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	// Optional: flush the entity cache when another process writes the
	// backing file. Advisory only — cross-instance caches still diverge.
	if cfg.Storage.Watch && a.BackingFile() != "" {
		go func() {
			if err := medium.Watch(ctx, a.BackingFile(), a.Store.FlushCache); err != nil {
				slog.Error("medium watch stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: api.New(a.Store, a.Tasks, a.Users),
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTP.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("taskvault shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
