package app

import (
	"fmt"
	"log/slog"

	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/entitystore"
	"github.com/taskvault/taskvault/internal/medium"
	"github.com/taskvault/taskvault/internal/repository"
)

// App is the application context. Construct it with New and pass it by
// reference; it owns the store and the repositories for the process
// lifetime.
type App struct {
	Config *config.Config
	Medium medium.Medium
	Store  *entitystore.Store
	Tasks  *repository.Tasks
	Users  *repository.Users

	// file is non-nil when the medium is file-backed; used for live
	// quota updates and the backing-file watcher.
	file *medium.File
}

// New wires config → medium → store → repositories. A file-backed
// medium that cannot be opened is an error; a medium that opens but
// fails the store's probe is not — the store runs degraded, per its
// contract.
func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.Storage.Path != "" {
		f, err := medium.OpenFile(cfg.Storage.Path, cfg.Storage.QuotaBytes)
		if err != nil {
			return nil, fmt.Errorf("app: open medium: %w", err)
		}
		a.file = f
		a.Medium = f
	} else {
		slog.Warn("app: no storage path configured, running in-memory")
		a.Medium = medium.NewMemory()
	}

	a.Store = entitystore.New(a.Medium,
		entitystore.WithStorageKey(cfg.Storage.Key),
		entitystore.WithCacheTTL(cfg.Storage.CacheTTL),
	)
	a.Tasks = repository.NewTasks(a.Store)
	a.Users = repository.NewUsers(a.Store)
	return a, nil
}

// ApplyConfig applies a reloaded configuration. Only the medium quota
// takes effect live; everything else needs a restart and is logged.
func (a *App) ApplyConfig(cfg *config.Config) {
	if a.file != nil && cfg.Storage.QuotaBytes != a.Config.Storage.QuotaBytes {
		a.file.SetQuota(cfg.Storage.QuotaBytes)
		slog.Info("app: medium quota updated", "quota_bytes", cfg.Storage.QuotaBytes)
	}
	if cfg.HTTP.Port != a.Config.HTTP.Port {
		slog.Warn("app: http.port change requires a restart", "port", cfg.HTTP.Port)
	}
	if cfg.Storage.Key != a.Config.Storage.Key || cfg.Storage.CacheTTL != a.Config.Storage.CacheTTL {
		slog.Warn("app: storage.key and storage.cache_ttl changes require a restart")
	}
	a.Config = cfg
}

// BackingFile returns the file medium's path, or "" when in-memory.
func (a *App) BackingFile() string {
	if a.file == nil {
		return ""
	}
	return a.file.Path()
}
