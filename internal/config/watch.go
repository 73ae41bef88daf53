package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the config file at path and calls onChange each time a
// rewrite produces a configuration that differs from the last good one.
// Touching the file without changing anything does not fire onChange,
// and a rewrite that fails to load (invalid YAML, failed validation) is
// logged and ignored — the previous configuration stays active. Watch
// blocks until ctx is cancelled.
//
// Of the reloadable fields only storage.quota_bytes takes effect live;
// Watch logs a restart hint when any other field changed so operators
// are not left wondering why an edit did nothing.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	// Seed the diff baseline with whatever is on disk now. A missing or
	// broken file just means the first successful load counts as a change.
	prev, err := Load(path)
	if err != nil {
		prev = nil
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Writes and creates both matter: editors that save atomically
			// replace the file, which arrives as a create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}

			// The watch has to follow the new inode after an atomic save.
			_ = watcher.Add(path)

			if prev != nil && *cfg == *prev {
				slog.Debug("config: file rewritten without changes", "path", path)
				continue
			}

			logReload(prev, cfg)
			prev = cfg
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// logReload reports what changed, flagging the fields that only take
// effect after a restart.
func logReload(prev, next *Config) {
	if prev == nil {
		slog.Info("config: loaded",
			"quota_bytes", next.Storage.QuotaBytes,
			"http_port", next.HTTP.Port)
		return
	}
	if next.Storage.QuotaBytes != prev.Storage.QuotaBytes {
		slog.Info("config: storage.quota_bytes changed, applying live",
			"from", prev.Storage.QuotaBytes, "to", next.Storage.QuotaBytes)
	}
	if next.Storage.Key != prev.Storage.Key ||
		next.Storage.CacheTTL != prev.Storage.CacheTTL ||
		next.Storage.Path != prev.Storage.Path ||
		next.Storage.Watch != prev.Storage.Watch ||
		next.HTTP.Port != prev.HTTP.Port {
		slog.Warn("config: changes beyond storage.quota_bytes require a restart")
	}
}
