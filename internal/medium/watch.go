package medium

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors a File medium's backing path and calls onChange each
// time the file is written or replaced. It runs until ctx is cancelled.
//
// The watch is on the parent directory because this medium (and most
// editors) replaces the file via rename, and a watch on the old inode
// goes silent after the first replacement. Events fire for this
// process's own writes too, so the callback must be idempotent — in
// practice it flushes a cache. Two store instances over one medium
// still have no consistency guarantee; the watcher only lets an owner
// drop stale cache entries sooner.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	slog.Info("medium: watching backing file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("medium: backing file changed", "path", path, "op", event.Op.String())
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("medium: watcher error", "err", err)
		}
	}
}
