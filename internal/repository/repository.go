package repository

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/taskvault/taskvault/internal/entitystore"
)

// Entity type names used as store namespacing keys.
const (
	EntityTasks = "tasks"
	EntityUsers = "users"
)

// ErrNotFound is returned when no record with the requested id exists.
var ErrNotFound = errors.New("repository: not found")

// ErrStoreRejected is returned when the entity store reports a failed
// write (degraded medium, quota, serialization).
var ErrStoreRejected = errors.New("repository: store rejected write")

// loadAll reads and decodes the full collection for an entity type.
// Records that fail to decode are skipped with a log line rather than
// failing the whole read; the store treats records as opaque, so a
// foreign import may carry shapes we do not recognize.
func loadAll[T any](s *entitystore.Store, entityType string) []T {
	coll := s.Load(entityType, entitystore.Collection{})
	out := make([]T, 0, len(coll))
	for _, raw := range coll {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			slog.Warn("repository: skipping undecodable record", "entity", entityType, "err", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// saveAll encodes and persists the full collection for an entity type.
func saveAll[T any](s *entitystore.Store, entityType string, items []T) error {
	coll := make(entitystore.Collection, 0, len(items))
	for _, rec := range items {
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		coll = append(coll, raw)
	}
	if !s.Save(entityType, coll) {
		return ErrStoreRejected
	}
	return nil
}

func timestamp(now func() time.Time) string {
	return now().UTC().Format(time.RFC3339)
}
