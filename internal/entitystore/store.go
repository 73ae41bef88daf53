package entitystore

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/taskvault/taskvault/internal/medium"
)

// Defaults for the store configuration.
const (
	DefaultStorageKey = "taskvault"
	DefaultCacheTTL   = 5 * time.Minute
)

const metaSuffix = "meta"

// Store is the entity store. Construct it with New; the zero value is
// unusable.
type Store struct {
	medium     medium.Medium
	storageKey string
	cache      *ttlCache
	now        func() time.Time
	available  bool
}

// Option configures a Store at construction.
type Option func(*Store)

// WithStorageKey sets the namespace root for all persisted keys.
func WithStorageKey(key string) Option {
	return func(s *Store) { s.storageKey = key }
}

// WithCacheTTL sets how long a cache entry serves reads before the
// store falls back to the medium.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) { s.cache.ttl = ttl }
}

// WithClock injects the time source. Tests use this to move time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
		s.cache.now = now
	}
}

// New creates a Store over m. It probes the medium with a throwaway
// write: if the probe fails (or m is nil) the store is permanently
// degraded — every mutator reports failure and every read returns the
// caller's default. On the first successful initialization a meta
// record is written once as a provenance marker; it is never consulted
// for reads.
func New(m medium.Medium, opts ...Option) *Store {
	s := &Store{
		medium:     m,
		storageKey: DefaultStorageKey,
		now:        time.Now,
	}
	s.cache = newTTLCache(DefaultCacheTTL, time.Now)
	for _, opt := range opts {
		opt(s)
	}

	s.available = s.probe()
	if !s.available {
		slog.Warn("store: medium unavailable, operating degraded", "storage_key", s.storageKey)
		return s
	}
	s.writeMetaOnce()
	return s
}

// Available reports whether the construction-time probe succeeded.
func (s *Store) Available() bool { return s.available }

// StorageKey returns the namespace root.
func (s *Store) StorageKey() string { return s.storageKey }

// CacheTTL returns the configured cache lifetime.
func (s *Store) CacheTTL() time.Duration { return s.cache.ttl }

// probe round-trips a throwaway key through the medium.
func (s *Store) probe() bool {
	if s.medium == nil {
		return false
	}
	probeKey := s.storageKey + "__probe"
	if err := s.medium.Set(probeKey, "1"); err != nil {
		return false
	}
	if err := s.medium.Remove(probeKey); err != nil {
		return false
	}
	return true
}

// writeMetaOnce records provenance on first initialization. The meta
// record is never read back by this implementation.
func (s *Store) writeMetaOnce() {
	metaKey := s.key(metaSuffix)
	if _, ok := s.medium.Get(metaKey); ok {
		return
	}
	meta := struct {
		Version     string   `json:"version"`
		Initialized string   `json:"initialized"`
		EntityTypes []string `json:"entityTypes"`
	}{
		Version:     Version,
		Initialized: s.now().UTC().Format(time.RFC3339),
		EntityTypes: []string{},
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := s.medium.Set(metaKey, string(raw)); err != nil {
		slog.Warn("store: meta write failed", "err", err)
	}
}

// key returns the namespaced medium key for an entity type.
func (s *Store) key(entityType string) string {
	return s.storageKey + "_" + entityType
}

// prefix returns the namespace prefix shared by every key this store owns.
func (s *Store) prefix() string {
	return s.storageKey + "_"
}

// Save persists data for entityType, wrapped in a current-version
// envelope, and refreshes the cache entry on success. It reports false
// when the store is degraded, the data cannot be serialized, or the
// medium rejects the write. A quota-exceeded rejection triggers a
// best-effort recovery (see recoverQuota) but the save still reports
// failure.
//
// The cache keeps a reference to data; callers must not modify it or
// its records after calling Save.
func (s *Store) Save(entityType string, data Collection) bool {
	if !s.available || entityType == "" {
		return false
	}

	value, err := encodeEnvelope(data, s.now())
	if err != nil {
		slog.Error("store: serialize failed", "entity", entityType, "err", err)
		return false
	}

	if err := s.medium.Set(s.key(entityType), value); err != nil {
		slog.Error("store: save failed", "entity", entityType, "err", err)
		if errors.Is(err, medium.ErrQuotaExceeded) {
			s.recoverQuota()
		}
		return false
	}

	s.cache.put(entityType, data)
	return true
}

// Load returns the collection for entityType, or def when the entity
// type is absent or anything goes wrong. Reads are cache-first; a cache
// miss reads the medium, migrates legacy records in memory, and
// populates the cache. Loading never writes to the medium.
//
// The returned collection is shared with the cache; callers must not
// modify it or its records.
func (s *Store) Load(entityType string, def Collection) Collection {
	if !s.available {
		return def
	}

	if data, ok := s.cache.get(entityType); ok {
		return data
	}

	raw, ok := s.medium.Get(s.key(entityType))
	if !ok {
		return def
	}

	env, err := decodeEnvelope(raw, s.now())
	if err != nil {
		slog.Error("store: load failed", "entity", entityType, "err", err)
		return def
	}
	if env.Version != Version {
		slog.Info("store: migrated record on read", "entity", entityType, "from", env.Version)
	}

	s.cache.put(entityType, env.Data)
	return env.Data
}

// Remove deletes the persisted record and the cache entry for
// entityType. Removing an absent entity type still reports success.
func (s *Store) Remove(entityType string) bool {
	if !s.available {
		return false
	}
	if err := s.medium.Remove(s.key(entityType)); err != nil {
		slog.Error("store: remove failed", "entity", entityType, "err", err)
		return false
	}
	s.cache.evict(entityType)
	return true
}

// Clear deletes every key under the store's namespace, the meta record
// included, and flushes the cache. Keys outside the namespace are never
// touched. Clear is idempotent.
func (s *Store) Clear() bool {
	if !s.available {
		return false
	}

	// Snapshot the key set first: removing while enumerating by index
	// would skip entries.
	var owned []string
	for i := 0; i < s.medium.Len(); i++ {
		k := s.medium.Key(i)
		if strings.HasPrefix(k, s.prefix()) {
			owned = append(owned, k)
		}
	}

	ok := true
	for _, k := range owned {
		if err := s.medium.Remove(k); err != nil {
			slog.Error("store: clear failed", "key", k, "err", err)
			ok = false
		}
	}
	s.cache.flush()
	return ok
}

// EntityTypes lists the entity types currently persisted, derived from
// key enumeration with the namespace prefix stripped. The meta record
// is not an entity type and is excluded. Order follows the medium's
// enumeration order, which is not guaranteed stable across media.
func (s *Store) EntityTypes() []string {
	if !s.available {
		return nil
	}
	var out []string
	for i := 0; i < s.medium.Len(); i++ {
		k := s.medium.Key(i)
		if !strings.HasPrefix(k, s.prefix()) {
			continue
		}
		et := strings.TrimPrefix(k, s.prefix())
		if et == metaSuffix || et == "" {
			continue
		}
		out = append(out, et)
	}
	return out
}

// Exists reports whether a persisted record for entityType is present
// in the medium, regardless of cache state.
func (s *Store) Exists(entityType string) bool {
	if !s.available {
		return false
	}
	_, ok := s.medium.Get(s.key(entityType))
	return ok
}

// recoverQuota is the best-effort reaction to a quota-exceeded write:
// flush the cache and delete namespaced keys that look like backups.
// Failures here are logged and swallowed; the triggering save has
// already failed and recovery must not escalate.
func (s *Store) recoverQuota() {
	slog.Warn("store: quota exceeded, attempting recovery", "storage_key", s.storageKey)
	s.cache.flush()

	var victims []string
	for i := 0; i < s.medium.Len(); i++ {
		k := s.medium.Key(i)
		if strings.HasPrefix(k, s.prefix()) && strings.Contains(k, "backup") {
			victims = append(victims, k)
		}
	}
	for _, k := range victims {
		if err := s.medium.Remove(k); err != nil {
			slog.Warn("store: quota recovery remove failed", "key", k, "err", err)
			continue
		}
		slog.Info("store: quota recovery removed key", "key", k)
	}
}
