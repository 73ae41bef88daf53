package entitystore

import (
	"strings"
	"time"
)

// StorageInfo is a read-only usage snapshot taken over one full
// enumeration pass of the medium. Sizes count key plus value bytes.
type StorageInfo struct {
	Version      string         `json:"version"`
	TotalBytes   int            `json:"total_bytes"`
	StoreBytes   int            `json:"store_bytes"`
	EntityBytes  map[string]int `json:"entity_bytes"`
	CacheEntries int            `json:"cache_entries"`
}

// CacheStats describes the in-memory cache: entry count, the age of
// each entry, and an approximate memory figure derived from the
// serialized size of the cached payloads.
type CacheStats struct {
	Entries     int                      `json:"entries"`
	Ages        map[string]time.Duration `json:"ages"`
	ApproxBytes int                      `json:"approx_bytes"`
}

// StorageInfo aggregates medium usage. It has no side effects — expired
// cache entries are not evicted by taking a snapshot.
func (s *Store) StorageInfo() StorageInfo {
	info := StorageInfo{
		Version:      Version,
		EntityBytes:  make(map[string]int),
		CacheEntries: s.cache.size(),
	}
	if !s.available {
		return info
	}

	for i := 0; i < s.medium.Len(); i++ {
		k := s.medium.Key(i)
		v, ok := s.medium.Get(k)
		if !ok {
			continue
		}
		size := len(k) + len(v)
		info.TotalBytes += size
		if !strings.HasPrefix(k, s.prefix()) {
			continue
		}
		info.StoreBytes += size
		if et := strings.TrimPrefix(k, s.prefix()); et != metaSuffix && et != "" {
			info.EntityBytes[et] = size
		}
	}
	return info
}

// InvalidateCache evicts the cache entry for one entity type. The
// persisted record is untouched.
func (s *Store) InvalidateCache(entityType string) {
	s.cache.evict(entityType)
}

// FlushCache evicts every cache entry.
func (s *Store) FlushCache() {
	s.cache.flush()
}

// CacheStats reports the cache's current contents. Purely
// observational; nothing is evicted.
func (s *Store) CacheStats() CacheStats {
	now := s.now()
	stats := CacheStats{Ages: make(map[string]time.Duration)}
	for et, e := range s.cache.snapshot() {
		stats.Entries++
		stats.Ages[et] = now.Sub(e.storedAt)
		for _, rec := range e.data {
			stats.ApproxBytes += len(rec)
		}
	}
	return stats
}
