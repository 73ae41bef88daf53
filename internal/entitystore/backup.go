package entitystore

import (
	"encoding/json"
	"fmt"
	"time"
)

// BackupPayload is the whole-store export document: every persisted
// entity type with its full collection, under the current format
// version.
type BackupPayload struct {
	Version   string                `json:"version"`
	Timestamp string                `json:"timestamp"`
	Entities  map[string]Collection `json:"entities"`
}

// Export builds a backup covering every discovered entity type. Each
// collection is read through Load, so exports follow the same cache and
// legacy-migration path as ordinary reads; absent collections export as
// empty. Export returns nil when the store is degraded.
func (s *Store) Export() *BackupPayload {
	if !s.available {
		return nil
	}
	payload := &BackupPayload{
		Version:   Version,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Entities:  make(map[string]Collection),
	}
	for _, et := range s.EntityTypes() {
		payload.Entities[et] = s.Load(et, Collection{})
	}
	return payload
}

// ParseBackup decodes and validates a backup document. Every value in
// "entities" must be a JSON array; anything else is a validation error
// and nothing is imported.
func ParseBackup(raw []byte) (*BackupPayload, error) {
	var payload BackupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}
	if payload.Entities == nil {
		return nil, fmt.Errorf("parse backup: missing entities")
	}
	if _, ok := payload.Entities[""]; ok {
		return nil, fmt.Errorf("parse backup: empty entity type")
	}
	return &payload, nil
}

// Import restores a backup. With overwrite, every collection in the
// payload replaces the stored one outright. Without it, an imported
// collection replaces an empty stored one, and otherwise merges in:
// existing records are kept verbatim, incoming records are appended
// only when their id is absent from the existing set. Incoming records
// without an id are always appended, so re-importing the same backup
// can duplicate them — long-standing behavior, kept deliberately.
//
// Import mutates entity types one at a time and stops at the first
// failure, reporting false and leaving earlier mutations in place.
// There is no atomicity across entity types.
func (s *Store) Import(payload *BackupPayload, overwrite bool) bool {
	if !s.available {
		return false
	}
	if payload == nil || payload.Entities == nil {
		return false
	}
	// Validate the whole payload before the first Save: a rejected
	// import must not leave partial mutations behind.
	if _, ok := payload.Entities[""]; ok {
		return false
	}

	for et, incoming := range payload.Entities {
		if incoming == nil {
			incoming = Collection{}
		}

		if overwrite {
			if !s.Save(et, incoming) {
				return false
			}
			continue
		}

		existing := s.Load(et, Collection{})
		if len(existing) == 0 {
			if !s.Save(et, incoming) {
				return false
			}
			continue
		}

		if !s.Save(et, merge(existing, incoming)) {
			return false
		}
	}
	return true
}

// merge appends to existing every incoming record whose id is not
// already present. Matching ids keep the existing record untouched — no
// conflict resolution. Id-less incoming records always append.
func merge(existing, incoming Collection) Collection {
	seen := make(map[string]bool, len(existing))
	for _, rec := range existing {
		if id, ok := recordID(rec); ok {
			seen[id] = true
		}
	}

	out := make(Collection, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	for _, rec := range incoming {
		id, ok := recordID(rec)
		if ok && seen[id] {
			continue
		}
		out = append(out, rec)
	}
	return out
}
