package entitystore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current persisted-format version. Every record written
// by this implementation carries it.
const Version = "2.0"

// Collection is an ordered sequence of opaque records. The store never
// interprets record contents except for the "id" field during merge
// imports.
type Collection []json.RawMessage

// Envelope is the versioned wrapper persisted per entity type. A stored
// value without a "version" field is a legacy record: the raw value is
// itself the data payload.
type Envelope struct {
	Version   string     `json:"version"`
	Timestamp string     `json:"timestamp"`
	Data      Collection `json:"data"`
}

// encodeEnvelope wraps data in a current-version envelope stamped at now.
func encodeEnvelope(data Collection, now time.Time) (string, error) {
	if data == nil {
		data = Collection{}
	}
	env := Envelope{
		Version:   Version,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return string(raw), nil
}

// decodeEnvelope parses a stored value. When the value has no "version"
// field it is treated as a legacy payload: the raw value must be a JSON
// array and becomes the data directly, inside a synthesized
// current-version envelope. The migration is in-memory only; the medium
// is never written during a read.
func decodeEnvelope(raw string, now time.Time) (Envelope, error) {
	var probe struct {
		Version *string         `json:"version"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err == nil && probe.Version != nil {
		var env Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return Envelope{}, fmt.Errorf("decode envelope: %w", err)
		}
		if env.Data == nil {
			env.Data = Collection{}
		}
		return env, nil
	}

	// Legacy record: the stored value is the bare collection.
	var data Collection
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Envelope{}, fmt.Errorf("decode legacy record: %w", err)
	}
	return Envelope{
		Version:   Version,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      data,
	}, nil
}

// recordID extracts the identity of a record for merge comparisons:
// the whitespace-compacted JSON encoding of its "id" field, so
// formatting differences between backups do not split one identity in
// two. Numeric spellings are not normalized — 1 and 1.0 stay distinct.
// The second return is false when the record has no id (or is not an
// object), in which case merge always appends it.
func recordID(rec json.RawMessage) (string, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(rec, &probe); err != nil {
		return "", false
	}
	id, ok := probe["id"]
	if !ok || string(id) == "null" {
		return "", false
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, id); err != nil {
		return "", false
	}
	return compact.String(), true
}
