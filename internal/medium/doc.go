// Package medium defines the flat key-value medium the entity store
// persists through, and provides two implementations.
//
// The Medium contract mirrors a host-supplied synchronous store: string
// keys, string values, index-based key enumeration, and a distinguished
// ErrQuotaExceeded from Set when the medium is full. The namespace is
// flat and may be shared with other application components, so callers
// are expected to prefix their keys.
//
// Implementations:
//   - Memory — process-local map with insertion-ordered enumeration;
//     used in tests and in ephemeral mode.
//   - File — a JSON image on disk, rewritten atomically on every
//     mutation, with an optional byte quota.
//
// Watch observes external writes to a File medium's backing path via
// fsnotify so the owner can react (e.g. flush caches) when another
// process mutates the same file.
package medium
