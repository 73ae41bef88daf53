// Package entitystore implements the durable, namespaced, cached,
// versioned storage of named entity collections, plus whole-store
// export/import for backup and restore.
//
// A Store writes one record per entity type to the underlying medium at
// key "<storageKey>_<entityType>", wrapped in a versioned Envelope.
// Reads go through an in-memory TTL cache; expired entries are evicted
// lazily on read. Pre-versioning records (no "version" field) are
// migrated on read without being written back.
//
// The Store never lets an error escape its public API: every operation
// returns a success flag or the caller's default, and diagnostic detail
// goes to the log. Availability is probed once at construction; a store
// whose medium fails the probe is permanently degraded — mutators
// report failure and reads return the default.
//
// A single Store is safe for concurrent callers. Multiple Store
// instances over the same medium provide no cross-instance consistency:
// each instance's cache can diverge from durable state written by
// another instance. That is an accepted limitation of the design.
package entitystore
