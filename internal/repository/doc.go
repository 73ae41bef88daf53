// Package repository provides the typed model layer over the entity
// store: task and user collections with CRUD operations.
//
// Each repository owns one entity type ("tasks", "users") and maps
// between typed records and the store's opaque collections. New records
// get a UUID when they arrive without an id, and create/update
// timestamps are stamped by the repository, not the caller.
//
// The store never raises; repositories translate its success flags into
// errors (ErrNotFound, ErrStoreRejected) so HTTP handlers can map them
// to status codes.
package repository
