package medium

import "errors"

// ErrQuotaExceeded is returned by Set when the medium cannot hold the
// write. Callers distinguish it with errors.Is to trigger recovery.
var ErrQuotaExceeded = errors.New("medium: quota exceeded")

// errDisabled is what a deliberately broken test medium returns.
var errDisabled = errors.New("medium: disabled")

// Medium is the synchronous key-value store the entity store writes
// through. The key space is flat and shared, so callers must prefix
// their keys.
//
// Len and Key enumerate the current key set by index; the enumeration
// order is implementation-defined. Key returns "" for an out-of-range
// index.
type Medium interface {
	// Get returns the value for key and whether the key is present.
	Get(key string) (string, bool)

	// Set stores value under key. It returns ErrQuotaExceeded when the
	// write does not fit, or another error when the medium itself fails.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Len returns the number of keys currently stored.
	Len() int

	// Key returns the key at index i in enumeration order.
	Key(i int) string
}
