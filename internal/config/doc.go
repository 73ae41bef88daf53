// Package config loads the taskvault configuration from config.yaml.
//
// Config fields:
//   - Storage.Key        — namespace root for all persisted keys (default "taskvault")
//   - Storage.CacheTTL   — entity cache lifetime (default 5m)
//   - Storage.Path       — backing file for the medium; empty runs in-memory
//   - Storage.QuotaBytes — byte cap on the medium, 0 = unlimited
//   - Storage.Watch      — flush the cache when another process writes the backing file
//   - HTTP.Port          — REST API port (default 8080)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) hot-reloads the file; of the fields above
// only Storage.QuotaBytes takes effect without a restart.
package config
