// Package api implements the HTTP REST API for taskvault — the narrow
// interface UI and tooling call the entity store through.
//
// New(store, tasks, users) returns an http.Handler that serves:
//
//	GET    /api/v1/health             — store availability + format version
//	GET    /api/v1/tasks              — all tasks
//	POST   /api/v1/tasks              — create a task (id assigned if empty)
//	GET    /api/v1/tasks/{id}         — one task; 404 if unknown
//	PUT    /api/v1/tasks/{id}         — replace a task
//	DELETE /api/v1/tasks/{id}         — delete a task
//	POST   /api/v1/tasks/{id}/toggle  — flip completion
//	GET|POST /api/v1/users, GET|PUT|DELETE /api/v1/users/{id} — same for users
//	GET    /api/v1/storage            — StorageInfo snapshot
//	GET    /api/v1/cache              — cache stats
//	DELETE /api/v1/cache              — flush the whole cache
//	DELETE /api/v1/cache/{entityType} — evict one entry
//	GET    /api/v1/export             — backup payload (download)
//	POST   /api/v1/import?overwrite=  — restore a backup (merge by default)
//	GET    /metrics                   — storage gauges, Prometheus text format
//
// All /api endpoints respond with Content-Type: application/json and
// return 405 for unsupported methods. No external HTTP framework is
// used. JSON types are defined in types.go.
package api
