package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/taskvault/taskvault/internal/entitystore"
	"github.com/taskvault/taskvault/internal/repository"
)

// maxImportBytes caps the request body on POST /api/v1/import.
const maxImportBytes = 32 << 20

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
type Handler struct {
	store *entitystore.Store
	tasks *repository.Tasks
	users *repository.Users
	mux   *http.ServeMux
}

// New creates a Handler wired to the given store and repositories and
// registers all routes.
func New(st *entitystore.Store, tasks *repository.Tasks, users *repository.Users) http.Handler {
	h := &Handler{store: st, tasks: tasks, users: users, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/tasks", h.taskCollection)
	h.mux.HandleFunc("/api/v1/tasks/", h.taskItem) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/users", h.userCollection)
	h.mux.HandleFunc("/api/v1/users/", h.userItem)
	h.mux.HandleFunc("/api/v1/storage", h.storageInfo)
	h.mux.HandleFunc("/api/v1/cache", h.cache)
	h.mux.HandleFunc("/api/v1/cache/", h.cacheEntry)
	h.mux.HandleFunc("/api/v1/export", h.export)
	h.mux.HandleFunc("/api/v1/import", h.importBackup)
	h.mux.HandleFunc("/metrics", h.metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — availability, version, entity types.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ets := h.store.EntityTypes()
	if ets == nil {
		ets = []string{}
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Available:   h.store.Available(),
		Version:     entitystore.Version,
		EntityTypes: ets,
	})
}

// taskCollection serves GET|POST /api/v1/tasks.
func (h *Handler) taskCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, h.tasks.List())
	case http.MethodPost:
		var t repository.Task
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid task payload")
			return
		}
		created, err := h.tasks.Add(t)
		if err != nil {
			jsonErr(w, http.StatusInsufficientStorage, "store rejected write")
			return
		}
		jsonResp(w, http.StatusCreated, created)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// taskItem serves GET|PUT|DELETE /api/v1/tasks/{id} and
// POST /api/v1/tasks/{id}/toggle.
func (h *Handler) taskItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
	if rest == "" {
		h.taskCollection(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/toggle"); ok {
		if r.Method != http.MethodPost {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		t, err := h.tasks.Toggle(id)
		if err != nil {
			writeRepoErr(w, err, "task not found")
			return
		}
		jsonResp(w, http.StatusOK, t)
		return
	}

	id := rest
	switch r.Method {
	case http.MethodGet:
		t, err := h.tasks.Get(id)
		if err != nil {
			writeRepoErr(w, err, "task not found")
			return
		}
		jsonResp(w, http.StatusOK, t)
	case http.MethodPut:
		var t repository.Task
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid task payload")
			return
		}
		t.ID = id
		updated, err := h.tasks.Update(t)
		if err != nil {
			writeRepoErr(w, err, "task not found")
			return
		}
		jsonResp(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.tasks.Delete(id); err != nil {
			writeRepoErr(w, err, "task not found")
			return
		}
		jsonResp(w, http.StatusOK, statusResponse{Status: "deleted"})
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// userCollection serves GET|POST /api/v1/users.
func (h *Handler) userCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, h.users.List())
	case http.MethodPost:
		var u repository.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid user payload")
			return
		}
		created, err := h.users.Add(u)
		if err != nil {
			jsonErr(w, http.StatusInsufficientStorage, "store rejected write")
			return
		}
		jsonResp(w, http.StatusCreated, created)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// userItem serves GET|PUT|DELETE /api/v1/users/{id}.
func (h *Handler) userItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	if id == "" {
		h.userCollection(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		u, err := h.users.Get(id)
		if err != nil {
			writeRepoErr(w, err, "user not found")
			return
		}
		jsonResp(w, http.StatusOK, u)
	case http.MethodPut:
		var u repository.User
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid user payload")
			return
		}
		u.ID = id
		updated, err := h.users.Update(u)
		if err != nil {
			writeRepoErr(w, err, "user not found")
			return
		}
		jsonResp(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.users.Delete(id); err != nil {
			writeRepoErr(w, err, "user not found")
			return
		}
		jsonResp(w, http.StatusOK, statusResponse{Status: "deleted"})
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// storageInfo returns GET /api/v1/storage — usage snapshot.
func (h *Handler) storageInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.store.StorageInfo())
}

// cache serves GET|DELETE /api/v1/cache.
func (h *Handler) cache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stats := h.store.CacheStats()
		resp := CacheStatsResponse{
			Entries:     stats.Entries,
			AgesSeconds: make(map[string]float64, len(stats.Ages)),
			ApproxBytes: stats.ApproxBytes,
		}
		for et, age := range stats.Ages {
			resp.AgesSeconds[et] = age.Seconds()
		}
		jsonResp(w, http.StatusOK, resp)
	case http.MethodDelete:
		h.store.FlushCache()
		jsonResp(w, http.StatusOK, statusResponse{Status: "flushed"})
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// cacheEntry serves DELETE /api/v1/cache/{entityType}.
func (h *Handler) cacheEntry(w http.ResponseWriter, r *http.Request) {
	et := strings.TrimPrefix(r.URL.Path, "/api/v1/cache/")
	if et == "" {
		h.cache(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.store.InvalidateCache(et)
	jsonResp(w, http.StatusOK, statusResponse{Status: "evicted"})
}

// export returns GET /api/v1/export — the whole-store backup payload.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := h.store.Export()
	if payload == nil {
		jsonErr(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="taskvault-backup.json"`)
	jsonResp(w, http.StatusOK, payload)
}

// importBackup handles POST /api/v1/import?overwrite=true|false.
// Without overwrite the payload merges into existing collections:
// existing records win on id conflicts.
func (h *Handler) importBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "read body failed")
		return
	}
	payload, err := entitystore.ParseBackup(raw)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid backup payload")
		return
	}

	overwrite := r.URL.Query().Get("overwrite") == "true"
	if !h.store.Import(payload, overwrite) {
		jsonErr(w, http.StatusInsufficientStorage, "import failed")
		return
	}
	jsonResp(w, http.StatusOK, ImportResponse{Imported: true, Overwrite: overwrite})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// writeRepoErr maps repository errors to HTTP statuses.
func writeRepoErr(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, repository.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, notFoundMsg)
		return
	}
	jsonErr(w, http.StatusInsufficientStorage, "store rejected write")
}
