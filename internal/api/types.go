package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Available   bool     `json:"available"`
	Version     string   `json:"version"`
	EntityTypes []string `json:"entity_types"`
}

// CacheStatsResponse is the payload for GET /api/v1/cache. Ages are in
// seconds, keyed by entity type.
type CacheStatsResponse struct {
	Entries     int                `json:"entries"`
	AgesSeconds map[string]float64 `json:"ages_seconds"`
	ApproxBytes int                `json:"approx_bytes"`
}

// ImportResponse is the payload for POST /api/v1/import.
type ImportResponse struct {
	Imported  bool `json:"imported"`
	Overwrite bool `json:"overwrite"`
}

// statusResponse acknowledges a mutation with no body of its own.
type statusResponse struct {
	Status string `json:"status"`
}

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error string `json:"error"`
}
