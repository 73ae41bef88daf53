package api

import (
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// metrics serves GET /metrics — storage and cache gauges in Prometheus
// text exposition format, built from the same StorageInfo snapshot the
// JSON endpoint returns.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := h.store.StorageInfo()
	stats := h.store.CacheStats()

	available := 0.0
	if h.store.Available() {
		available = 1.0
	}

	families := []*dto.MetricFamily{
		gauge("taskvault_store_available",
			"Whether the construction-time medium probe succeeded.",
			metric(available)),
		gauge("taskvault_storage_total_bytes",
			"Total key+value bytes across the whole medium.",
			metric(float64(info.TotalBytes))),
		gauge("taskvault_storage_store_bytes",
			"Key+value bytes under this store's namespace.",
			metric(float64(info.StoreBytes))),
		gauge("taskvault_cache_entries",
			"Entries currently held in the entity cache.",
			metric(float64(stats.Entries))),
		gauge("taskvault_cache_approx_bytes",
			"Approximate serialized size of cached payloads.",
			metric(float64(stats.ApproxBytes))),
	}

	entityFamily := gauge("taskvault_storage_entity_bytes",
		"Key+value bytes of one persisted entity record.")
	for et, size := range info.EntityBytes {
		m := metric(float64(size))
		m.Label = []*dto.LabelPair{{
			Name:  strPtr("entity_type"),
			Value: strPtr(et),
		}}
		entityFamily.Metric = append(entityFamily.Metric, m)
	}
	if len(entityFamily.Metric) > 0 {
		families = append(families, entityFamily)
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			slog.Error("api: metrics encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

// --- exposition helpers -------------------------------------------------

func gauge(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   strPtr(name),
		Help:   strPtr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func metric(value float64) *dto.Metric {
	return &dto.Metric{Gauge: &dto.Gauge{Value: &value}}
}

func strPtr(s string) *string { return &s }
