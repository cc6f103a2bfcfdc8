package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// maxTopN caps the ?top= parameter so one request cannot sort and ship the
// whole query history.
const maxTopN = 100

// Handler serves the search and indexing counters gathered by an Aggregator.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats handles GET /api/v1/analytics. The optional top parameter sets how
// many queries and terms each ranked list carries (1..100, default 10).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := DefaultTopN
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopN {
			writeJSON(w, h.logger, http.StatusBadRequest, map[string]string{
				"error": "top must be an integer between 1 and " + strconv.Itoa(maxTopN),
			})
			return
		}
		top = n
	}

	stats := h.aggregator.StatsTop(top)
	h.logger.Debug("serving search stats",
		"top", top,
		"total_searches", stats.TotalSearches,
		"indexes_committed", stats.IndexesCommitted,
	)
	writeJSON(w, h.logger, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write stats response", "status", status, "error", err)
	}
}
