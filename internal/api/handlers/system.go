package handlers

import (
	"net/http"
	"time"

	"github.com/ramonehamilton/clash-synergy/internal/api/response"
	"github.com/ramonehamilton/clash-synergy/internal/metrics"
	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
)

// StatusSource exposes the index and metrics for the system endpoints.
type StatusSource interface {
	Current() *recommendations.Index
	LoadedAt() time.Time
	Metrics() *metrics.RecommendMetrics
}

// SystemHandler serves health and runtime statistics.
type SystemHandler struct {
	src     StatusSource
	version string
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(src StatusSource, version string) *SystemHandler {
	return &SystemHandler{src: src, version: version}
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Cards  int    `json:"cards"`
}

// SystemStats is returned by GET /api/v1/system/stats.
type SystemStats struct {
	Version  string         `json:"version"`
	Cards    int            `json:"cards"`
	Features int            `json:"features"`
	Columns  []string       `json:"columns,omitempty"`
	LoadedAt *time.Time     `json:"loaded_at,omitempty"`
	Metrics  *metrics.Stats `json:"metrics"`
}

// Health reports whether an index is loaded.
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	ix := h.src.Current()
	if ix == nil {
		response.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "loading"})
		return
	}
	response.JSON(w, http.StatusOK, HealthResponse{Status: "ok", Cards: ix.Len()})
}

// Stats returns request counters, latency percentiles and index shape.
func (h *SystemHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	stats := SystemStats{
		Version: h.version,
		Metrics: h.src.Metrics().GetStats(),
	}
	if ix := h.src.Current(); ix != nil {
		stats.Cards = ix.Len()
		stats.Features = ix.Encoder().Width()
		stats.Columns = ix.Encoder().Columns()
		loaded := h.src.LoadedAt()
		stats.LoadedAt = &loaded
	}
	response.Success(w, stats)
}
