package metrics

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
)

// Operations observed by the recommender.
const (
	OpRecommend = "recommend"
	OpExplain   = "explain"
	OpSimilar   = "similar"
)

// Request outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// latencyBuckets covers sub-millisecond scoring up to slow reloads, in seconds.
var latencyBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// RecommendMetrics tracks recommendation traffic and catalog reloads. It keeps
// an in-process view for the stats endpoint and mirrors everything into its own
// Prometheus registry.
type RecommendMetrics struct {
	// Latency windows (milliseconds)
	RecommendLatency *Histogram
	ExplainLatency   *Histogram
	SimilarLatency   *Histogram
	ReloadLatency    *Histogram

	Requests         atomic.Uint64
	ValidationErrors atomic.Uint64
	Failures         atomic.Uint64
	Recommendations  atomic.Uint64 // ranked items returned
	Reloads          atomic.Uint64
	ReloadFailures   atomic.Uint64

	startTime time.Time
	mu        sync.RWMutex

	registry      *prometheus.Registry
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	reloadsTotal  *prometheus.CounterVec
	catalogCards  prometheus.Gauge
}

// NewRecommendMetrics creates a collector with a fresh Prometheus registry.
func NewRecommendMetrics() *RecommendMetrics {
	return NewRecommendMetricsWithRegistry(prometheus.NewRegistry())
}

// NewRecommendMetricsWithRegistry registers the collectors on registry.
func NewRecommendMetricsWithRegistry(registry *prometheus.Registry) *RecommendMetrics {
	m := &RecommendMetrics{
		RecommendLatency: NewHistogram(defaultWindow),
		ExplainLatency:   NewHistogram(defaultWindow),
		SimilarLatency:   NewHistogram(defaultWindow),
		ReloadLatency:    NewHistogram(256),
		startTime:        time.Now(),
		registry:         registry,
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_requests_total",
			Help: "Total number of recommender requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	m.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synergy_request_duration_seconds",
			Help:    "Duration of recommender operations in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"operation"},
	)
	m.reloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_catalog_reloads_total",
			Help: "Total number of catalog index rebuilds by outcome",
		},
		[]string{"outcome"},
	)
	m.catalogCards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "synergy_catalog_cards",
			Help: "Number of cards in the active index",
		},
	)

	registry.MustRegister(
		m.requestsTotal,
		m.duration,
		m.reloadsTotal,
		m.catalogCards,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Outcome classifies an operation error.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		return OutcomeInvalid
	}
	return OutcomeError
}

// ObserveRequest records one recommender operation.
func (m *RecommendMetrics) ObserveRequest(op string, d time.Duration, err error) {
	outcome := Outcome(err)

	m.Requests.Add(1)
	switch outcome {
	case OutcomeInvalid:
		m.ValidationErrors.Add(1)
	case OutcomeError:
		m.Failures.Add(1)
	}

	if h := m.histogram(op); h != nil {
		h.Record(d)
	}

	m.requestsTotal.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// AddRecommendations counts ranked items returned to clients.
func (m *RecommendMetrics) AddRecommendations(n int) {
	if n > 0 {
		m.Recommendations.Add(uint64(n))
	}
}

// ObserveReload records an index rebuild. cards is the size of the new index
// and is ignored when the rebuild failed.
func (m *RecommendMetrics) ObserveReload(d time.Duration, cards int, err error) {
	m.ReloadLatency.Record(d)
	if err != nil {
		m.ReloadFailures.Add(1)
		m.reloadsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.Reloads.Add(1)
	m.reloadsTotal.WithLabelValues(OutcomeOK).Inc()
	m.catalogCards.Set(float64(cards))
}

// Registry returns the Prometheus registry backing these metrics.
func (m *RecommendMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition for the registry.
func (m *RecommendMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RecommendMetrics) histogram(op string) *Histogram {
	switch op {
	case OpRecommend:
		return m.RecommendLatency
	case OpExplain:
		return m.ExplainLatency
	case OpSimilar:
		return m.SimilarLatency
	}
	return nil
}

// Stats is a point-in-time view of the recommender metrics.
type Stats struct {
	RecommendLatency LatencyStats `json:"recommend_latency"`
	ExplainLatency   LatencyStats `json:"explain_latency"`
	SimilarLatency   LatencyStats `json:"similar_latency"`
	ReloadLatency    LatencyStats `json:"reload_latency"`

	Requests         uint64  `json:"requests"`
	ValidationErrors uint64  `json:"validation_errors"`
	Failures         uint64  `json:"failures"`
	Recommendations  uint64  `json:"recommendations"`
	Reloads          uint64  `json:"reloads"`
	ReloadFailures   uint64  `json:"reload_failures"`
	SuccessRate      float64 `json:"success_rate"` // percentage

	Uptime string `json:"uptime"`
}

// GetStats returns a snapshot of the current statistics.
func (m *RecommendMetrics) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requests := m.Requests.Load()
	invalid := m.ValidationErrors.Load()
	failures := m.Failures.Load()

	successRate := 0.0
	if requests > 0 {
		successRate = float64(requests-invalid-failures) / float64(requests) * 100
	}

	return &Stats{
		RecommendLatency: m.RecommendLatency.Snapshot(),
		ExplainLatency:   m.ExplainLatency.Snapshot(),
		SimilarLatency:   m.SimilarLatency.Snapshot(),
		ReloadLatency:    m.ReloadLatency.Snapshot(),
		Requests:         requests,
		ValidationErrors: invalid,
		Failures:         failures,
		Recommendations:  m.Recommendations.Load(),
		Reloads:          m.Reloads.Load(),
		ReloadFailures:   m.ReloadFailures.Load(),
		SuccessRate:      successRate,
		Uptime:           time.Since(m.startTime).Round(time.Second).String(),
	}
}

// Reset clears the in-process counters and windows. Prometheus counters are
// monotonic and are left untouched.
func (m *RecommendMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecommendLatency.Reset()
	m.ExplainLatency.Reset()
	m.SimilarLatency.Reset()
	m.ReloadLatency.Reset()

	m.Requests.Store(0)
	m.ValidationErrors.Store(0)
	m.Failures.Store(0)
	m.Recommendations.Store(0)
	m.Reloads.Store(0)
	m.ReloadFailures.Store(0)

	m.startTime = time.Now()
}
