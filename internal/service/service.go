// Package service owns the active recommendation index. Readers get the current
// immutable index without locking; a reload builds a new index and swaps it in.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ramonehamilton/clash-synergy/internal/logging"
	"github.com/ramonehamilton/clash-synergy/internal/metrics"
	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// ErrNotLoaded is returned by queries made before the first successful load.
var ErrNotLoaded = errors.New("card catalog not loaded")

// Service answers recommendation queries against the current index.
type Service struct {
	loader  Loader
	metrics *metrics.RecommendMetrics
	log     zerolog.Logger

	index    atomic.Pointer[recommendations.Index]
	loadedAt atomic.Pointer[time.Time]

	// reloadMu serializes rebuilds and guards listeners; queries never take it.
	reloadMu  sync.Mutex
	listeners []func(ReloadEvent)
}

// ReloadEvent describes the outcome of one rebuild.
type ReloadEvent struct {
	Source   string    `json:"source"`
	Cards    int       `json:"cards"`
	Features int       `json:"features"`
	LoadedAt time.Time `json:"loaded_at"`
	Error    string    `json:"error,omitempty"`
}

// OK reports whether the rebuild succeeded.
func (e ReloadEvent) OK() bool {
	return e.Error == ""
}

// New creates a service. Call Load before serving queries. A nil m gets a
// private metrics collector.
func New(loader Loader, m *metrics.RecommendMetrics) *Service {
	if m == nil {
		m = metrics.NewRecommendMetrics()
	}
	return &Service{
		loader:  loader,
		metrics: m,
		log:     logging.Component("service"),
	}
}

// Metrics returns the metrics collector.
func (s *Service) Metrics() *metrics.RecommendMetrics {
	return s.metrics
}

// Current returns the active index, or nil before the first load.
func (s *Service) Current() *recommendations.Index {
	return s.index.Load()
}

// LoadedAt returns when the active index was built.
func (s *Service) LoadedAt() time.Time {
	if t := s.loadedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// OnReload registers fn to be called after every rebuild attempt. Listeners run
// synchronously on the reloading goroutine and must not call Reload.
func (s *Service) OnReload(fn func(ReloadEvent)) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load builds the initial index. A ConfigurationError here should abort startup.
func (s *Service) Load(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload builds a fresh index from the loader and swaps it in. On failure the
// previous index stays active and the error is returned.
func (s *Service) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	index, err := s.build(ctx)
	s.metrics.ObserveReload(time.Since(start), indexLen(index), err)

	if err != nil {
		s.log.Error().Err(err).Str("source", s.loader.Source()).Msg("Catalog reload failed, keeping previous index")
		s.notify(ReloadEvent{Source: s.loader.Source(), Error: err.Error()})
		return err
	}

	now := time.Now()
	s.index.Store(index)
	s.loadedAt.Store(&now)
	s.notify(ReloadEvent{
		Source:   s.loader.Source(),
		Cards:    index.Len(),
		Features: index.Encoder().Width(),
		LoadedAt: now,
	})

	s.log.Info().
		Str("source", s.loader.Source()).
		Int("cards", index.Len()).
		Int("features", index.Encoder().Width()).
		Dur("took", time.Since(start)).
		Msg("Catalog index built")
	return nil
}

func (s *Service) notify(ev ReloadEvent) {
	for _, fn := range s.listeners {
		fn(ev)
	}
}

func (s *Service) build(ctx context.Context) (*recommendations.Index, error) {
	cards, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return recommendations.BuildIndex(cards)
}

func indexLen(ix *recommendations.Index) int {
	if ix == nil {
		return 0
	}
	return ix.Len()
}

func (s *Service) current() (*recommendations.Index, error) {
	ix := s.index.Load()
	if ix == nil {
		return nil, ErrNotLoaded
	}
	return ix, nil
}

// Recommend ranks candidates for a selection.
func (s *Service) Recommend(selected []string, topN int) (*recommendations.Result, error) {
	ix, err := s.current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := ix.GetRecommendations(selected, topN)
	s.metrics.ObserveRequest(metrics.OpRecommend, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.metrics.AddRecommendations(len(result.Recommendations))
	return result, nil
}

// Explain scores one candidate against a selection.
func (s *Service) Explain(selected []string, candidate string) (*recommendations.Recommendation, error) {
	ix, err := s.current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rec, err := ix.ExplainCard(selected, candidate)
	s.metrics.ObserveRequest(metrics.OpExplain, time.Since(start), err)
	return rec, err
}

// Similar ranks catalog cards by feature similarity to name.
func (s *Service) Similar(name string, limit int) ([]*recommendations.SimilarCard, error) {
	ix, err := s.current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := ix.SimilarCards(name, limit)
	s.metrics.ObserveRequest(metrics.OpSimilar, time.Since(start), err)
	return out, err
}

// Cards returns the catalog in order.
func (s *Service) Cards() ([]*models.Card, error) {
	ix, err := s.current()
	if err != nil {
		return nil, err
	}
	return ix.Cards(), nil
}

// Card looks up one card by exact name.
func (s *Service) Card(name string) (*models.Card, bool, error) {
	ix, err := s.current()
	if err != nil {
		return nil, false, err
	}
	card, ok := ix.Card(name)
	return card, ok, nil
}
