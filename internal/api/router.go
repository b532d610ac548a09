package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/clash-synergy/internal/api/handlers"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	systemHandler := handlers.NewSystemHandler(s.svc, s.cfg.Version)

	// Unversioned operational endpoints
	s.router.Get("/health", systemHandler.Health)
	s.router.Handle("/metrics", s.svc.Metrics().Handler())
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateLimit, s.cfg.RateBurst))

		cardHandler := handlers.NewCardHandler(s.svc)
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cardHandler.ListCards)
			r.Get("/{name}", cardHandler.GetCard)
			r.Get("/{name}/similar", cardHandler.GetSimilar)
		})

		recHandler := handlers.NewRecommendationHandler(s.svc, s.cfg.Limits)
		r.Route("/recommendations", func(r chi.Router) {
			r.Post("/", recHandler.Recommend)
			r.Post("/explain", recHandler.Explain)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/stats", systemHandler.Stats)
		})
	})
}

// originChecker matches the Origin header against patterns that may contain a
// single "*" wildcard, the same form the CORS options accept. Requests without
// an Origin header are not from browsers and are allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := strings.ToLower(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		for _, pattern := range allowed {
			if matchOrigin(strings.ToLower(pattern), origin) {
				return true
			}
		}
		return false
	}
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}
	prefix, suffix, wildcard := strings.Cut(pattern, "*")
	if !wildcard {
		return pattern == origin
	}
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}
