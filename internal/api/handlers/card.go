package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/clash-synergy/internal/api/response"
	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
)

// CardHandler serves the card catalog.
type CardHandler struct {
	svc Recommender
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(svc Recommender) *CardHandler {
	return &CardHandler{svc: svc}
}

// ListCards returns every card in catalog order.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.Cards()
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Success(w, cards)
}

// GetCard returns a card by exact name.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	name := cardName(r)

	card, ok, err := h.svc.Card(name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		response.NotFound(w, fmt.Errorf("card %q not found", name))
		return
	}

	response.Success(w, card)
}

// GetSimilar ranks other cards by feature similarity to the named card.
func (h *CardHandler) GetSimilar(w http.ResponseWriter, r *http.Request) {
	name := cardName(r)

	if _, ok, err := h.svc.Card(name); err != nil {
		writeError(w, r, err)
		return
	} else if !ok {
		response.NotFound(w, fmt.Errorf("card %q not found", name))
		return
	}

	limit := recommendations.DefaultTopN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 {
			response.BadRequest(w, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = l
	}

	similar, err := h.svc.Similar(name, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, similar)
}

// cardName returns the {name} path parameter, unescaping names that contain
// reserved characters.
func cardName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
