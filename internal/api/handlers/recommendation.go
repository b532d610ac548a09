package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ramonehamilton/clash-synergy/internal/api/response"
	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
)

// Limits bounds what a client may ask for.
type Limits struct {
	DefaultTopN int // used when top_n is omitted or 0
	MaxTopN     int // larger values are clamped
	MaxSelected int // more selected names is a 400
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		DefaultTopN: recommendations.DefaultTopN,
		MaxTopN:     200,
		MaxSelected: 8,
	}
}

// RecommendRequest is the body of POST /api/v1/recommendations.
type RecommendRequest struct {
	Cards []string `json:"cards" validate:"omitempty,dive,max=64"`
	TopN  int      `json:"top_n" validate:"gte=0"`
}

// RecommendResponse is the payload of a recommendation request.
type RecommendResponse struct {
	RequestID       string                            `json:"request_id"`
	SelectedCards   []string                          `json:"selected_cards"`
	Recommendations []*recommendations.Recommendation `json:"recommendations"`
}

// ExplainRequest is the body of POST /api/v1/recommendations/explain.
type ExplainRequest struct {
	Cards []string `json:"cards" validate:"omitempty,dive,max=64"`
	Card  string   `json:"card" validate:"required,max=64"`
}

// RecommendationHandler serves recommendation requests.
type RecommendationHandler struct {
	svc    Recommender
	limits Limits
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(svc Recommender, limits Limits) *RecommendationHandler {
	def := DefaultLimits()
	if limits.DefaultTopN < 1 {
		limits.DefaultTopN = def.DefaultTopN
	}
	if limits.MaxTopN < limits.DefaultTopN {
		limits.MaxTopN = limits.DefaultTopN
	}
	if limits.MaxSelected < 1 {
		limits.MaxSelected = def.MaxSelected
	}
	return &RecommendationHandler{svc: svc, limits: limits}
}

// Recommend ranks catalog cards for the selected cards.
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.checkSelection(req.Cards); err != nil {
		writeError(w, r, err)
		return
	}

	topN := req.TopN
	if topN == 0 {
		topN = h.limits.DefaultTopN
	}
	if topN > h.limits.MaxTopN {
		topN = h.limits.MaxTopN
	}

	result, err := h.svc.Recommend(req.Cards, topN)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, RecommendResponse{
		RequestID:       uuid.NewString(),
		SelectedCards:   result.SelectedCards,
		Recommendations: result.Recommendations,
	})
}

// Explain scores one candidate against the selected cards.
func (h *RecommendationHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.checkSelection(req.Cards); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.svc.Explain(req.Cards, req.Card)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, rec)
}

func (h *RecommendationHandler) checkSelection(cards []string) error {
	if len(cards) > h.limits.MaxSelected {
		return errs.Validationf("at most %d cards may be selected, got %d", h.limits.MaxSelected, len(cards))
	}
	return nil
}
