package recommendations

import (
	"github.com/ramonehamilton/clash-synergy/internal/royale/features"
	"github.com/ramonehamilton/clash-synergy/internal/royale/gaps"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// Blend weights for the synergy score.
const (
	SimilarityWeight = 0.6
	GapWeight        = 0.4
)

// ScoreFactors breaks a synergy score into its components.
type ScoreFactors struct {
	Similarity float64     `json:"similarity"`
	GapBonus   float64     `json:"gap_bonus"`
	Roles      []gaps.Role `json:"roles"`
}

// Blend combines similarity and gap bonus into a synergy score.
func Blend(similarity, gapBonus float64) float64 {
	return SimilarityWeight*similarity + GapWeight*gapBonus
}

// scorer evaluates candidates against one fixed selection. The selection's
// mean vector and role coverage are computed once and reused per candidate.
type scorer struct {
	mean     []float64
	coverage gaps.Coverage
}

func newScorer(selected []*models.Card, vectors [][]float64) *scorer {
	return &scorer{
		mean:     features.Mean(vectors),
		coverage: gaps.Analyze(selected),
	}
}

func (s *scorer) score(candidate *models.Card, vector []float64) (float64, *ScoreFactors) {
	if s.mean == nil {
		return 0, &ScoreFactors{Roles: []gaps.Role{}}
	}

	filled := s.coverage.Filled(candidate)
	if filled == nil {
		filled = []gaps.Role{}
	}
	factors := &ScoreFactors{
		Similarity: features.CosineSimilarity(s.mean, vector),
		GapBonus:   gaps.BonusFor(filled),
		Roles:      filled,
	}
	return Blend(factors.Similarity, factors.GapBonus), factors
}
