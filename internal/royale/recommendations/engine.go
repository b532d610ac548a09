// Package recommendations ranks catalog cards by how well they complement a
// partially built deck.
package recommendations

import (
	"sort"

	"github.com/ramonehamilton/clash-synergy/internal/royale/catalog"
	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/royale/features"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// DefaultTopN is used when the caller does not ask for a positive count.
const DefaultTopN = 10

// Recommendation is one ranked candidate with its score and explanation.
type Recommendation struct {
	Name         string        `json:"name"`
	SynergyScore float64       `json:"synergy_score"`
	Explanation  string        `json:"explanation"`
	ElixirCost   float64       `json:"elixirCost"`
	Type         string        `json:"type"`
	Rarity       string        `json:"rarity"`
	IconURLs     string        `json:"iconUrls"`
	Hitpoints    float64       `json:"hitpoints"`
	Usage        float64       `json:"usage"`
	Factors      *ScoreFactors `json:"factors,omitempty"`
}

// Result is the outcome of a recommendation request.
type Result struct {
	// SelectedCards is the deduplicated, validated selection actually used.
	SelectedCards   []string          `json:"selected_cards"`
	Recommendations []*Recommendation `json:"recommendations"`
}

// SimilarCard is a catalog card ranked by feature similarity to another card.
type SimilarCard struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
}

// Index is the immutable recommendation state: catalog, fitted encoder and
// feature matrix. Build it once with BuildIndex and share it; no method
// modifies it, so concurrent use needs no locking.
type Index struct {
	catalog *catalog.Catalog
	encoder *features.Encoder
	matrix  *features.FeatureMatrix
}

// BuildIndex validates the catalog, fits the encoder and encodes every card.
// Failures are *errs.ConfigurationError.
func BuildIndex(cards []*models.Card) (*Index, error) {
	cat, err := catalog.New(cards)
	if err != nil {
		return nil, err
	}

	ordered := cat.Cards()
	enc, err := features.Fit(ordered)
	if err != nil {
		return nil, err
	}

	return &Index{
		catalog: cat,
		encoder: enc,
		matrix:  enc.EncodeAll(ordered),
	}, nil
}

// Len returns the number of catalog cards.
func (ix *Index) Len() int {
	return ix.catalog.Len()
}

// Cards returns the catalog in order.
func (ix *Index) Cards() []*models.Card {
	return ix.catalog.Cards()
}

// Card looks up a card by exact name.
func (ix *Index) Card(name string) (*models.Card, bool) {
	return ix.catalog.Lookup(name)
}

// Encoder returns the fitted encoder.
func (ix *Index) Encoder() *features.Encoder {
	return ix.encoder
}

// Matrix returns the catalog feature matrix.
func (ix *Index) Matrix() *features.FeatureMatrix {
	return ix.matrix
}

// Vector returns the feature vector of a catalog card.
func (ix *Index) Vector(name string) ([]float64, bool) {
	i, ok := ix.catalog.Index(name)
	if !ok {
		return nil, false
	}
	return ix.matrix.Row(i), true
}

// resolve keeps the selected names present in the catalog, drops duplicates
// and returns their names and catalog positions in input order.
func (ix *Index) resolve(selected []string) ([]string, []int) {
	seen := make(map[int]struct{}, len(selected))
	names := make([]string, 0, len(selected))
	positions := make([]int, 0, len(selected))

	for _, name := range selected {
		i, ok := ix.catalog.Index(name)
		if !ok {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		names = append(names, name)
		positions = append(positions, i)
	}
	return names, positions
}

// validate resolves the selection and rejects it when nothing usable remains.
func (ix *Index) validate(selected []string) ([]string, []int, error) {
	if len(selected) == 0 {
		return nil, nil, errs.ErrNoCardsSelected
	}
	names, positions := ix.resolve(selected)
	if len(positions) == 0 {
		return nil, nil, errs.ErrNoValidCards
	}
	return names, positions, nil
}

func (ix *Index) scorerFor(positions []int) *scorer {
	selected := make([]*models.Card, len(positions))
	for i, p := range positions {
		selected[i] = ix.catalog.At(p)
	}
	return newScorer(selected, ix.matrix.Select(positions))
}

// GetRecommendations ranks every catalog card outside the selection.
//
// Unknown names are dropped silently; an empty selection fails with
// errs.ErrNoCardsSelected and a selection with no known names with
// errs.ErrNoValidCards. Equal scores keep catalog order. topN <= 0 means
// DefaultTopN; a topN above the candidate count returns every candidate.
func (ix *Index) GetRecommendations(selected []string, topN int) (*Result, error) {
	names, positions, err := ix.validate(selected)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	inSelection := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		inSelection[p] = struct{}{}
	}

	s := ix.scorerFor(positions)
	recs := make([]*Recommendation, 0, ix.catalog.Len()-len(positions))
	for i := 0; i < ix.catalog.Len(); i++ {
		if _, skip := inSelection[i]; skip {
			continue
		}
		recs = append(recs, ix.recommend(s, i))
	}

	sortRecommendations(recs)

	if len(recs) > topN {
		recs = recs[:topN]
	}

	return &Result{
		SelectedCards:   names,
		Recommendations: recs,
	}, nil
}

// ExplainCard scores a single candidate against the selection. The candidate
// may itself be part of the selection.
func (ix *Index) ExplainCard(selected []string, candidate string) (*Recommendation, error) {
	_, positions, err := ix.validate(selected)
	if err != nil {
		return nil, err
	}
	i, ok := ix.catalog.Index(candidate)
	if !ok {
		return nil, errs.Validationf("unknown card %q", candidate)
	}
	return ix.recommend(ix.scorerFor(positions), i), nil
}

// Score returns the synergy score of candidate against the selection.
// Unknown selection names are ignored and an empty selection scores 0.
func (ix *Index) Score(selected []string, candidate string) (float64, error) {
	i, ok := ix.catalog.Index(candidate)
	if !ok {
		return 0, errs.Validationf("unknown card %q", candidate)
	}
	_, positions := ix.resolve(selected)
	score, _ := ix.scorerFor(positions).score(ix.catalog.At(i), ix.matrix.Row(i))
	return score, nil
}

// SimilarCards ranks other catalog cards by cosine similarity to the named card.
func (ix *Index) SimilarCards(name string, limit int) ([]*SimilarCard, error) {
	target, ok := ix.catalog.Index(name)
	if !ok {
		return nil, errs.Validationf("unknown card %q", name)
	}
	if limit <= 0 {
		limit = DefaultTopN
	}

	vec := ix.matrix.Row(target)
	out := make([]*SimilarCard, 0, ix.catalog.Len()-1)
	for i := 0; i < ix.catalog.Len(); i++ {
		if i == target {
			continue
		}
		out = append(out, &SimilarCard{
			Name:       ix.catalog.At(i).Name,
			Similarity: features.CosineSimilarity(vec, ix.matrix.Row(i)),
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i, sc := range out {
		sc.Rank = i + 1
	}
	return out, nil
}

func (ix *Index) recommend(s *scorer, i int) *Recommendation {
	card := ix.catalog.At(i)
	score, factors := s.score(card, ix.matrix.Row(i))
	return &Recommendation{
		Name:         card.Name,
		SynergyScore: score,
		Explanation:  s.coverage.Explain(card),
		ElixirCost:   card.ElixirCost,
		Type:         card.Type,
		Rarity:       card.Rarity,
		IconURLs:     card.IconURLs,
		Hitpoints:    card.Hitpoints,
		Usage:        card.Usage,
		Factors:      factors,
	}
}

// sortRecommendations orders by score, highest first. The sort is stable so
// equal scores keep catalog order.
func sortRecommendations(recs []*Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SynergyScore > recs[j].SynergyScore
	})
}
