// Package features turns cards into fixed-width numeric feature vectors and
// compares them.
package features

import (
	"math"
	"sort"

	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// Categorical attributes, in layout order.
var categoricalAttributes = []struct {
	name  string
	value func(*models.Card) string
}{
	{"type", func(c *models.Card) string { return c.Type }},
	{"mobility", func(c *models.Card) string { return c.Mobility }},
	{"targets", func(c *models.Card) string { return c.Targets }},
	{"attack_type", func(c *models.Card) string { return c.AttackType }},
	{"rarity", func(c *models.Card) string { return c.Rarity }},
}

// Numeric attributes, in layout order.
var numericAttributes = []struct {
	name  string
	value func(*models.Card) float64
}{
	{"elixirCost", func(c *models.Card) float64 { return c.ElixirCost }},
	{"hitpoints", func(c *models.Card) float64 { return c.Hitpoints }},
	{"usage", func(c *models.Card) float64 { return c.Usage }},
}

const groupCardColumn = "groupCard"

// NormalizationStats holds the per-attribute standardization parameters fitted
// over the catalog.
type NormalizationStats struct {
	Names   []string  `json:"names"`
	Means   []float64 `json:"means"`
	StdDevs []float64 `json:"stddevs"`
}

// vocabulary is the fitted one-hot block for one categorical attribute.
type vocabulary struct {
	attribute string
	offset    int
	values    []string
	columns   map[string]int // value -> column offset within the block
}

// Encoder is the fitted attribute encoder. Its layout and statistics are fixed
// at Fit time and every Encode call applies them unchanged, so an Encoder is safe
// for concurrent use.
//
// Layout: one-hot blocks for type, mobility, targets, attack_type and rarity
// (values sorted within each block), then groupCard, then the standardized
// elixirCost, hitpoints and usage.
type Encoder struct {
	vocabs       []vocabulary
	flagOffset   int
	numOffset    int
	width        int
	means        []float64
	stddevs      []float64
	columnLabels []string
}

// Fit builds an encoder from the full catalog.
//
// Empty categorical values get no column and encode as an all-zero block. A
// categorical attribute that is empty on every card is treated as a missing
// column. Numeric statistics use the population standard deviation; an attribute
// with zero spread normalizes to 0 for every card.
func Fit(cards []*models.Card) (*Encoder, error) {
	if len(cards) == 0 {
		return nil, errs.Configurationf("cannot fit encoder on an empty catalog")
	}
	for i, c := range cards {
		if c == nil {
			return nil, errs.Configurationf("card at row %d is nil", i)
		}
	}

	e := &Encoder{}

	offset := 0
	for _, attr := range categoricalAttributes {
		seen := make(map[string]struct{})
		for _, c := range cards {
			if v := attr.value(c); v != "" {
				seen[v] = struct{}{}
			}
		}
		if len(seen) == 0 {
			return nil, errs.Configurationf("catalog has no values for attribute %q", attr.name)
		}

		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)

		vocab := vocabulary{
			attribute: attr.name,
			offset:    offset,
			values:    values,
			columns:   make(map[string]int, len(values)),
		}
		for i, v := range values {
			vocab.columns[v] = i
			e.columnLabels = append(e.columnLabels, attr.name+"_"+v)
		}
		e.vocabs = append(e.vocabs, vocab)
		offset += len(values)
	}

	e.flagOffset = offset
	e.columnLabels = append(e.columnLabels, groupCardColumn)
	offset++

	e.numOffset = offset
	n := float64(len(cards))
	for _, attr := range numericAttributes {
		var sum float64
		for _, c := range cards {
			sum += finite(attr.value(c))
		}
		mean := sum / n

		var sq float64
		for _, c := range cards {
			d := finite(attr.value(c)) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / n)
		if math.IsNaN(std) || math.IsInf(std, 0) {
			std = 0
		}

		e.means = append(e.means, mean)
		e.stddevs = append(e.stddevs, std)
		e.columnLabels = append(e.columnLabels, attr.name)
	}
	offset += len(numericAttributes)

	e.width = offset
	return e, nil
}

// Width returns the encoded vector length K.
func (e *Encoder) Width() int {
	return e.width
}

// Columns returns the label of every vector component, in layout order.
func (e *Encoder) Columns() []string {
	out := make([]string, len(e.columnLabels))
	copy(out, e.columnLabels)
	return out
}

// Stats returns a copy of the fitted normalization parameters.
func (e *Encoder) Stats() NormalizationStats {
	names := make([]string, len(numericAttributes))
	for i, attr := range numericAttributes {
		names[i] = attr.name
	}
	means := make([]float64, len(e.means))
	copy(means, e.means)
	stddevs := make([]float64, len(e.stddevs))
	copy(stddevs, e.stddevs)
	return NormalizationStats{Names: names, Means: means, StdDevs: stddevs}
}

// Encode converts a card into a vector using the fitted layout and statistics.
// A categorical value that was not seen at Fit time leaves its whole block at zero.
func (e *Encoder) Encode(card *models.Card) []float64 {
	vec := make([]float64, e.width)
	if card == nil {
		return vec
	}

	for i, vocab := range e.vocabs {
		if col, ok := vocab.columns[categoricalAttributes[i].value(card)]; ok {
			vec[vocab.offset+col] = 1.0
		}
	}

	if card.GroupCard {
		vec[e.flagOffset] = 1.0
	}

	for i, attr := range numericAttributes {
		vec[e.numOffset+i] = e.standardize(i, attr.value(card))
	}

	return vec
}

func (e *Encoder) standardize(i int, v float64) float64 {
	std := e.stddevs[i]
	if std == 0 {
		return 0
	}
	z := (finite(v) - e.means[i]) / std
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}

// EncodeAll encodes cards row by row into a feature matrix. It cannot fail
// once the encoder is fitted.
func (e *Encoder) EncodeAll(cards []*models.Card) *FeatureMatrix {
	m := &FeatureMatrix{
		rows: len(cards),
		cols: e.width,
		data: make([]float64, len(cards)*e.width),
	}
	for i, c := range cards {
		copy(m.data[i*e.width:(i+1)*e.width], e.Encode(c))
	}
	return m
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
