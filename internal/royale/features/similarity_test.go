package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 1}, []float64{-1, -1}, -1},
		{"zero norm", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-12)
		})
	}
}

func TestMean(t *testing.T) {
	assert.Nil(t, Mean(nil))
	assert.Equal(t, []float64{2, 3}, Mean([][]float64{{1, 2}, {3, 4}}))
}

func TestSimilarity_OrderIndependent(t *testing.T) {
	a := []float64{1, 0, 0.5}
	b := []float64{0, 1, -0.5}
	c := []float64{1, 1, 2}
	cand := []float64{0.3, 0.7, 1}

	s1 := Similarity([][]float64{a, b, c}, cand)
	s2 := Similarity([][]float64{c, a, b}, cand)
	assert.InDelta(t, s1, s2, 1e-12)
}

func TestSimilarity_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, Similarity(nil, []float64{1, 2}))

	// Mean of opposing vectors is the zero vector.
	s := Similarity([][]float64{{1, -1}, {-1, 1}}, []float64{1, 1})
	assert.Equal(t, 0.0, s)
	assert.False(t, math.IsNaN(s))
}

func TestSimilarity_DuplicatesWeightTheMean(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	cand := []float64{1, 0}

	once := Similarity([][]float64{a, b}, cand)
	twice := Similarity([][]float64{a, a, b}, cand)
	assert.NotEqual(t, once, twice)
}
