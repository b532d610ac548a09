package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

func testCatalog() []*models.Card {
	return []*models.Card{
		{Name: "A", Type: "troop", Mobility: "ground", Targets: "ground", AttackType: "single", Rarity: "common", ElixirCost: 3, Hitpoints: 1000},
		{Name: "B", Type: "building", Mobility: "ground", Targets: "ground", AttackType: "single", Rarity: "rare", ElixirCost: 4, Hitpoints: 1500},
		{Name: "C", Type: "troop", Mobility: "flying", Targets: "air", AttackType: "splash", Rarity: "common", ElixirCost: 2, Hitpoints: 300},
	}
}

func TestFit_Layout(t *testing.T) {
	enc, err := Fit(testCatalog())
	require.NoError(t, err)

	want := []string{
		"type_building", "type_troop",
		"mobility_flying", "mobility_ground",
		"targets_air", "targets_ground",
		"attack_type_single", "attack_type_splash",
		"rarity_common", "rarity_rare",
		"groupCard",
		"elixirCost", "hitpoints", "usage",
	}
	assert.Equal(t, want, enc.Columns())
	assert.Equal(t, len(want), enc.Width())
}

func TestEncode_OneHotAndFlag(t *testing.T) {
	cards := testCatalog()
	cards[2].GroupCard = true
	enc, err := Fit(cards)
	require.NoError(t, err)

	vec := enc.Encode(cards[2])
	oneHot := vec[:11]
	assert.Equal(t, []float64{0, 1, 1, 0, 1, 0, 0, 1, 1, 0, 1}, oneHot)
}

func TestEncode_WidthInvariant(t *testing.T) {
	cards := testCatalog()
	enc, err := Fit(cards)
	require.NoError(t, err)

	m := enc.EncodeAll(cards)
	require.Equal(t, len(cards), m.Rows())
	for i := 0; i < m.Rows(); i++ {
		assert.Len(t, m.Row(i), enc.Width())
	}
}

func TestEncode_Deterministic(t *testing.T) {
	cards := testCatalog()

	enc1, err := Fit(cards)
	require.NoError(t, err)
	enc2, err := Fit(cards)
	require.NoError(t, err)

	m1 := enc1.EncodeAll(cards)
	m2 := enc2.EncodeAll(cards)
	for i := 0; i < m1.Rows(); i++ {
		r1, r2 := m1.Row(i), m2.Row(i)
		for j := range r1 {
			assert.Equal(t, math.Float64bits(r1[j]), math.Float64bits(r2[j]), "row %d col %d", i, j)
		}
	}
}

func TestEncode_Standardized(t *testing.T) {
	cards := testCatalog()
	enc, err := Fit(cards)
	require.NoError(t, err)
	m := enc.EncodeAll(cards)

	col := enc.Width() - 2 // hitpoints
	var sum, sq float64
	for i := 0; i < m.Rows(); i++ {
		sum += m.At(i, col)
	}
	mean := sum / float64(m.Rows())
	for i := 0; i < m.Rows(); i++ {
		d := m.At(i, col) - mean
		sq += d * d
	}
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, sq/float64(m.Rows()), 1e-12)

	stats := enc.Stats()
	assert.Equal(t, []string{"elixirCost", "hitpoints", "usage"}, stats.Names)
	assert.InDelta(t, 3.0, stats.Means[0], 1e-12)
	assert.InDelta(t, 2800.0/3.0, stats.Means[1], 1e-9)
}

func TestEncode_ZeroStdDev(t *testing.T) {
	cards := testCatalog()
	enc, err := Fit(cards)
	require.NoError(t, err)

	// usage is 0 on every card.
	assert.Equal(t, 0.0, enc.Stats().StdDevs[2])
	m := enc.EncodeAll(cards)
	for i := 0; i < m.Rows(); i++ {
		v := m.At(i, enc.Width()-1)
		assert.Equal(t, 0.0, v)
		assert.False(t, math.IsNaN(v))
	}
}

func TestEncode_UnseenValueIsAllZero(t *testing.T) {
	enc, err := Fit(testCatalog())
	require.NoError(t, err)

	vec := enc.Encode(&models.Card{Name: "X", Type: "champion", Mobility: "ground", Targets: "ground", AttackType: "single", Rarity: "legendary"})
	assert.Equal(t, []float64{0, 0}, vec[0:2], "unseen type")
	assert.Equal(t, []float64{0, 0}, vec[8:10], "unseen rarity")
	assert.Equal(t, 1.0, vec[3], "known mobility still encoded")
}

func TestEncodeAll_OddRowsStayFinite(t *testing.T) {
	enc, err := Fit(testCatalog())
	require.NoError(t, err)

	odd := []*models.Card{
		{Name: "X", Type: "champion", Rarity: "legendary", ElixirCost: math.NaN(), Hitpoints: math.Inf(1)},
		{Name: "Y"},
	}
	m := enc.EncodeAll(odd)
	require.Equal(t, 2, m.Rows())
	require.Equal(t, enc.Width(), m.Cols())
	for i := 0; i < m.Rows(); i++ {
		for _, v := range m.Row(i) {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestEncode_EmptyValueHasNoColumn(t *testing.T) {
	cards := testCatalog()
	cards = append(cards, &models.Card{Name: "Zap", Type: "spell", AttackType: "splash", Rarity: "common", ElixirCost: 2})
	enc, err := Fit(cards)
	require.NoError(t, err)

	for _, label := range enc.Columns() {
		assert.NotEqual(t, "mobility_", label)
	}
	vec := enc.Encode(cards[3])
	assert.Equal(t, []float64{0, 0}, vec[3:5], "no mobility")
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		cards []*models.Card
	}{
		{"empty catalog", nil},
		{"nil card", []*models.Card{nil}},
		{"missing attribute", []*models.Card{{Name: "A", Type: "troop", Mobility: "ground", Targets: "ground", AttackType: "single"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.cards)
			var cfgErr *errs.ConfigurationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestFeatureMatrix_Select(t *testing.T) {
	cards := testCatalog()
	enc, err := Fit(cards)
	require.NoError(t, err)
	m := enc.EncodeAll(cards)

	rows := m.Select([]int{2, 0})
	require.Len(t, rows, 2)
	assert.Equal(t, m.Row(2), rows[0])
	assert.Equal(t, m.Row(0), rows[1])
	assert.Equal(t, enc.Width(), m.Cols())
}
