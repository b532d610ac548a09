package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ramonehamilton/clash-synergy/internal/logging"
	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// Dataset column names.
const (
	ColName       = "name"
	ColType       = "type"
	ColMobility   = "mobility"
	ColTargets    = "targets"
	ColAttackType = "attack_type"
	ColRarity     = "rarity"
	ColGroupCard  = "groupCard"
	ColElixirCost = "elixirCost"
	ColHitpoints  = "hitpoints"
	ColUsage      = "usage"
	ColIconURLs   = "iconUrls"
)

// RequiredColumns lists the columns every catalog source must provide.
var RequiredColumns = []string{
	ColName, ColType, ColMobility, ColTargets, ColAttackType, ColRarity,
	ColGroupCard, ColElixirCost, ColHitpoints, ColUsage,
}

// LoadCSVFile reads a card catalog from a CSV file.
func LoadCSVFile(path string) ([]*models.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return LoadCSV(file)
}

// LoadCSV reads a card catalog from CSV. Column order is taken from the header;
// extra columns are ignored. Missing numeric values become 0 (see Number).
func LoadCSV(r io.Reader) ([]*models.Card, error) {
	log := logging.Component("catalog")

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.Configurationf("catalog file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var cards []*models.Card
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		card := cols.card(row)
		if card.Name == "" {
			log.Warn().Int("line", line).Msg("skipping card row without a name")
			continue
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		return nil, errs.Configurationf("catalog has no cards")
	}

	log.Debug().Int("cards", len(cards)).Msg("parsed catalog CSV")
	return cards, nil
}

type columns map[string]int

func parseHeader(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, col := range header {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}

	for _, req := range RequiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, errs.Configurationf("catalog is missing required column %q", req)
		}
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (c columns) card(row []string) *models.Card {
	return &models.Card{
		Name:       c.get(row, ColName),
		Type:       c.get(row, ColType),
		Mobility:   c.get(row, ColMobility),
		Targets:    c.get(row, ColTargets),
		AttackType: c.get(row, ColAttackType),
		Rarity:     c.get(row, ColRarity),
		GroupCard:  Flag(c.get(row, ColGroupCard)),
		ElixirCost: Number(c.get(row, ColElixirCost)),
		Hitpoints:  Number(c.get(row, ColHitpoints)),
		Usage:      Number(c.get(row, ColUsage)),
		IconURLs:   c.get(row, ColIconURLs),
	}
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Number applies the catalog's missing-value policy to a numeric field:
// empty, unparsable, NaN, infinite and negative values all become 0.
func Number(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Flag parses a boolean dataset field. Anything other than a true value is false.
func Flag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "t":
		return true
	default:
		// "1.0" shows up when pandas round-trips the column as float.
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		return err == nil && !math.IsNaN(v) && v != 0
	}
}

// Sanitize applies the numeric missing-value policy to cards that did not come
// through LoadCSV (for example rows read from the catalog store).
func Sanitize(cards []*models.Card) {
	for _, card := range cards {
		if card == nil {
			continue
		}
		card.ElixirCost = finite(card.ElixirCost)
		card.Hitpoints = finite(card.Hitpoints)
		card.Usage = finite(card.Usage)
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
