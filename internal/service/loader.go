package service

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/clash-synergy/internal/royale/catalog"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
	"github.com/ramonehamilton/clash-synergy/internal/storage/repository"
)

// Loader fetches the raw card table an index is built from.
type Loader interface {
	Load(ctx context.Context) ([]*models.Card, error)
	// Source describes where cards come from, for logs.
	Source() string
}

// CSVLoader reads the catalog from a CSV file.
type CSVLoader struct {
	Path string
}

// Load reads and parses the CSV file.
func (l *CSVLoader) Load(ctx context.Context) ([]*models.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return catalog.LoadCSVFile(l.Path)
}

// Source returns the CSV path.
func (l *CSVLoader) Source() string {
	return "csv:" + l.Path
}

// RepositoryLoader reads the catalog from the SQLite store.
type RepositoryLoader struct {
	Repo repository.CardRepository
}

// Load lists the stored cards in catalog order and applies the missing-value
// policy so rows written by other tools are treated like CSV input.
func (l *RepositoryLoader) Load(ctx context.Context) ([]*models.Card, error) {
	cards, err := l.Repo.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored cards: %w", err)
	}
	catalog.Sanitize(cards)
	return cards, nil
}

// Source identifies the SQLite store.
func (l *RepositoryLoader) Source() string {
	return "sqlite"
}

// StaticLoader serves a fixed card table.
type StaticLoader []*models.Card

// Load returns the fixed cards.
func (l StaticLoader) Load(context.Context) ([]*models.Card, error) {
	return l, nil
}

// Source identifies an in-memory table.
func (l StaticLoader) Source() string {
	return "static"
}
