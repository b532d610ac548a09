package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ramonehamilton/clash-synergy/internal/storage"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// CardRepository stores the raw card catalog.
type CardRepository interface {
	// ListCards returns every card in catalog order.
	ListCards(ctx context.Context) ([]*models.Card, error)

	// ReplaceAll swaps the stored catalog for cards, keeping their order.
	ReplaceAll(ctx context.Context, cards []*models.Card) error

	// Count returns the number of stored cards.
	Count(ctx context.Context) (int, error)
}

type cardRepo struct {
	db *storage.DB
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *storage.DB) CardRepository {
	return &cardRepo{db: db}
}

const cardColumns = `name, type, mobility, targets, attack_type, rarity, group_card, elixir_cost, hitpoints, usage, icon_urls`

// ListCards returns every card ordered by its catalog position.
func (r *cardRepo) ListCards(ctx context.Context) ([]*models.Card, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}

	return cards, nil
}

// ReplaceAll deletes the stored catalog and inserts cards in one transaction.
func (r *cardRepo) ReplaceAll(ctx context.Context, cards []*models.Card) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards`); err != nil {
			return fmt.Errorf("failed to clear cards: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cards (position, `+cardColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, c := range cards {
			_, err := stmt.ExecContext(ctx, i,
				c.Name, c.Type, c.Mobility, c.Targets, c.AttackType, c.Rarity,
				boolToInt(c.GroupCard), c.ElixirCost, c.Hitpoints, c.Usage, c.IconURLs,
			)
			if err != nil {
				return fmt.Errorf("failed to insert card %q: %w", c.Name, err)
			}
		}
		return nil
	})
}

// Count returns the number of stored cards.
func (r *cardRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

func scanCard(rows *sql.Rows) (*models.Card, error) {
	var c models.Card
	var group int
	err := rows.Scan(&c.Name, &c.Type, &c.Mobility, &c.Targets, &c.AttackType, &c.Rarity,
		&group, &c.ElixirCost, &c.Hitpoints, &c.Usage, &c.IconURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	c.GroupCard = group != 0
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
