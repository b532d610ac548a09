// Package catalog holds the immutable card catalog and the loaders that build it.
package catalog

import (
	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// Catalog is an ordered, read-only set of cards with unique names.
// It is never modified after New returns.
type Catalog struct {
	cards []*models.Card
	index map[string]int
}

// New builds a catalog from cards in the given order.
// Names must be non-empty and unique.
func New(cards []*models.Card) (*Catalog, error) {
	if len(cards) == 0 {
		return nil, errs.Configurationf("catalog is empty")
	}

	c := &Catalog{
		cards: make([]*models.Card, len(cards)),
		index: make(map[string]int, len(cards)),
	}
	for i, card := range cards {
		if card == nil {
			return nil, errs.Configurationf("card at row %d is nil", i)
		}
		if card.Name == "" {
			return nil, errs.Configurationf("card at row %d has no name", i)
		}
		if _, dup := c.index[card.Name]; dup {
			return nil, errs.Configurationf("duplicate card name %q", card.Name)
		}
		cp := *card
		c.cards[i] = &cp
		c.index[card.Name] = i
	}

	return c, nil
}

// Len returns the number of cards.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// At returns the card at position i.
func (c *Catalog) At(i int) *models.Card {
	return c.cards[i]
}

// Index returns the catalog position of the named card.
func (c *Catalog) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Lookup returns the named card. Names match exactly, case-sensitive.
func (c *Catalog) Lookup(name string) (*models.Card, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.cards[i], true
}

// Cards returns the cards in catalog order. The returned slice is a copy;
// the cards themselves are shared and must not be modified.
func (c *Catalog) Cards() []*models.Card {
	out := make([]*models.Card, len(c.cards))
	copy(out, c.cards)
	return out
}

// Names returns card names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.cards))
	for i, card := range c.cards {
		names[i] = card.Name
	}
	return names
}
