// Package gaps detects which functional roles a deck selection is missing and
// how well a candidate card fills them.
package gaps

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// Role is a functional category a deck may or may not cover.
type Role int

// Roles in evaluation order. Explanations list phrases in this order.
const (
	AirDefense Role = iota
	Splash
	Tank
	Building
	CheapCycle
	Spell
	Flying
)

// Thresholds for the stat-based roles.
const (
	TankHitpoints    = 2000.0 // strictly greater counts as a tank
	CheapCycleElixir = 2.0    // less than or equal counts as cheap cycle
)

// MaxBonus caps the gap bonus. The role weights sum to 1.2.
const MaxBonus = 1.0

// FallbackExplanation is used when a candidate fills no missing role.
const FallbackExplanation = "complements deck composition"

type roleDef struct {
	key    string
	weight float64
	phrase string
	// candidate reports whether a single card satisfies the role.
	candidate func(*models.Card) bool
}

var roles = []roleDef{
	AirDefense: {"air_defense", 0.30, "covers air defense", targetsAir},
	Splash:     {"splash", 0.20, "provides splash damage", isSplash},
	Tank:       {"tank", 0.20, "adds tank/building support", isTankOrBuilding},
	Building:   {"building", 0.15, "adds building defense", isBuilding},
	CheapCycle: {"cheap_cycle", 0.15, "cheap cycle support", isCheap},
	Spell:      {"spell", 0.10, "adds spell utility", isSpell},
	Flying:     {"flying", 0.10, "adds flying unit", isFlying},
}

// AllRoles returns every role in evaluation order.
func AllRoles() []Role {
	out := make([]Role, len(roles))
	for i := range roles {
		out[i] = Role(i)
	}
	return out
}

// String returns the role's machine key, e.g. "air_defense".
func (r Role) String() string {
	if r < 0 || int(r) >= len(roles) {
		return "unknown"
	}
	return roles[r].key
}

// Weight returns the bonus a candidate earns for filling this role.
func (r Role) Weight() float64 {
	return roles[r].weight
}

// Phrase returns the human-readable explanation for filling this role.
func (r Role) Phrase() string {
	return roles[r].phrase
}

// MarshalText encodes the role as its key.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a role key.
func (r *Role) UnmarshalText(text []byte) error {
	key := string(text)
	for i, def := range roles {
		if def.key == key {
			*r = Role(i)
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", key)
}

// Coverage records which roles a selection already covers.
type Coverage [7]bool

// Analyze computes role coverage for a selection.
//
// Every role is covered when any member satisfies it, except air defense, which
// needs some member targeting air (or both) and some member that is a troop or
// building. The two members need not be the same card.
func Analyze(selection []*models.Card) Coverage {
	var cov Coverage
	var hitsAir, hasUnit bool

	for _, c := range selection {
		if c == nil {
			continue
		}
		if targetsAir(c) {
			hitsAir = true
		}
		if c.Type == models.CardTypeTroop || c.Type == models.CardTypeBuilding {
			hasUnit = true
		}
		for r := Splash; int(r) < len(roles); r++ {
			if roles[r].candidate(c) {
				cov[r] = true
			}
		}
	}
	cov[AirDefense] = hitsAir && hasUnit

	return cov
}

// Covers reports whether the role is covered.
func (c Coverage) Covers(r Role) bool {
	return c[r]
}

// Missing returns the uncovered roles in evaluation order.
func (c Coverage) Missing() []Role {
	var out []Role
	for i, covered := range c {
		if !covered {
			out = append(out, Role(i))
		}
	}
	return out
}

// Filled returns the uncovered roles the candidate satisfies, in evaluation order.
func (c Coverage) Filled(candidate *models.Card) []Role {
	if candidate == nil {
		return nil
	}
	var out []Role
	for i, covered := range c {
		if !covered && roles[i].candidate(candidate) {
			out = append(out, Role(i))
		}
	}
	return out
}

// Bonus sums the weights of the filled roles, clamped to MaxBonus.
func (c Coverage) Bonus(candidate *models.Card) float64 {
	return BonusFor(c.Filled(candidate))
}

// Explain joins the phrases of the filled roles, or returns the fallback phrase.
func (c Coverage) Explain(candidate *models.Card) string {
	return ExplainFor(c.Filled(candidate))
}

// BonusFor sums role weights, clamped to MaxBonus.
func BonusFor(filled []Role) float64 {
	var bonus float64
	for _, r := range filled {
		bonus += r.Weight()
	}
	if bonus > MaxBonus {
		return MaxBonus
	}
	return bonus
}

// ExplainFor joins role phrases with ", ". It never returns an empty string.
func ExplainFor(filled []Role) string {
	if len(filled) == 0 {
		return FallbackExplanation
	}
	phrases := make([]string, len(filled))
	for i, r := range filled {
		phrases[i] = r.Phrase()
	}
	return strings.Join(phrases, ", ")
}

// Bonus scores how well candidate fills the selection's missing roles.
func Bonus(selection []*models.Card, candidate *models.Card) float64 {
	return Analyze(selection).Bonus(candidate)
}

// Explain describes which of the selection's missing roles candidate fills.
func Explain(selection []*models.Card, candidate *models.Card) string {
	return Analyze(selection).Explain(candidate)
}

func targetsAir(c *models.Card) bool {
	return c.Targets == models.TargetsAir || c.Targets == models.TargetsBoth
}

func isSplash(c *models.Card) bool {
	return c.AttackType == models.AttackTypeSplash
}

func isTankOrBuilding(c *models.Card) bool {
	return c.Hitpoints > TankHitpoints || isBuilding(c)
}

func isBuilding(c *models.Card) bool {
	return c.Type == models.CardTypeBuilding
}

func isCheap(c *models.Card) bool {
	return c.ElixirCost <= CheapCycleElixir
}

func isSpell(c *models.Card) bool {
	return c.Type == models.CardTypeSpell
}

func isFlying(c *models.Card) bool {
	return c.Mobility == models.MobilityFlying
}
