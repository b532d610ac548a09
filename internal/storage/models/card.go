package models

// Card is a single entry in the card catalog.
//
// Field names mirror the dataset columns so the same struct serves CSV ingestion,
// the SQLite catalog store and the REST payloads.
type Card struct {
	Name       string  `json:"name" toml:"name"`
	Type       string  `json:"type" toml:"type"`
	Mobility   string  `json:"mobility" toml:"mobility"`
	Targets    string  `json:"targets" toml:"targets"`
	AttackType string  `json:"attack_type" toml:"attack_type"`
	Rarity     string  `json:"rarity" toml:"rarity"`
	GroupCard  bool    `json:"groupCard" toml:"group_card"`
	ElixirCost float64 `json:"elixirCost" toml:"elixir_cost"`
	Hitpoints  float64 `json:"hitpoints" toml:"hitpoints"`
	Usage      float64 `json:"usage" toml:"usage"`
	IconURLs   string  `json:"iconUrls,omitempty" toml:"icon_urls"`
}

// Card type values that carry meaning for role detection.
const (
	CardTypeTroop    = "troop"
	CardTypeBuilding = "building"
	CardTypeSpell    = "spell"
)

// Targeting, mobility and attack values that carry meaning for role detection.
const (
	TargetsAir       = "air"
	TargetsBoth      = "both"
	MobilityFlying   = "flying"
	AttackTypeSplash = "splash"
)
