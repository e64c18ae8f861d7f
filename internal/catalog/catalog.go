// Package catalog provides a read-only lookup of unit definitions.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed units.json
var embeddedUnits []byte

// Rarity is the drop/cost tier of a unit definition.
type Rarity string

const (
	RarityN   Rarity = "N"
	RarityR   Rarity = "R"
	RaritySR  Rarity = "SR"
	RaritySSR Rarity = "SSR"
	RarityUR  Rarity = "UR"
)

// defaultSpawnCooldownMs by rarity,
var defaultSpawnCooldownMs = map[Rarity]int{
	RarityN:   2000,
	RarityR:   4000,
	RaritySR:  6000,
	RaritySSR: 8000,
	RarityUR:  10000,
}

// UnitDefinition is an immutable catalog entry.
type UnitDefinition struct {
	ID               string  `json:"id"`
	Rarity           Rarity  `json:"rarity"`
	Cost             int     `json:"cost"`
	MaxHP            int     `json:"max_hp"`
	Speed            float64 `json:"speed"`
	AttackDamage     int     `json:"attack_damage"`
	AttackRange      float64 `json:"attack_range"`
	AttackCooldownMs int     `json:"attack_cooldown_ms"`
	AttackWindupMs   int     `json:"attack_windup_ms"`
	SpawnCooldownMs  int     `json:"spawn_cooldown_ms,omitempty"`
	Knockback        float64 `json:"knockback"`
	IsBoss           bool    `json:"is_boss,omitempty"`
	Scale            float64 `json:"scale,omitempty"`
}

// EffectiveSpawnCooldownMs returns the configured cooldown, or the
// rarity-derived default (3000 for unknown rarities) when unset.
func (d UnitDefinition) EffectiveSpawnCooldownMs() int {
	if d.SpawnCooldownMs > 0 {
		return d.SpawnCooldownMs
	}
	if ms, ok := defaultSpawnCooldownMs[d.Rarity]; ok {
		return ms
	}
	return 3000
}

// EffectiveScale returns Scale, defaulting to 1.0.
func (d UnitDefinition) EffectiveScale() float64 {
	if d.Scale <= 0 {
		return 1.0
	}
	return d.Scale
}

// UnitWidth is 60 * scale,
func (d UnitDefinition) UnitWidth() float64 {
	return 60 * d.EffectiveScale()
}

// Catalog holds all unit definitions, keyed by id.
type Catalog struct {
	units map[string]UnitDefinition
}

type fileFormat struct {
	Units []UnitDefinition `json:"units"`
}

// Load builds a Catalog from the embedded default unit data file.
func Load() (*Catalog, error) {
	return parse(embeddedUnits)
}

// LoadFromFile builds a Catalog from a JSON file on disk, overriding the
// embedded defaults. Useful for operators tuning unit balance without a
// rebuild.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	c := &Catalog{units: make(map[string]UnitDefinition, len(ff.Units))}
	for _, u := range ff.Units {
		c.units[u.ID] = u
	}
	return c, nil
}

// Lookup returns the definition for id, and whether it was found.
func (c *Catalog) Lookup(id string) (UnitDefinition, bool) {
	def, ok := c.units[id]
	return def, ok
}

// IsValid reports whether id names a known unit.
func (c *Catalog) IsValid(id string) bool {
	_, ok := c.units[id]
	return ok
}

// All returns every unit definition, order unspecified.
func (c *Catalog) All() []UnitDefinition {
	defs := make([]UnitDefinition, 0, len(c.units))
	for _, d := range c.units {
		defs = append(defs, d)
	}
	return defs
}
