// Package effect defines effect definitions, active effect instances, and
// the LiveStats aggregation derived from them.
package effect

import (
	"fmt"
	"strings"
)

// Category is the closed set of effect kinds.
// The zero value is intentionally invalid.
type Category int

const (
	CategoryUnknown Category = iota
	StatModifier
	Defense
	Control
	Heal
	Damage
	Utility
	Special
)

var categoryNames = map[Category]string{
	StatModifier: "stat_modifier",
	Defense:      "defense",
	Control:      "control",
	Heal:         "heal",
	Damage:       "damage",
	Utility:      "utility",
	Special:      "special",
}

// String returns the catalog name of the category.
func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unknown"
}

// ParseCategory resolves a catalog category name.
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for c, name := range categoryNames {
		if name == norm {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown effect category %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML and JSON.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ModifierType selects how a StatModifier or Defense magnitude is keyed.
type ModifierType int

const (
	// StatValue modifies the stat itself; LiveStats key is the stat name.
	StatValue ModifierType = iota
	// RollBonus modifies rolls using the stat; LiveStats key is stat+"_rollbonus".
	RollBonus
)

// RollBonusSuffix is appended to a stat name for RollBonus LiveStats keys.
const RollBonusSuffix = "_rollbonus"

// String returns the catalog name of the modifier type.
func (m ModifierType) String() string {
	if m == RollBonus {
		return "roll_bonus"
	}
	return "stat_value"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ModifierType) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "stat_value", "statvalue":
		*m = StatValue
	case "roll_bonus", "rollbonus":
		*m = RollBonus
	default:
		return fmt.Errorf("unknown modifier type %q", string(b))
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m ModifierType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Key returns the LiveStats key for stat under this modifier type.
func (m ModifierType) Key(stat string) string {
	if m == RollBonus {
		return stat + RollBonusSuffix
	}
	return stat
}
