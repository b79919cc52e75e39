// Package stats defines the four base attributes and the tier table that
// maps a raw attribute value to a signed roll modifier.
package stats

import (
	"fmt"
	"strings"
)

// Attribute names one of the four base character attributes.
type Attribute string

const (
	Physical   Attribute = "Physical"
	Dexterity  Attribute = "Dexterity"
	Mental     Attribute = "Mental"
	Perception Attribute = "Perception"
)

// All lists the attributes in display order.
var All = []Attribute{Physical, Dexterity, Mental, Perception}

// ParseAttribute resolves a case-insensitive attribute name.
//
// Postcondition: Returns a member of All, or an error for unknown names.
func ParseAttribute(s string) (Attribute, error) {
	for _, a := range All {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown attribute %q", s)
}

// Attributes holds a character's base attribute values.
type Attributes struct {
	Physical   int `json:"physical" yaml:"physical"`
	Dexterity  int `json:"dexterity" yaml:"dexterity"`
	Mental     int `json:"mental" yaml:"mental"`
	Perception int `json:"perception" yaml:"perception"`
}

// Get returns the value of attribute a, or 0 for an unknown attribute.
func (s Attributes) Get(a Attribute) int {
	switch a {
	case Physical:
		return s.Physical
	case Dexterity:
		return s.Dexterity
	case Mental:
		return s.Mental
	case Perception:
		return s.Perception
	default:
		return 0
	}
}

// Add returns a copy of s with delta added to attribute a. Unknown
// attributes leave s unchanged.
func (s Attributes) Add(a Attribute, delta int) Attributes {
	switch a {
	case Physical:
		s.Physical += delta
	case Dexterity:
		s.Dexterity += delta
	case Mental:
		s.Mental += delta
	case Perception:
		s.Perception += delta
	}
	return s
}

// Validate reports whether every attribute is a positive integer.
func (s Attributes) Validate() error {
	for _, a := range All {
		if v := s.Get(a); v < 1 {
			return fmt.Errorf("attribute %s must be >= 1, got %d", a, v)
		}
	}
	return nil
}

// Default tier bounds. Values outside the bounds are clamped before lookup.
const (
	DefaultTierMin = 1
	DefaultTierMax = 7
)

// TierTable maps raw attribute values to roll modifiers with the step
// function modifier = 2*(value-2), after clamping value to [MinValue, MaxValue].
type TierTable struct {
	MinValue int
	MaxValue int
}

// DefaultTierTable returns the table with the standard 1..7 bounds.
func DefaultTierTable() TierTable {
	return TierTable{MinValue: DefaultTierMin, MaxValue: DefaultTierMax}
}

// Modifier returns the roll modifier for a raw attribute value.
// 1 → -2, 2 → 0, 3 → +2, 5 → +6.
//
// Postcondition: Modifier is monotonic non-decreasing in value.
func (t TierTable) Modifier(value int) int {
	if t.MaxValue >= t.MinValue {
		if value < t.MinValue {
			value = t.MinValue
		}
		if value > t.MaxValue {
			value = t.MaxValue
		}
	}
	return 2 * (value - 2)
}
