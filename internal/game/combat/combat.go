// Package combat resolves ability checks and attacks and computes damage
// and healing. Every function is pure; randomness comes from the
// dice.Source passed to each call.
package combat

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// DefaultTN is the target number for fixed checks and the base of
// stat-versus-stat target numbers.
const DefaultTN = 10

// Shape selects how a check is resolved.
// The zero value (ShapeNone) always succeeds without rolling.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeFixed
	ShapeVsStat
	ShapeContested
)

// String returns the catalog name of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeFixed:
		return "fixed"
	case ShapeVsStat:
		return "vs_stat"
	case ShapeContested:
		return "contested"
	default:
		return "unknown"
	}
}

// ParseShape resolves a case-insensitive shape name. The empty string is
// ShapeNone.
func ParseShape(s string) (Shape, error) {
	if s == "" {
		return ShapeNone, nil
	}
	for _, sh := range []Shape{ShapeNone, ShapeFixed, ShapeVsStat, ShapeContested} {
		if strings.EqualFold(sh.String(), s) {
			return sh, nil
		}
	}
	return ShapeNone, fmt.Errorf("unknown check shape %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML decoding.
func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Contestant is the stat snapshot one side of a check rolls with.
type Contestant struct {
	ID         string
	Attributes stats.Attributes
	Live       effect.LiveStats
}

// EffectiveStat returns the base attribute plus any StatValue contribution
// from active effects.
func (c Contestant) EffectiveStat(a stats.Attribute) int {
	return c.Attributes.Get(a) + c.Live.StatValue(string(a))
}

// Modifier is one signed term of a roll with its provenance.
type Modifier struct {
	// Source is "tier", "roll_bonus", or "skill".
	Source string
	Stat   stats.Attribute
	Value  int
}

// Side is one d20 roll plus its modifiers.
//
// Invariant: Total == Die + sum(Modifiers[i].Value).
type Side struct {
	ContestantID string
	Die          int
	Modifiers    []Modifier
	Total        int
}

// ModifierTotal returns the sum of all modifiers.
func (s Side) ModifierTotal() int {
	sum := 0
	for _, m := range s.Modifiers {
		sum += m.Value
	}
	return sum
}

// CheckResult is the structured breakdown of one check, sufficient to
// render a trace without re-deriving arithmetic.
type CheckResult struct {
	Shape Shape
	Roll  Side
	// TN is the target number for fixed and stat-versus-stat checks.
	TN int
	// Opposed is the defender's roll for contested checks.
	Opposed *Side
	Success bool
	// Critical is set when a natural 20 succeeds; damage doubles before reduction.
	Critical bool
	// CriticalMiss is set when the attacker rolls a natural 1.
	CriticalMiss bool
}

// AutoSuccess is the result of a ShapeNone check.
func AutoSuccess(casterID string) CheckResult {
	return CheckResult{Shape: ShapeNone, Roll: Side{ContestantID: casterID}, Success: true}
}
