// Package character defines the character state snapshot and the pure
// operations that advance it: turn processing, scene end, and effect
// application.
package character

import (
	"slices"
	"time"

	"github.com/cory-johannsen/rpcombat/internal/game/combat"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/rules"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// State is one character's combat-relevant snapshot.
//
// ID is assigned by the persistence layer. Live is derived from Effects and
// is rebuilt by every operation in this package.
type State struct {
	ID   string
	Name string

	Attributes stats.Attributes
	MaxHP      int
	CurrentHP  int

	Effects []effect.Active
	Live    effect.LiveStats

	// Roleplay is set while the character is in roleplay mode.
	Roleplay bool
	// Powers lists the ability and perk ids the character owns.
	Powers []string

	UpdatedAt time.Time
}

// Unconscious reports whether the character has no hit points left.
func (s State) Unconscious() bool {
	return s.CurrentHP == 0
}

// HasPower reports whether id is among the character's owned powers.
func (s State) HasPower(id string) bool {
	return slices.Contains(s.Powers, id)
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Effects = effect.CloneAll(s.Effects)
	out.Powers = slices.Clone(s.Powers)
	out.Live = effect.LiveStats{
		DamageReduction: s.Live.DamageReduction,
	}
	if s.Live.Stats != nil {
		out.Live.Stats = make(map[string]int, len(s.Live.Stats))
		for k, v := range s.Live.Stats {
			out.Live.Stats[k] = v
		}
	}
	if s.Live.Controls != nil {
		out.Live.Controls = make(map[string]string, len(s.Live.Controls))
		for k, v := range s.Live.Controls {
			out.Live.Controls[k] = v
		}
	}
	return out
}

// EffectiveAttributes returns the base attributes plus every StatValue
// contribution in Live.
func (s State) EffectiveAttributes() stats.Attributes {
	out := s.Attributes
	for _, a := range stats.All {
		out = out.Add(a, s.Live.StatValue(string(a)))
	}
	return out
}

// Contestant returns the snapshot s rolls checks with.
func (s State) Contestant() combat.Contestant {
	return combat.Contestant{ID: s.ID, Attributes: s.Attributes, Live: s.Live}
}

// Rebuild returns a copy of s whose Live is recomputed from Effects.
func (s State) Rebuild(catalog effect.Catalog) State {
	out := s.Clone()
	out.Live = effect.Aggregate(out.Effects, catalog)
	return out
}

// Validate reports whether s satisfies the state invariants every engine
// operation assumes on entry.
//
// Postcondition: Returns nil or a *rules.InvariantViolation.
func (s State) Validate() error {
	if s.MaxHP < 0 {
		return rules.Invariantf("hp_range", "character %q has negative maxHP %d", s.ID, s.MaxHP)
	}
	if s.CurrentHP < 0 || s.CurrentHP > s.MaxHP {
		return rules.Invariantf("hp_range", "character %q has currentHP %d outside [0,%d]", s.ID, s.CurrentHP, s.MaxHP)
	}
	for _, a := range s.Effects {
		if !a.Duration.IsScene() && a.Duration.Remaining() <= 0 {
			return rules.Invariantf("positive_turns", "character %q holds effect %q with %s", s.ID, a.EffectID, a.Duration)
		}
	}
	return nil
}
