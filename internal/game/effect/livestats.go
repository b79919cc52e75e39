package effect

import "time"

// LiveStats is the flattened view of a character's active effects. It is
// always rebuilt by Aggregate and never patched in place.
type LiveStats struct {
	// Stats holds StatModifier contributions keyed by stat name or
	// stat name + RollBonusSuffix.
	Stats map[string]int `json:"stats"`
	// Controls maps a control-type identifier to the winning effect's
	// display name.
	Controls map[string]string `json:"controls"`
	// DamageReduction is the sum of all active Defense magnitudes.
	DamageReduction int `json:"damage_reduction"`
}

// IsEmpty reports whether no effect contributes anything.
func (l LiveStats) IsEmpty() bool {
	return len(l.Stats) == 0 && len(l.Controls) == 0 && l.DamageReduction == 0
}

// StatValue returns the StatValue contribution for stat.
func (l LiveStats) StatValue(stat string) int {
	return l.Stats[StatValue.Key(stat)]
}

// RollBonus returns the RollBonus contribution for stat.
func (l LiveStats) RollBonus(stat string) int {
	return l.Stats[RollBonus.Key(stat)]
}

// Control returns the active effect name for a control type.
func (l LiveStats) Control(controlType string) (string, bool) {
	name, ok := l.Controls[controlType]
	return name, ok
}

// Aggregate derives LiveStats from an ordered effect sequence.
//
// StatModifier values with the same key accumulate; different keys never
// combine. Defense magnitudes accumulate into DamageReduction. When two
// Control effects share a control type, the most recently applied wins and
// equal AppliedAt values resolve to the later position in the sequence.
// Utility, Special, Heal and Damage contribute nothing. Numeric entries equal
// to catalog.Neutral() are pruned. Instances whose definition is missing from
// the catalog are skipped.
//
// Postcondition: Aggregate is a pure function of (effects, catalog).
func Aggregate(effects []Active, catalog Catalog) LiveStats {
	live := LiveStats{
		Stats:    make(map[string]int),
		Controls: make(map[string]string),
	}
	controlAt := make(map[string]time.Time)

	for _, a := range effects {
		def, ok := catalog.Effect(a.EffectID)
		if !ok {
			continue
		}
		switch def.Category {
		case StatModifier:
			live.Stats[def.ModifierType.Key(def.Stat)] += def.Magnitude
		case Defense:
			live.DamageReduction += def.Magnitude
		case Control:
			if at, seen := controlAt[def.ControlType]; seen && a.AppliedAt.Before(at) {
				continue
			}
			controlAt[def.ControlType] = a.AppliedAt
			live.Controls[def.ControlType] = a.Name
		case Heal, Damage, Utility, Special:
		case CategoryUnknown:
		}
	}

	neutral := catalog.Neutral()
	for k, v := range live.Stats {
		if v == neutral {
			delete(live.Stats, k)
		}
	}
	return live
}
