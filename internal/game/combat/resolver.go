package combat

import (
	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// rollSide rolls d20 for c using stat and appends the tier modifier, any
// live roll bonus for stat, and skillBonus when non-zero.
func rollSide(src dice.Source, c Contestant, stat stats.Attribute, skillBonus int, tier stats.TierTable) Side {
	s := Side{ContestantID: c.ID, Die: dice.D20(src)}
	s.Modifiers = append(s.Modifiers, Modifier{Source: "tier", Stat: stat, Value: tier.Modifier(c.EffectiveStat(stat))})
	if rb := c.Live.RollBonus(string(stat)); rb != 0 {
		s.Modifiers = append(s.Modifiers, Modifier{Source: "roll_bonus", Stat: stat, Value: rb})
	}
	if skillBonus != 0 {
		s.Modifiers = append(s.Modifiers, Modifier{Source: "skill", Stat: stat, Value: skillBonus})
	}
	s.Total = s.Die + s.ModifierTotal()
	return s
}

// ResolveFixed resolves d20 + caster modifier against a fixed target number.
//
// Precondition: src must be non-nil.
// Postcondition: Success iff Roll.Total >= tn.
func ResolveFixed(src dice.Source, caster Contestant, stat stats.Attribute, tn int, tier stats.TierTable) CheckResult {
	roll := rollSide(src, caster, stat, 0, tier)
	return CheckResult{
		Shape:   ShapeFixed,
		Roll:    roll,
		TN:      tn,
		Success: roll.Total >= tn,
	}
}

// ResolveVsStat resolves d20 + caster modifier against 10 plus the target's
// tier modifier for targetStat.
//
// Postcondition: TN == DefaultTN + tier.Modifier(target.EffectiveStat(targetStat)).
func ResolveVsStat(src dice.Source, caster Contestant, stat stats.Attribute, target Contestant, targetStat stats.Attribute, tier stats.TierTable) CheckResult {
	tn := DefaultTN + tier.Modifier(target.EffectiveStat(targetStat))
	r := ResolveFixed(src, caster, stat, tn, tier)
	r.Shape = ShapeVsStat
	return r
}

// ResolveContested resolves an opposed attack. The attacker rolls first,
// then the defender. The attack hits iff the attacker's total strictly
// exceeds the defender's: ties go to the defender. A natural 1 always
// misses; a natural 20 that hits is a critical.
//
// Precondition: src must be non-nil.
func ResolveContested(src dice.Source, attacker Contestant, attackStat stats.Attribute, skillBonus int, defender Contestant, defendStat stats.Attribute, tier stats.TierTable) CheckResult {
	atk := rollSide(src, attacker, attackStat, skillBonus, tier)
	def := rollSide(src, defender, defendStat, 0, tier)

	r := CheckResult{
		Shape:   ShapeContested,
		Roll:    atk,
		Opposed: &def,
	}
	switch {
	case atk.Die == 1:
		r.CriticalMiss = true
	case atk.Total > def.Total:
		r.Success = true
		r.Critical = atk.Die == 20
	}
	return r
}
