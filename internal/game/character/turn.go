package character

import (
	"fmt"

	"github.com/cory-johannsen/rpcombat/internal/game/combat"
	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// TurnContext carries the read-only collaborators turn processing and
// effect application evaluate formulas with.
type TurnContext struct {
	Catalog effect.Catalog
	Tier    stats.TierTable
	// Source rolls formula dice. It may be nil when no formula uses dice.
	Source dice.Source
	// Scripts evaluates scripted formula terms. It may be nil when no
	// formula uses a script.
	Scripts effect.ScriptEvaluator
}

// Tick is one heal-over-time or damage-over-time contribution.
type Tick struct {
	EffectID string
	Category effect.Category
	Amount   int
	Terms    []effect.FormulaTerm
}

// TurnResult is the outcome of one ProcessTurn call.
type TurnResult struct {
	State State
	// Expired holds the instances removed this turn, with their pre-turn durations.
	Expired []effect.Active
	// Healed is the HP actually restored by surviving Heal instances.
	Healed int
	// Damaged is the HP actually lost to surviving Damage instances.
	Damaged int
	Ticks   []Tick
	// Remaining is the number of instances that survived the turn.
	Remaining int
}

// ProcessTurn advances s by one turn.
//
// Every Turns(n) instance becomes Turns(n-1) and is removed when n-1 <= 0.
// Scene instances are left unchanged. LiveStats is rebuilt from the
// survivors. Surviving Heal instances are evaluated against the character's
// current stats and their sum is applied capped at maxHP; surviving Damage
// instances are then summed, reduced by the rebuilt damage reduction, and
// applied floored at 0.
//
// Precondition: tc.Catalog must be non-nil.
// Postcondition: Returns a *rules.InvariantViolation iff s.Validate fails;
// s is never mutated.
func ProcessTurn(s State, tc TurnContext) (TurnResult, error) {
	if err := s.Validate(); err != nil {
		return TurnResult{}, err
	}

	next := s.Clone()
	survivors := make([]effect.Active, 0, len(next.Effects))
	var expired []effect.Active
	for _, a := range next.Effects {
		if a.Duration.IsScene() {
			survivors = append(survivors, a)
			continue
		}
		d := a.Duration.Decrement()
		if d.Remaining() <= 0 {
			expired = append(expired, a)
			continue
		}
		a.Duration = d
		survivors = append(survivors, a)
	}
	next.Effects = survivors
	next.Live = effect.Aggregate(next.Effects, tc.Catalog)

	res := TurnResult{Expired: expired, Remaining: len(survivors)}

	heal, ticks, err := tickTotal(next, effect.Heal, tc)
	if err != nil {
		return TurnResult{}, err
	}
	res.Ticks = append(res.Ticks, ticks...)
	if heal > 0 {
		h := combat.CalculateHeal(next.CurrentHP, next.MaxHP, heal)
		next.CurrentHP = h.After
		res.Healed = h.Applied
	}

	raw, ticks, err := tickTotal(next, effect.Damage, tc)
	if err != nil {
		return TurnResult{}, err
	}
	res.Ticks = append(res.Ticks, ticks...)
	if raw > 0 {
		d := combat.CalculateDamage(raw, false, next.Live.DamageReduction)
		before := next.CurrentHP
		next.CurrentHP = combat.ApplyDamage(next.CurrentHP, d.Net)
		res.Damaged = before - next.CurrentHP
	}

	res.State = next
	return res, nil
}

// tickTotal evaluates the formula of every instance of category in s. The
// character is both caster and target of its own over-time effects. Negative
// formula results count as zero.
func tickTotal(s State, category effect.Category, tc TurnContext) (int, []Tick, error) {
	total := 0
	var ticks []Tick
	attrs := s.EffectiveAttributes()
	for _, a := range s.Effects {
		if a.Category != category {
			continue
		}
		def, ok := tc.Catalog.Effect(a.EffectID)
		if !ok || def.Category != category {
			continue
		}
		env := effect.FormulaEnv{
			Caster:      attrs,
			Target:      attrs,
			TargetHP:    s.CurrentHP,
			TargetMaxHP: s.MaxHP,
			Tier:        tc.Tier,
			Source:      tc.Source,
		}
		amount, terms, err := def.Formula.Evaluate(env, tc.Scripts)
		if err != nil {
			return 0, nil, fmt.Errorf("evaluating %s tick for effect %q: %w", category, a.EffectID, err)
		}
		if amount < 0 {
			amount = 0
		}
		ticks = append(ticks, Tick{EffectID: a.EffectID, Category: category, Amount: amount, Terms: terms})
		total += amount
	}
	return total, ticks, nil
}

// EndScene removes every Scene instance from s and rebuilds LiveStats.
// Turn-limited instances are unaffected.
//
// Postcondition: The returned state holds no Scene instance; s is never mutated.
func EndScene(s State, catalog effect.Catalog) (State, []effect.Active) {
	next := s.Clone()
	kept := make([]effect.Active, 0, len(next.Effects))
	var removed []effect.Active
	for _, a := range next.Effects {
		if a.Duration.IsScene() {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	next.Effects = kept
	next.Live = effect.Aggregate(next.Effects, catalog)
	return next, removed
}
