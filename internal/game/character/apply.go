package character

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/rpcombat/internal/game/combat"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/rules"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// ApplyContext describes who is applying effects, when, and with which
// collaborators.
type ApplyContext struct {
	TurnContext

	// Caster is the applying character's effective attributes.
	Caster      stats.Attributes
	Attribution effect.Attribution
	At          time.Time
	// SkillBonus is added to instantaneous damage before the critical
	// doubling.
	SkillBonus int
	// Critical doubles instantaneous damage before reduction.
	Critical bool
}

// DamageOutcome is the breakdown of one instantaneous damage effect.
type DamageOutcome struct {
	EffectID string
	Terms    []effect.FormulaTerm
	combat.DamageResult
}

// HealOutcome is the breakdown of one instantaneous heal effect.
type HealOutcome struct {
	EffectID string
	Terms    []effect.FormulaTerm
	combat.HealResult
}

// ApplyResult is the outcome of one Apply call.
type ApplyResult struct {
	State State
	// Applied holds instances inserted or refreshed on the target.
	Applied []effect.Active
	// Skipped holds ids of effects already active for at least as long.
	Skipped []string
	// Triggered holds ids of instantaneous Utility or Special effects,
	// which leave no instance behind.
	Triggered []string
	Damage    []DamageOutcome
	Heals     []HealOutcome
	HPDelta   int
	// Mutated is set when the target's effects or HP changed.
	Mutated bool
}

// Apply applies the effects named by ids to target, in order.
//
// Effects with a duration become instances attributed to ac.Attribution.
// When an instance of the same effect is already active it is replaced in
// place only if the new duration is strictly longer; Scene outlasts any
// turn count and re-applying an active Scene effect is a no-op.
// Instantaneous Damage and Heal effects are evaluated immediately: damage
// adds ac.SkillBonus, is reduced by the target's damage reduction as of entry
// and floored at 0; a negative heal counts as 0, and healing ignores
// reduction and is capped at maxHP.
//
// Precondition: ac.Catalog must be non-nil.
// Postcondition: Returns a *rules.NotFoundError for an unknown id before any
// change is made; LiveStats of the returned state is rebuilt; target is
// never mutated.
func Apply(target State, ids []string, ac ApplyContext) (ApplyResult, error) {
	if err := target.Validate(); err != nil {
		return ApplyResult{}, err
	}
	defs := make([]*effect.Def, 0, len(ids))
	for _, id := range ids {
		def, ok := ac.Catalog.Effect(id)
		if !ok {
			return ApplyResult{}, rules.NotFound("effect", id)
		}
		defs = append(defs, def)
	}

	next := target.Rebuild(ac.Catalog)
	reduction := next.Live.DamageReduction
	targetAttrs := next.EffectiveAttributes()

	var res ApplyResult
	for _, def := range defs {
		if def.Duration.IsInstant() {
			switch def.Category {
			case effect.Damage:
				raw, terms, err := def.Formula.Evaluate(ac.env(targetAttrs, next), ac.Scripts)
				if err != nil {
					return ApplyResult{}, fmt.Errorf("evaluating damage effect %q: %w", def.ID, err)
				}
				if ac.SkillBonus != 0 {
					raw += ac.SkillBonus
					terms = append(terms, effect.FormulaTerm{Name: "skill", Value: ac.SkillBonus})
				}
				d := combat.CalculateDamage(raw, ac.Critical, reduction)
				next.CurrentHP = combat.ApplyDamage(next.CurrentHP, d.Net)
				res.Damage = append(res.Damage, DamageOutcome{EffectID: def.ID, Terms: terms, DamageResult: d})
			case effect.Heal:
				amount, terms, err := def.Formula.Evaluate(ac.env(targetAttrs, next), ac.Scripts)
				if err != nil {
					return ApplyResult{}, fmt.Errorf("evaluating heal effect %q: %w", def.ID, err)
				}
				if amount < 0 {
					amount = 0
				}
				h := combat.CalculateHeal(next.CurrentHP, next.MaxHP, amount)
				next.CurrentHP = h.After
				res.Heals = append(res.Heals, HealOutcome{EffectID: def.ID, Terms: terms, HealResult: h})
			case effect.Utility, effect.Special:
				res.Triggered = append(res.Triggered, def.ID)
			case effect.StatModifier, effect.Defense, effect.Control, effect.CategoryUnknown:
				return ApplyResult{}, rules.Invariantf("lasting_category", "effect %q of category %s has no duration", def.ID, def.Category)
			}
			continue
		}

		inst := effect.NewActive(def, ac.At, ac.Attribution)
		idx := effect.IndexOf(next.Effects, def.ID)
		switch {
		case idx < 0:
			next.Effects = append(next.Effects, inst)
			res.Applied = append(res.Applied, inst)
		case inst.Duration.Longer(next.Effects[idx].Duration):
			next.Effects[idx] = inst
			res.Applied = append(res.Applied, inst)
		default:
			res.Skipped = append(res.Skipped, def.ID)
		}
	}

	next.Live = effect.Aggregate(next.Effects, ac.Catalog)
	res.HPDelta = next.CurrentHP - target.CurrentHP
	res.Mutated = len(res.Applied) > 0 || res.HPDelta != 0
	res.State = next
	return res, nil
}

func (ac ApplyContext) env(targetAttrs stats.Attributes, target State) effect.FormulaEnv {
	return effect.FormulaEnv{
		Caster:      ac.Caster,
		Target:      targetAttrs,
		TargetHP:    target.CurrentHP,
		TargetMaxHP: target.MaxHP,
		Tier:        ac.Tier,
		Source:      ac.Source,
	}
}
