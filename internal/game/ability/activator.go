package ability

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/rpcombat/internal/game/character"
	"github.com/cory-johannsen/rpcombat/internal/game/combat"
	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/rules"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
	"github.com/cory-johannsen/rpcombat/internal/game/targeting"
)

// Mode selects which effect list of an ability applies.
type Mode int

const (
	ModeAbility Mode = iota
	ModeAttack
)

// String returns "ability" or "attack".
func (m Mode) String() string {
	if m == ModeAttack {
		return "attack"
	}
	return "ability"
}

// ParseMode resolves "ability" or "attack"; the empty string is ModeAbility.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ability":
		return ModeAbility, nil
	case "attack":
		return ModeAttack, nil
	default:
		return ModeAbility, rules.Validationf("mode", "unknown mode %q", s)
	}
}

// Request is one activation. Characters must hold a snapshot of the caster
// and of every character the ability may reach.
type Request struct {
	AbilityID string
	Mode      Mode
	CasterID  string
	TargetID  string
	Nearby    []string
	Allies    []string
	Enemies   []string

	Characters map[string]character.State
	At         time.Time
}

// TargetOutcome is the result for one resolved target.
type TargetOutcome struct {
	TargetID string
	Check    combat.CheckResult
	// Apply is nil when the check failed.
	Apply *character.ApplyResult
}

// Activation is the structured outcome of one activation.
type Activation struct {
	Ability    *Def
	Mode       Mode
	CasterTurn character.TurnResult
	Targets    []TargetOutcome
	// States holds the new snapshot of every character that changed. The
	// caster is always present because its turn was processed.
	States map[string]character.State
}

// Activator runs activations against loaded catalogs.
type Activator struct {
	Abilities Catalog
	Effects   effect.Catalog
	Tier      stats.TierTable
	Source    dice.Source
	Scripts   effect.ScriptEvaluator
}

// NewActivator creates an Activator.
//
// Precondition: abilities, effects and src must be non-nil.
func NewActivator(abilities Catalog, effects effect.Catalog, tier stats.TierTable, src dice.Source, scripts effect.ScriptEvaluator) *Activator {
	return &Activator{Abilities: abilities, Effects: effects, Tier: tier, Source: src, Scripts: scripts}
}

// TurnContext returns the collaborators turn processing needs.
func (a *Activator) TurnContext() character.TurnContext {
	return character.TurnContext{Catalog: a.Effects, Tier: a.Tier, Source: a.Source, Scripts: a.Scripts}
}

// Activate resolves req.
//
// The caster must exist, be in roleplay mode, be conscious, and own the
// ability and everything it requires unless it is innate. The caster's turn
// is processed before any new effect is applied. A fixed check rolls once
// for the whole activation; stat-versus-stat and contested checks roll once
// per target other than the caster, who always succeeds on itself. Effects
// the caster applies to itself count for every later target.
//
// Postcondition: Returns a *rules.ValidationError or *rules.NotFoundError
// for rejected requests; input snapshots are never mutated.
func (a *Activator) Activate(req Request) (Activation, error) {
	caster, ok := req.Characters[req.CasterID]
	if !ok {
		return Activation{}, rules.NotFound("character", req.CasterID)
	}
	def, ok := a.Abilities.Ability(req.AbilityID)
	if !ok {
		return Activation{}, rules.NotFound("ability", req.AbilityID)
	}
	if !caster.Roleplay {
		return Activation{}, rules.Validationf("caster", "%q is not in roleplay mode", caster.Name)
	}
	if caster.Unconscious() {
		return Activation{}, rules.Validationf("caster", "%q is unconscious", caster.Name)
	}
	if !def.Innate && !caster.HasPower(def.ID) {
		return Activation{}, rules.Validationf("ability", "%q does not own %q", caster.Name, def.ID)
	}
	for _, r := range def.Requires {
		if !caster.HasPower(r) {
			return Activation{}, rules.Validationf("ability", "%q requires %q", def.ID, r)
		}
	}

	ids, err := targeting.Resolve(targeting.Query{
		Type:     def.Target,
		CasterID: req.CasterID,
		TargetID: req.TargetID,
		Nearby:   req.Nearby,
		Allies:   req.Allies,
		Enemies:  req.Enemies,
	}, snapshotEligibility(req.Characters))
	if err != nil {
		return Activation{}, err
	}

	turn, err := character.ProcessTurn(caster, a.TurnContext())
	if err != nil {
		return Activation{}, fmt.Errorf("processing caster turn: %w", err)
	}
	states := map[string]character.State{req.CasterID: turn.State}
	casterNow := turn.State
	baseStat, err := stats.ParseAttribute(def.BaseStat)
	if err != nil {
		return Activation{}, rules.Validationf("base_stat", "ability %q: %v", def.ID, err)
	}
	var opposed stats.Attribute
	if def.Check == combat.ShapeVsStat || def.Check == combat.ShapeContested {
		if opposed, err = stats.ParseAttribute(def.OpposedStat); err != nil {
			return Activation{}, rules.Validationf("opposed_stat", "ability %q: %v", def.ID, err)
		}
	}

	out := Activation{Ability: def, Mode: req.Mode, CasterTurn: turn, States: states}
	var fixed *combat.CheckResult
	for _, id := range ids {
		target, ok := states[id]
		if !ok {
			target = req.Characters[id]
		}
		var check combat.CheckResult
		switch {
		case def.Check == combat.ShapeFixed:
			if fixed == nil {
				r := combat.ResolveFixed(a.Source, casterNow.Contestant(), baseStat, def.TN, a.Tier)
				fixed = &r
			}
			check = *fixed
		case def.Check == combat.ShapeNone || id == req.CasterID:
			check = combat.AutoSuccess(req.CasterID)
		case def.Check == combat.ShapeVsStat:
			check = combat.ResolveVsStat(a.Source, casterNow.Contestant(), baseStat, target.Contestant(), opposed, a.Tier)
		case def.Check == combat.ShapeContested:
			check = combat.ResolveContested(a.Source, casterNow.Contestant(), baseStat, def.SkillBonus, target.Contestant(), opposed, a.Tier)
		}

		outcome := TargetOutcome{TargetID: id, Check: check}
		if check.Success {
			res, err := character.Apply(target, def.Effects(req.Mode), character.ApplyContext{
				TurnContext: a.TurnContext(),
				Caster:      casterNow.EffectiveAttributes(),
				Attribution: effect.Attribution{CasterName: caster.Name, SourceType: req.Mode.String(), SourceID: def.ID},
				At:          req.At,
				SkillBonus:  def.SkillBonus,
				Critical:    check.Critical,
			})
			if err != nil {
				return Activation{}, fmt.Errorf("applying %q to %q: %w", def.ID, id, err)
			}
			outcome.Apply = &res
			if res.Mutated {
				states[id] = res.State
				if id == req.CasterID {
					casterNow = res.State
				}
			}
		}
		out.Targets = append(out.Targets, outcome)
	}
	return out, nil
}

// snapshotEligibility treats a character as eligible when it is in roleplay
// mode and conscious.
func snapshotEligibility(chars map[string]character.State) targeting.Eligibility {
	return targeting.EligibilityFunc(func(id string) (bool, bool) {
		s, ok := chars[id]
		if !ok {
			return false, false
		}
		return true, s.Roleplay && !s.Unconscious()
	})
}
