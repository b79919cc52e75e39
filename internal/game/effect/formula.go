package effect

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// Formula computes a heal or damage amount from caster and target stats.
// The terms are summed: Base, the caster's tier modifier for Stat, Percent
// of the target's maxHP, a Dice roll, and an optional Lua Script result.
type Formula struct {
	Base         int    `yaml:"base"`
	Stat         string `yaml:"stat"`
	PercentMaxHP int    `yaml:"percent_max_hp"`
	Dice         string `yaml:"dice"`
	Script       string `yaml:"script"`
}

// IsZero reports whether no term is set.
func (f Formula) IsZero() bool {
	return f == Formula{}
}

// Validate checks that Stat and Dice parse.
func (f Formula) Validate() error {
	if f.Stat != "" {
		if _, err := stats.ParseAttribute(f.Stat); err != nil {
			return fmt.Errorf("formula stat: %w", err)
		}
	}
	if f.Dice != "" {
		if _, err := dice.Parse(f.Dice); err != nil {
			return fmt.Errorf("formula dice: %w", err)
		}
	}
	if f.PercentMaxHP < 0 {
		return fmt.Errorf("formula percent_max_hp must be >= 0, got %d", f.PercentMaxHP)
	}
	return nil
}

// FormulaEnv is the stat snapshot a formula is evaluated against.
type FormulaEnv struct {
	Caster      stats.Attributes
	Target      stats.Attributes
	TargetHP    int
	TargetMaxHP int
	Tier        stats.TierTable
	Source      dice.Source
}

// ScriptEvaluator evaluates the Script term of a formula.
type ScriptEvaluator interface {
	EvalFormula(script string, env FormulaEnv) (int, error)
}

// ErrNoScriptEvaluator is returned when a formula has a Script term but no
// evaluator was supplied.
var ErrNoScriptEvaluator = errors.New("formula script configured but no script evaluator supplied")

// FormulaTerm is one summand of an evaluated formula.
type FormulaTerm struct {
	Name  string
	Value int
}

// Evaluate computes the formula amount and returns the individual terms.
//
// Precondition: env.Source must be non-nil when Dice is set.
// Postcondition: amount == sum(terms[i].Value).
func (f Formula) Evaluate(env FormulaEnv, scripts ScriptEvaluator) (int, []FormulaTerm, error) {
	var terms []FormulaTerm
	if f.Base != 0 {
		terms = append(terms, FormulaTerm{Name: "base", Value: f.Base})
	}
	if f.Stat != "" {
		a, err := stats.ParseAttribute(f.Stat)
		if err != nil {
			return 0, nil, err
		}
		terms = append(terms, FormulaTerm{Name: string(a), Value: env.Tier.Modifier(env.Caster.Get(a))})
	}
	if f.PercentMaxHP != 0 {
		terms = append(terms, FormulaTerm{Name: "percent_max_hp", Value: env.TargetMaxHP * f.PercentMaxHP / 100})
	}
	if f.Dice != "" {
		if env.Source == nil {
			return 0, nil, fmt.Errorf("formula dice %q requires a die source", f.Dice)
		}
		r, err := dice.RollExpr(f.Dice, env.Source)
		if err != nil {
			return 0, nil, err
		}
		terms = append(terms, FormulaTerm{Name: "dice", Value: r.Total()})
	}
	if f.Script != "" {
		if scripts == nil {
			return 0, nil, ErrNoScriptEvaluator
		}
		v, err := scripts.EvalFormula(f.Script, env)
		if err != nil {
			return 0, nil, fmt.Errorf("evaluating formula script: %w", err)
		}
		terms = append(terms, FormulaTerm{Name: "script", Value: v})
	}
	total := 0
	for _, t := range terms {
		total += t.Value
	}
	return total, terms, nil
}
