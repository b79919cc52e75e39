package scripting_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
	"github.com/cory-johannsen/rpcombat/internal/scripting"
)

func testEnv() effect.FormulaEnv {
	return effect.FormulaEnv{
		Caster:      stats.Attributes{Physical: 3, Dexterity: 2, Mental: 5, Perception: 1},
		Target:      stats.Attributes{Physical: 2, Dexterity: 4, Mental: 2, Perception: 2},
		TargetHP:    10,
		TargetMaxHP: 40,
		Tier:        stats.DefaultTierTable(),
		Source:      dice.NewSequenceSource(4),
	}
}

func TestEvalFormula_SeesEnvironment(t *testing.T) {
	ev := scripting.NewFormulaEvaluator(0, zap.NewNop())
	v, err := ev.EvalFormula(`return tier(caster.mental) + target.dexterity + target_max_hp - target_hp`, testEnv())
	require.NoError(t, err)
	// tier(5)=6, +4, +30
	assert.Equal(t, 40, v)
}

func TestEvalFormula_Roll(t *testing.T) {
	ev := scripting.NewFormulaEvaluator(0, zap.NewNop())
	v, err := ev.EvalFormula(`return roll("2d6+1")`, testEnv())
	require.NoError(t, err)
	assert.Equal(t, 9, v)

	env := testEnv()
	env.Source = nil
	_, err = ev.EvalFormula(`return roll("1d6")`, env)
	assert.Error(t, err)

	_, err = ev.EvalFormula(`return roll("banana")`, testEnv())
	assert.Error(t, err)
}

func TestEvalFormula_TruncatesTowardZero(t *testing.T) {
	ev := scripting.NewFormulaEvaluator(0, zap.NewNop())
	v, err := ev.EvalFormula(`return 7 / 2`, testEnv())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestEvalFormula_Errors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ev := scripting.NewFormulaEvaluator(50, zap.New(core))

	_, err := ev.EvalFormula(`return (`, testEnv())
	assert.Error(t, err, "syntax")

	_, err = ev.EvalFormula(`return "five"`, testEnv())
	assert.Error(t, err, "non-number")

	_, err = ev.EvalFormula(`error("boom")`, testEnv())
	assert.Error(t, err, "raise")

	_, err = ev.EvalFormula(`while true do end return 1`, testEnv())
	assert.Error(t, err, "instruction limit")

	_, err = ev.EvalFormula(`return os.time()`, testEnv())
	assert.Error(t, err, "sandbox")

	assert.GreaterOrEqual(t, logs.FilterMessage("scripting: formula runtime error").Len(), 3)
}

func TestEvalFormula_CachesCompiledChunks(t *testing.T) {
	ev := scripting.NewFormulaEvaluator(0, zap.NewNop())
	p1, err := ev.Compile(`return 1`)
	require.NoError(t, err)
	p2, err := ev.Compile(`return 1`)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestEvalFormula_ConcurrentUse(t *testing.T) {
	ev := scripting.NewFormulaEvaluator(0, zap.NewNop())
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := ev.EvalFormula(`return tier(caster.physical) * 3`, testEnv())
			if err == nil && v != 6 {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestEvalFormula_UsedByFormula(t *testing.T) {
	ev := scripting.NewFormulaEvaluator(0, zap.NewNop())
	f := effect.Formula{Base: 1, Script: `if target_hp * 2 < target_max_hp then return 2 end return 0`}
	total, terms, err := f.Evaluate(testEnv(), ev)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, terms, 2)
}

func TestPropertyEvalFormula_TierMatchesTable(t *testing.T) {
	ev := scripting.NewFormulaEvaluator(0, zap.NewNop())
	tier := stats.DefaultTierTable()
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.IntRange(-3, 12).Draw(rt, "v")
		env := testEnv()
		env.Caster.Mental = v
		got, err := ev.EvalFormula(`return tier(caster.mental)`, env)
		require.NoError(rt, err)
		assert.Equal(rt, tier.Modifier(v), got)
	})
}
