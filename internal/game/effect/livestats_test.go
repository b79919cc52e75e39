package effect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpcombat/internal/game/effect"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func testCatalog(t testing.TB) *effect.Registry {
	t.Helper()
	reg := effect.NewRegistry(effect.DefaultNeutral)
	defs := []*effect.Def{
		{ID: "might", Name: "Might", Category: effect.StatModifier, ModifierType: effect.StatValue, Stat: "Physical", Magnitude: 1, Duration: effect.Turns(3)},
		{ID: "focus", Name: "Focus", Category: effect.StatModifier, ModifierType: effect.RollBonus, Stat: "Physical", Magnitude: 2, Duration: effect.Turns(2)},
		{ID: "weaken", Name: "Weaken", Category: effect.StatModifier, ModifierType: effect.StatValue, Stat: "Physical", Magnitude: -1, Duration: effect.Turns(2)},
		{ID: "keen", Name: "Keen Eye", Category: effect.StatModifier, ModifierType: effect.RollBonus, Stat: "Perception", Magnitude: 3, Duration: effect.Scene()},
		{ID: "shield", Name: "Shield", Category: effect.Defense, Magnitude: 2, Duration: effect.Turns(2)},
		{ID: "barkskin", Name: "Barkskin", Category: effect.Defense, Magnitude: 1, Duration: effect.Scene()},
		{ID: "stun", Name: "Stunned", Category: effect.Control, ControlType: "stun", Duration: effect.Turns(1)},
		{ID: "daze", Name: "Dazed", Category: effect.Control, ControlType: "stun", Duration: effect.Turns(2)},
		{ID: "root", Name: "Rooted", Category: effect.Control, ControlType: "root", Duration: effect.Turns(2)},
		{ID: "regen", Name: "Regeneration", Category: effect.Heal, Formula: effect.Formula{Base: 3}, Duration: effect.Turns(3)},
		{ID: "mend", Name: "Mend", Category: effect.Heal, Formula: effect.Formula{Base: 10}},
		{ID: "bleed", Name: "Bleeding", Category: effect.Damage, Formula: effect.Formula{Base: 2}, Duration: effect.Turns(2)},
		{ID: "smite", Name: "Smite", Category: effect.Damage, Formula: effect.Formula{Base: 4, Stat: "Physical"}},
		{ID: "glow", Name: "Glow", Category: effect.Utility, Label: "light", Duration: effect.Scene()},
		{ID: "mark", Name: "Marked", Category: effect.Special, Label: "hunter's mark", Duration: effect.Turns(2)},
	}
	for _, d := range defs {
		require.NoError(t, reg.Register(d))
	}
	return reg
}

func instance(t testing.TB, reg *effect.Registry, id string, at time.Time) effect.Active {
	t.Helper()
	def, ok := reg.Effect(id)
	require.True(t, ok, "effect %q", id)
	return effect.NewActive(def, at, effect.Attribution{CasterName: "Tester"})
}

func TestAggregate_Empty(t *testing.T) {
	live := effect.Aggregate(nil, testCatalog(t))
	assert.True(t, live.IsEmpty())
	assert.Empty(t, live.Stats)
	assert.Empty(t, live.Controls)
	assert.Zero(t, live.DamageReduction)
}

func TestAggregate_DifferentModifierTypesNeverCombine(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{
		instance(t, reg, "might", t0),
		instance(t, reg, "focus", t0),
	}, reg)
	assert.Equal(t, map[string]int{"Physical": 1, "Physical_rollbonus": 2}, live.Stats)
	assert.Equal(t, 1, live.StatValue("Physical"))
	assert.Equal(t, 2, live.RollBonus("Physical"))
}

func TestAggregate_SameKeyAccumulates(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{
		instance(t, reg, "focus", t0),
		instance(t, reg, "focus", t0),
		instance(t, reg, "keen", t0),
	}, reg)
	assert.Equal(t, 4, live.RollBonus("Physical"))
	assert.Equal(t, 3, live.RollBonus("Perception"))
}

func TestAggregate_PrunesNeutral(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{
		instance(t, reg, "might", t0),
		instance(t, reg, "weaken", t0),
	}, reg)
	_, present := live.Stats["Physical"]
	assert.False(t, present, "+1 and -1 sum to neutral and must be pruned")
	assert.True(t, live.IsEmpty())
}

func TestAggregate_PrunesConfiguredNeutral(t *testing.T) {
	reg := effect.NewRegistry(1)
	require.NoError(t, reg.Register(&effect.Def{ID: "might", Category: effect.StatModifier, Stat: "Physical", Magnitude: 1, Duration: effect.Turns(1)}))
	live := effect.Aggregate([]effect.Active{instance(t, reg, "might", t0)}, reg)
	assert.Empty(t, live.Stats)
}

func TestAggregate_DefenseSumsIntoDamageReduction(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{
		instance(t, reg, "shield", t0),
		instance(t, reg, "barkskin", t0),
	}, reg)
	assert.Equal(t, 3, live.DamageReduction)
	assert.Empty(t, live.Stats, "defense is not stored per stat")
}

func TestAggregate_ControlMostRecentWins(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{
		instance(t, reg, "daze", t0.Add(time.Minute)),
		instance(t, reg, "stun", t0),
		instance(t, reg, "root", t0),
	}, reg)
	name, ok := live.Control("stun")
	require.True(t, ok)
	assert.Equal(t, "Dazed", name, "later AppliedAt wins regardless of order")
	name, ok = live.Control("root")
	require.True(t, ok)
	assert.Equal(t, "Rooted", name)
}

func TestAggregate_ControlTieGoesToLaterPosition(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{
		instance(t, reg, "stun", t0),
		instance(t, reg, "daze", t0),
	}, reg)
	name, _ := live.Control("stun")
	assert.Equal(t, "Dazed", name)
}

func TestAggregate_UtilitySpecialHealDamageContributeNothing(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{
		instance(t, reg, "glow", t0),
		instance(t, reg, "mark", t0),
		instance(t, reg, "regen", t0),
		instance(t, reg, "bleed", t0),
	}, reg)
	assert.True(t, live.IsEmpty())
}

func TestAggregate_SkipsUnknownEffect(t *testing.T) {
	reg := testCatalog(t)
	live := effect.Aggregate([]effect.Active{{EffectID: "retired", Duration: effect.Turns(2)}}, reg)
	assert.True(t, live.IsEmpty())
}

func TestPropertyAggregate_Idempotent(t *testing.T) {
	reg := testCatalog(t)
	ids := []string{"might", "focus", "weaken", "keen", "shield", "barkskin", "stun", "daze", "root", "regen", "bleed", "glow", "mark"}
	rapid.Check(t, func(rt *rapid.T) {
		picks := rapid.SliceOfN(rapid.SampledFrom(ids), 0, 12).Draw(rt, "effects")
		var seq []effect.Active
		for i, id := range picks {
			def, _ := reg.Effect(id)
			seq = append(seq, effect.NewActive(def, t0.Add(time.Duration(i%3)*time.Second), effect.Attribution{}))
		}
		first := effect.Aggregate(seq, reg)
		second := effect.Aggregate(seq, reg)
		assert.Equal(rt, first, second)
		for k, v := range first.Stats {
			assert.NotEqual(rt, reg.Neutral(), v, "key %q holds the neutral value", k)
		}
	})
}
