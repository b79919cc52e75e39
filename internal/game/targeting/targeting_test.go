package targeting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpcombat/internal/game/rules"
	"github.com/cory-johannsen/rpcombat/internal/game/targeting"
)

// world maps id → eligible. Ids absent from the map do not exist.
type world map[string]bool

func (w world) Eligible(id string) (bool, bool) {
	ok, exists := w[id]
	return exists, ok
}

func query(tt targeting.TargetType) targeting.Query {
	return targeting.Query{
		Type:     tt,
		CasterID: "C",
		Nearby:   []string{"A", "N"},
		Allies:   []string{"A"},
		Enemies:  []string{"N"},
	}
}

var everyone = world{"C": true, "A": true, "N": true}

func TestResolve_AllyAreaPairs(t *testing.T) {
	tests := []struct {
		tt   targeting.TargetType
		want []string
	}{
		{targeting.AllAllies, []string{"A"}},
		{targeting.AllAlliesAndSelf, []string{"C", "A"}},
		{targeting.Area, []string{"A", "N"}},
		{targeting.AreaAndSelf, []string{"C", "A", "N"}},
		{targeting.AllEnemies, []string{"N"}},
		{targeting.AllEnemiesAndSelf, []string{"C", "N"}},
		{targeting.Self, []string{"C"}},
	}
	for _, tc := range tests {
		t.Run(tc.tt.String(), func(t *testing.T) {
			got, err := targeting.Resolve(query(tc.tt), everyone)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolve_CasterRemovedFromNearby(t *testing.T) {
	q := query(targeting.Area)
	q.Nearby = []string{"C", "A", "C", "N", "A"}
	got, err := targeting.Resolve(q, everyone)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "N"}, got)

	q.Type = targeting.AreaAndSelf
	got, err = targeting.Resolve(q, everyone)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "N"}, got)
}

func TestResolve_IneligibleCandidatesDropped(t *testing.T) {
	w := world{"C": true, "A": false, "N": true}
	got, err := targeting.Resolve(query(targeting.Area), w)
	require.NoError(t, err)
	assert.Equal(t, []string{"N"}, got)

	got, err = targeting.Resolve(query(targeting.AllAllies), w)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_EmptyNearby(t *testing.T) {
	q := query(targeting.AllAlliesAndSelf)
	q.Nearby = nil
	got, err := targeting.Resolve(q, everyone)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, got)

	q.Type = targeting.Area
	got, err = targeting.Resolve(q, everyone)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_Single(t *testing.T) {
	q := query(targeting.Single)
	q.TargetID = "A"
	got, err := targeting.Resolve(q, everyone)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got)

	q.TargetID = "ghost"
	_, err = targeting.Resolve(q, everyone)
	assert.ErrorIs(t, err, rules.ErrNotFound)

	q.TargetID = "A"
	_, err = targeting.Resolve(q, world{"A": false})
	assert.ErrorIs(t, err, rules.ErrValidation)

	q.TargetID = ""
	_, err = targeting.Resolve(q, everyone)
	assert.ErrorIs(t, err, rules.ErrValidation)
}

func TestResolve_UnknownTypeAndMissingCaster(t *testing.T) {
	_, err := targeting.Resolve(query(targeting.TargetUnknown), everyone)
	assert.ErrorIs(t, err, rules.ErrValidation)

	q := query(targeting.Area)
	q.CasterID = ""
	_, err = targeting.Resolve(q, everyone)
	assert.ErrorIs(t, err, rules.ErrValidation)
}

func TestEligibilityFunc(t *testing.T) {
	f := targeting.EligibilityFunc(func(id string) (bool, bool) { return id == "A", id == "A" })
	got, err := targeting.Resolve(query(targeting.Area), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got)
}

func TestParseTargetType(t *testing.T) {
	for _, name := range []string{"self", "single", "area", "area_and_self", "all_allies", "all_allies_and_self", "all_enemies", "all_enemies_and_self"} {
		tt, err := targeting.ParseTargetType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, tt.String())
	}
	tt, err := targeting.ParseTargetType("AREA_AND_SELF")
	require.NoError(t, err)
	assert.Equal(t, targeting.AreaAndSelf, tt)
	assert.True(t, tt.IncludesSelf())

	_, err = targeting.ParseTargetType("everyone")
	assert.Error(t, err)
}

func TestPropertyResolve_DedupedAndOrderStable(t *testing.T) {
	types := []targeting.TargetType{
		targeting.Area, targeting.AreaAndSelf, targeting.AllAllies,
		targeting.AllAlliesAndSelf, targeting.AllEnemies, targeting.AllEnemiesAndSelf,
	}
	ids := []string{"C", "A", "B", "D", "E"}
	rapid.Check(t, func(rt *rapid.T) {
		q := targeting.Query{
			Type:     rapid.SampledFrom(types).Draw(rt, "type"),
			CasterID: "C",
			Nearby:   rapid.SliceOf(rapid.SampledFrom(ids)).Draw(rt, "nearby"),
			Allies:   rapid.SliceOf(rapid.SampledFrom(ids)).Draw(rt, "allies"),
			Enemies:  rapid.SliceOf(rapid.SampledFrom(ids)).Draw(rt, "enemies"),
		}
		w := world{}
		for _, id := range ids {
			w[id] = rapid.Bool().Draw(rt, "eligible_"+id)
		}
		got, err := targeting.Resolve(q, w)
		require.NoError(rt, err)

		seen := map[string]bool{}
		for _, id := range got {
			assert.False(rt, seen[id], "duplicate %s", id)
			seen[id] = true
		}
		assert.Equal(rt, q.Type.IncludesSelf(), seen["C"])
		if q.Type.IncludesSelf() {
			assert.Equal(rt, "C", got[0])
		}

		// relative order of non-caster ids follows first appearance in Nearby
		first := map[string]int{}
		for i, id := range q.Nearby {
			if _, ok := first[id]; !ok {
				first[id] = i
			}
		}
		last := -1
		for _, id := range got {
			if id == "C" {
				continue
			}
			assert.Greater(rt, first[id], last)
			last = first[id]
		}
	})
}
