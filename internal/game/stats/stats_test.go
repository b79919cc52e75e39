package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

func TestTierTable_Calibration(t *testing.T) {
	tt := stats.DefaultTierTable()
	tests := []struct{ value, want int }{
		{1, -2},
		{2, 0},
		{3, 2},
		{4, 4},
		{5, 6},
		{7, 10},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tt.Modifier(tc.value), "value=%d", tc.value)
	}
}

func TestTierTable_ClampsAtBounds(t *testing.T) {
	tt := stats.DefaultTierTable()
	assert.Equal(t, -2, tt.Modifier(0))
	assert.Equal(t, -2, tt.Modifier(-5))
	assert.Equal(t, 10, tt.Modifier(9))
}

func TestTierTable_ZeroValueHasNoClamp(t *testing.T) {
	var tt stats.TierTable
	assert.Equal(t, 16, tt.Modifier(10))
}

func TestPropertyTierTable_Monotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-5, 15).Draw(rt, "lo")
		hi := rapid.IntRange(lo, 20).Draw(rt, "hi")
		tt := stats.DefaultTierTable()
		assert.LessOrEqual(rt, tt.Modifier(lo), tt.Modifier(hi))
	})
}

func TestParseAttribute(t *testing.T) {
	a, err := stats.ParseAttribute("mental")
	require.NoError(t, err)
	assert.Equal(t, stats.Mental, a)

	_, err = stats.ParseAttribute("charisma")
	assert.Error(t, err)
}

func TestAttributes_GetAndValidate(t *testing.T) {
	a := stats.Attributes{Physical: 3, Dexterity: 2, Mental: 5, Perception: 1}
	assert.Equal(t, 3, a.Get(stats.Physical))
	assert.Equal(t, 5, a.Get(stats.Mental))
	assert.Equal(t, 0, a.Get(stats.Attribute("Luck")))
	assert.NoError(t, a.Validate())

	a.Perception = 0
	assert.Error(t, a.Validate())
}
