package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/rpcombat/internal/game/effect"
)

func TestEncodeEffects_SceneUsesSentinel(t *testing.T) {
	raw, err := encodeEffects([]effect.Active{
		{EffectID: "warded", Category: effect.Defense, Duration: effect.Scene()},
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"turns_left":999`)
	assert.Contains(t, string(raw), `"category":"defense"`)
}

func TestEncodeEffects_EmptyIsArray(t *testing.T) {
	raw, err := encodeEffects(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestDecodeEffects_RejectsNonPositiveTurns(t *testing.T) {
	_, err := decodeEffects([]byte(`[{"effect_id":"guarded","category":"defense","turns_left":0}]`))
	assert.Error(t, err)
}

func TestDecodeEffects_UnknownCategory(t *testing.T) {
	_, err := decodeEffects([]byte(`[{"effect_id":"guarded","category":"aura","turns_left":2}]`))
	assert.Error(t, err)
}
