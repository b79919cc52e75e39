package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/rpcombat/internal/game/catalog"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_RealContent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c, err := catalog.Load(context.Background(), catalog.Options{
		EffectsDir:   "../../../content/effects",
		AbilitiesDir: "../../../content/abilities",
	}, zap.New(core))
	require.NoError(t, err)
	assert.Positive(t, c.Effects.Len())
	assert.Positive(t, c.Abilities.Len())
	_, ok := c.Abilities.Ability("strike")
	assert.True(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("catalog loaded").Len())
}

func TestLoad_DanglingEffectReference(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "effects"), "e.yaml", "id: guarded\ncategory: defense\nmagnitude: 1\nduration: turns:2\n")
	writeFile(t, filepath.Join(root, "abilities"), "a.yaml", "id: bash\nbase_stat: Physical\ntarget: single\nattack_effects: [guarded, missing]\n")

	_, err := catalog.Load(context.Background(), catalog.Options{
		EffectsDir:   filepath.Join(root, "effects"),
		AbilitiesDir: filepath.Join(root, "abilities"),
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown effect "missing"`)
}

func TestLoad_MissingDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "effects"), "e.yaml", "id: flare\ncategory: utility\n")
	_, err := catalog.Load(context.Background(), catalog.Options{
		EffectsDir:   filepath.Join(root, "effects"),
		AbilitiesDir: filepath.Join(root, "nope"),
	}, zap.NewNop())
	assert.Error(t, err)
}
