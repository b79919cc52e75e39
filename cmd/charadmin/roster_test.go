package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRoster_Demo(t *testing.T) {
	r, err := loadRoster("../../content/characters/demo.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, r.Characters)
	s := r.Characters[0].State()
	assert.Equal(t, s.MaxHP, s.CurrentHP)
	assert.NoError(t, s.Validate())
}

func TestLoadRoster_Rejections(t *testing.T) {
	cases := map[string]string{
		"duplicate id":     "characters:\n  - {id: a, max_hp: 5}\n  - {id: a, max_hp: 5}\n",
		"unknown relation": "characters:\n  - {id: a, max_hp: 5, allies: [b]}\n",
		"self relation":    "characters:\n  - {id: a, max_hp: 5, enemies: [a]}\n",
		"missing id":       "characters:\n  - {name: x, max_hp: 5}\n",
		"zero hp":          "characters:\n  - {id: a}\n",
		"unknown field":    "characters:\n  - {id: a, max_hp: 5, level: 3}\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadRoster(writeRoster(t, content))
			assert.Error(t, err)
		})
	}
}
