package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/rpcombat/internal/game/character"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
)

// rosterEntry is one seeded character with its outgoing relations.
type rosterEntry struct {
	ID         string           `yaml:"id"`
	Name       string           `yaml:"name"`
	Attributes stats.Attributes `yaml:"attributes"`
	MaxHP      int              `yaml:"max_hp"`
	Roleplay   bool             `yaml:"roleplay"`
	Powers     []string         `yaml:"powers"`
	Allies     []string         `yaml:"allies"`
	Enemies    []string         `yaml:"enemies"`
}

type roster struct {
	Characters []rosterEntry `yaml:"characters"`
}

// State returns the entry as a fresh character at full health.
func (e rosterEntry) State() character.State {
	return character.State{
		ID:         e.ID,
		Name:       e.Name,
		Attributes: e.Attributes,
		MaxHP:      e.MaxHP,
		CurrentHP:  e.MaxHP,
		Roleplay:   e.Roleplay,
		Powers:     e.Powers,
	}
}

// loadRoster parses a roster file and checks that ids are unique and that
// every relation names a character in the same file.
func loadRoster(path string) (roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return roster{}, fmt.Errorf("reading roster: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var r roster
	if err := dec.Decode(&r); err != nil {
		return roster{}, fmt.Errorf("parsing roster %s: %w", path, err)
	}

	ids := make(map[string]bool, len(r.Characters))
	for _, e := range r.Characters {
		if e.ID == "" {
			return roster{}, fmt.Errorf("roster entry %q has no id", e.Name)
		}
		if ids[e.ID] {
			return roster{}, fmt.Errorf("duplicate roster id %q", e.ID)
		}
		if e.MaxHP <= 0 {
			return roster{}, fmt.Errorf("roster entry %q: max_hp must be > 0", e.ID)
		}
		ids[e.ID] = true
	}
	for _, e := range r.Characters {
		for _, other := range append(append([]string(nil), e.Allies...), e.Enemies...) {
			if !ids[other] {
				return roster{}, fmt.Errorf("roster entry %q relates to unknown %q", e.ID, other)
			}
			if other == e.ID {
				return roster{}, fmt.Errorf("roster entry %q relates to itself", e.ID)
			}
		}
	}
	return r, nil
}
