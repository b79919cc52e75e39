// Package ability defines ability and attack definitions and the
// activation flow that resolves targets, checks, and effect application.
package ability

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/rpcombat/internal/game/combat"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
	"github.com/cory-johannsen/rpcombat/internal/game/targeting"
)

// Def is the static definition of an ability or attack, loaded from YAML.
type Def struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	BaseStat    string               `yaml:"base_stat"`
	Target      targeting.TargetType `yaml:"target"`
	Range       int                  `yaml:"range"`
	Check       combat.Shape         `yaml:"check"`
	TN          int                  `yaml:"tn"`
	OpposedStat string               `yaml:"opposed_stat"`
	SkillBonus  int                  `yaml:"skill_bonus"`

	// AttackEffects apply when the ability is used as an attack;
	// AbilityEffects apply otherwise.
	AttackEffects  []string `yaml:"attack_effects"`
	AbilityEffects []string `yaml:"ability_effects"`

	// Innate abilities may be used without being owned.
	Innate bool `yaml:"innate"`
	// Requires lists powers or perks the caster must own besides the ability itself.
	Requires []string `yaml:"requires"`

	Description string `yaml:"description"`
}

// Validate checks the shape of d and fills defaults.
//
// Postcondition: On success TN is DefaultTN when the check is fixed and no
// TN was given.
func (d *Def) Validate() error {
	if d.ID == "" {
		return errors.New("ability id must not be empty")
	}
	if _, err := stats.ParseAttribute(d.BaseStat); err != nil {
		return fmt.Errorf("ability %q base_stat: %w", d.ID, err)
	}
	if d.Target == targeting.TargetUnknown {
		return fmt.Errorf("ability %q: target must be set", d.ID)
	}
	switch d.Check {
	case combat.ShapeNone:
	case combat.ShapeFixed:
		if d.TN == 0 {
			d.TN = combat.DefaultTN
		}
	case combat.ShapeVsStat, combat.ShapeContested:
		if _, err := stats.ParseAttribute(d.OpposedStat); err != nil {
			return fmt.Errorf("ability %q opposed_stat: %w", d.ID, err)
		}
	default:
		return fmt.Errorf("ability %q: unknown check shape", d.ID)
	}
	if len(d.AttackEffects) == 0 && len(d.AbilityEffects) == 0 {
		return fmt.Errorf("ability %q: must list attack_effects or ability_effects", d.ID)
	}
	return nil
}

// DisplayName returns Name, falling back to ID.
func (d *Def) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Effects returns the effect ids that apply in mode.
func (d *Def) Effects(mode Mode) []string {
	if mode == ModeAttack {
		return d.AttackEffects
	}
	return d.AbilityEffects
}

// Catalog is the read-only ability lookup the Activator depends on.
type Catalog interface {
	Ability(id string) (*Def, bool)
}

// Registry holds all known Defs keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates and adds def, overwriting any entry with the same ID.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Ability returns the Def for id.
func (r *Registry) Ability(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns the registered Defs sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }

// LoadDirectory reads every *.yaml file in dir; files may hold several
// "---"-separated documents.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		for {
			var def Def
			if err := dec.Decode(&def); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("parsing %q: %w", path, err)
			}
			if err := reg.Register(&def); err != nil {
				return nil, fmt.Errorf("registering ability from %q: %w", path, err)
			}
		}
	}
	return reg, nil
}
