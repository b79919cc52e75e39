package effect

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
)

// DefaultNeutral is the LiveStats value that is pruned after aggregation
// when no catalog override is configured.
const DefaultNeutral = 0

// Def is the static definition of an effect, loaded from YAML.
type Def struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`

	// StatModifier / Defense.
	ModifierType ModifierType `yaml:"modifier_type"`
	Stat         string       `yaml:"stat"`
	Magnitude    int          `yaml:"magnitude"`

	// Duration is the template for new instances; zero means instantaneous.
	Duration Duration `yaml:"duration"`

	// Heal / Damage.
	Formula Formula `yaml:"formula"`

	// Control: the control-type identifier used as the LiveStats key.
	ControlType string `yaml:"control_type"`
	// Control / Utility / Special: free-form label for presentation.
	Label string `yaml:"label"`

	Description string `yaml:"description"`
}

// Validate checks the category-specific shape of d.
//
// Postcondition: Returns nil iff d is usable by the aggregator and applicator.
func (d *Def) Validate() error {
	if d.ID == "" {
		return errors.New("effect id must not be empty")
	}
	switch d.Category {
	case StatModifier:
		if d.Stat == "" {
			return fmt.Errorf("effect %q: stat_modifier requires stat", d.ID)
		}
		if d.Duration.IsInstant() {
			return fmt.Errorf("effect %q: stat_modifier requires a duration", d.ID)
		}
	case Defense:
		if d.Duration.IsInstant() {
			return fmt.Errorf("effect %q: defense requires a duration", d.ID)
		}
	case Control:
		if d.ControlType == "" {
			return fmt.Errorf("effect %q: control requires control_type", d.ID)
		}
		if d.Duration.IsInstant() {
			return fmt.Errorf("effect %q: control requires a duration", d.ID)
		}
	case Heal, Damage:
		if d.Formula.IsZero() {
			return fmt.Errorf("effect %q: %s requires a formula", d.ID, d.Category)
		}
		if err := d.Formula.Validate(); err != nil {
			return fmt.Errorf("effect %q: %w", d.ID, err)
		}
	case Utility, Special:
	default:
		return fmt.Errorf("effect %q: unknown category", d.ID)
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

// Catalog is the read-only effect lookup the aggregator, turn processor,
// and applicator depend on.
type Catalog interface {
	Effect(id string) (*Def, bool)
	// Neutral is the value whose numeric LiveStats entries are pruned.
	Neutral() int
}

// Registry holds all known Defs keyed by ID. It implements Catalog and is
// immutable once loading completes.
type Registry struct {
	defs    map[string]*Def
	neutral int
}

// NewRegistry creates an empty Registry with the given neutral value.
func NewRegistry(neutral int) *Registry {
	return &Registry{defs: make(map[string]*Def), neutral: neutral}
}

// Register adds def, overwriting any existing entry with the same ID.
//
// Precondition: def must not be nil.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Effect returns the Def for id.
func (r *Registry) Effect(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Neutral returns the configured neutral value.
func (r *Registry) Neutral() int { return r.neutral }

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

// LoadDirectory reads every *.yaml file in dir. A file may hold a single
// definition or several YAML documents separated by "---".
//
// Postcondition: Returns a populated Registry, or an error naming the first
// file that fails to read, parse, or validate.
func LoadDirectory(dir string, neutral int) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := NewRegistry(neutral)
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
				return nil, fmt.Errorf("registering effect from %q: %w", path, err)
			}
		}
	}
	return reg, nil
}
