package effect

import "time"

// Attribution records who or what applied an effect.
type Attribution struct {
	CasterName string `json:"caster_name,omitempty"`
	SourceType string `json:"source_type,omitempty"` // "ability" or "attack"
	SourceID   string `json:"source_id,omitempty"`
}

// Active is one applied effect instance on a character.
type Active struct {
	EffectID    string
	Name        string
	Category    Category
	Duration    Duration
	AppliedAt   time.Time
	Attribution Attribution
}

// NewActive builds an instance of def with the definition's duration template.
//
// Precondition: def must not be nil and def.Duration must not be instantaneous.
func NewActive(def *Def, at time.Time, attr Attribution) Active {
	return Active{
		EffectID:    def.ID,
		Name:        def.DisplayName(),
		Category:    def.Category,
		Duration:    def.Duration,
		AppliedAt:   at,
		Attribution: attr,
	}
}

// IndexOf returns the position of the first instance of effectID, or -1.
func IndexOf(effects []Active, effectID string) int {
	for i, a := range effects {
		if a.EffectID == effectID {
			return i
		}
	}
	return -1
}

// CloneAll returns a copy of effects that shares no backing array.
func CloneAll(effects []Active) []Active {
	if effects == nil {
		return nil
	}
	out := make([]Active, len(effects))
	copy(out, effects)
	return out
}
