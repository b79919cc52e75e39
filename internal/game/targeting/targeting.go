// Package targeting resolves which characters an ability affects from its
// target type, the caster's surroundings, and the caster's relationships.
package targeting

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/rpcombat/internal/game/rules"
)

// TargetType selects the set of characters an ability affects.
type TargetType int

const (
	TargetUnknown TargetType = iota
	Self
	Single
	Area
	AreaAndSelf
	AllAllies
	AllAlliesAndSelf
	AllEnemies
	AllEnemiesAndSelf
)

var targetNames = map[TargetType]string{
	Self:              "self",
	Single:            "single",
	Area:              "area",
	AreaAndSelf:       "area_and_self",
	AllAllies:         "all_allies",
	AllAlliesAndSelf:  "all_allies_and_self",
	AllEnemies:        "all_enemies",
	AllEnemiesAndSelf: "all_enemies_and_self",
}

// String returns the catalog name of t.
func (t TargetType) String() string {
	if n, ok := targetNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseTargetType resolves a case-insensitive catalog name.
func ParseTargetType(s string) (TargetType, error) {
	for t, n := range targetNames {
		if strings.EqualFold(n, s) {
			return t, nil
		}
	}
	return TargetUnknown, fmt.Errorf("unknown target type %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML decoding.
func (t *TargetType) UnmarshalText(b []byte) error {
	v, err := ParseTargetType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t TargetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// IncludesSelf reports whether the caster is always part of the result.
func (t TargetType) IncludesSelf() bool {
	switch t {
	case Self, AreaAndSelf, AllAlliesAndSelf, AllEnemiesAndSelf:
		return true
	case TargetUnknown, Single, Area, AllAllies, AllEnemies:
		return false
	}
	return false
}

// Eligibility reports whether a character id exists and whether it may be
// targeted: in roleplay mode and conscious.
type Eligibility interface {
	Eligible(id string) (exists, eligible bool)
}

// EligibilityFunc adapts a function to Eligibility.
type EligibilityFunc func(id string) (exists, eligible bool)

// Eligible calls f(id).
func (f EligibilityFunc) Eligible(id string) (bool, bool) { return f(id) }

// Query is the input of one target resolution.
type Query struct {
	Type     TargetType
	CasterID string
	// TargetID is the explicit target for Single.
	TargetID string
	// Nearby lists candidate ids in presentation order.
	Nearby  []string
	Allies  []string
	Enemies []string
}

// Resolve returns the ids the query affects.
//
// The caster is removed from Nearby before anything else. Area types keep
// eligible candidates; ally and enemy types further intersect with the
// matching relationship set. *AndSelf types put the caster first. Empty
// candidate lists are not an error.
//
// Precondition: q.CasterID must be non-empty; elig must be non-nil.
// Postcondition: The result holds no duplicate and preserves Nearby order.
// Single returns a *rules.NotFoundError for an unknown target and a
// *rules.ValidationError for an ineligible or missing one.
func Resolve(q Query, elig Eligibility) ([]string, error) {
	if q.CasterID == "" {
		return nil, rules.Validationf("caster_id", "must not be empty")
	}
	switch q.Type {
	case Self:
		return []string{q.CasterID}, nil
	case Single:
		return resolveSingle(q, elig)
	case Area, AreaAndSelf:
		return collect(q, elig, nil), nil
	case AllAllies, AllAlliesAndSelf:
		return collect(q, elig, toSet(q.Allies)), nil
	case AllEnemies, AllEnemiesAndSelf:
		return collect(q, elig, toSet(q.Enemies)), nil
	case TargetUnknown:
	}
	return nil, rules.Validationf("target_type", "unsupported target type %s", q.Type)
}

func resolveSingle(q Query, elig Eligibility) ([]string, error) {
	if q.TargetID == "" {
		return nil, rules.Validationf("target_id", "single-target ability requires a target")
	}
	exists, ok := elig.Eligible(q.TargetID)
	if !exists {
		return nil, rules.NotFound("character", q.TargetID)
	}
	if !ok {
		return nil, rules.Validationf("target_id", "character %q is not a valid target", q.TargetID)
	}
	return []string{q.TargetID}, nil
}

// collect filters Nearby by eligibility and, when filter is non-nil, by
// membership in filter.
func collect(q Query, elig Eligibility, filter map[string]struct{}) []string {
	seen := map[string]struct{}{q.CasterID: {}}
	out := make([]string, 0, len(q.Nearby)+1)
	if q.Type.IncludesSelf() {
		out = append(out, q.CasterID)
	}
	for _, id := range q.Nearby {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if filter != nil {
			if _, ok := filter[id]; !ok {
				continue
			}
		}
		if _, ok := elig.Eligible(id); !ok {
			continue
		}
		out = append(out, id)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
