package effect

import (
	"fmt"
	"strconv"
	"strings"
)

// SceneSentinel is the storage encoding of a Scene duration. It is only
// meaningful at the persistence boundary; engine code uses Duration.IsScene.
const SceneSentinel = 999

// Duration is either a number of remaining turns or the rest of the scene.
// The zero value means instantaneous (no active instance is created).
type Duration struct {
	scene bool
	turns int
}

// Turns returns a turn-counted duration.
func Turns(n int) Duration { return Duration{turns: n} }

// Scene returns a duration that lasts until the scene ends.
func Scene() Duration { return Duration{scene: true} }

// IsScene reports whether d persists until an explicit scene end.
func (d Duration) IsScene() bool { return d.scene }

// IsInstant reports whether d is the zero (instantaneous) duration.
func (d Duration) IsInstant() bool { return !d.scene && d.turns == 0 }

// Remaining returns the remaining turn count. It is 0 for Scene durations.
func (d Duration) Remaining() int { return d.turns }

// Decrement returns d advanced by one turn. Scene durations never change.
func (d Duration) Decrement() Duration {
	if d.scene {
		return d
	}
	return Duration{turns: d.turns - 1}
}

// Longer reports whether d strictly outlasts other. Scene outlasts any
// turn count; two Scene durations are equal.
func (d Duration) Longer(other Duration) bool {
	switch {
	case d.scene && other.scene:
		return false
	case d.scene:
		return true
	case other.scene:
		return false
	default:
		return d.turns > other.turns
	}
}

// String renders "turns:N", "scene", or "instant".
func (d Duration) String() string {
	switch {
	case d.scene:
		return "scene"
	case d.turns == 0:
		return "instant"
	default:
		return fmt.Sprintf("turns:%d", d.turns)
	}
}

// ParseDuration parses a catalog duration template: "turns:N", "scene", or
// "" / "instant" for instantaneous effects.
//
// Postcondition: a turns template has N >= 1.
func ParseDuration(s string) (Duration, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch {
	case norm == "" || norm == "instant":
		return Duration{}, nil
	case norm == "scene":
		return Scene(), nil
	case strings.HasPrefix(norm, "turns:"):
		n, err := strconv.Atoi(strings.TrimPrefix(norm, "turns:"))
		if err != nil {
			return Duration{}, fmt.Errorf("invalid turn count in duration %q: %w", s, err)
		}
		if n < 1 {
			return Duration{}, fmt.Errorf("duration %q must have at least 1 turn", s)
		}
		return Turns(n), nil
	default:
		return Duration{}, fmt.Errorf("unknown duration %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	if d.IsInstant() {
		return []byte(""), nil
	}
	return []byte(d.String()), nil
}

// Encode returns the storage form of d: the remaining turns, or
// SceneSentinel for Scene.
func (d Duration) Encode() int {
	if d.scene {
		return SceneSentinel
	}
	return d.turns
}

// DecodeDuration converts a stored turns-left value back to a Duration.
func DecodeDuration(turnsLeft int) Duration {
	if turnsLeft == SceneSentinel {
		return Scene()
	}
	return Turns(turnsLeft)
}
