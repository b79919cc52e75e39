// Package rules defines the error kinds shared by the effect and combat
// resolution packages.
package rules

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrInvariant  = errors.New("invariant violation")
)

// ValidationError reports malformed input, an ineligible-but-existing
// target, an ability the caster does not own, or a caster that is not in
// roleplay mode.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown character, ability, or effect id.
type NotFoundError struct {
	Kind string // "character", "ability", "effect"
	ID   string
}

// Error implements error.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvariantViolation reports state that a correct host never produces,
// such as a negative turn count reaching the turn processor or HP outside
// [0, maxHP] on entry. It is never recovered locally.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

// Error implements error.
func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Detail)
}

// Is reports whether target is ErrInvariant.
func (e *InvariantViolation) Is(target error) bool { return target == ErrInvariant }

// Validationf builds a ValidationError with a formatted reason.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Invariantf builds an InvariantViolation with a formatted detail.
func Invariantf(invariant, format string, args ...any) error {
	return &InvariantViolation{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}
