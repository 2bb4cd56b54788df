package traits

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolved is the panic value when a Recursive placeholder is
	// used before it was resolved.
	ErrUnresolved = errors.New("traits: placeholder used before it was resolved")

	// ErrAlreadyResolved is returned when a placeholder is set twice.
	ErrAlreadyResolved = errors.New("traits: placeholder already resolved")
)

// GuardViolationError reports a value rejected by a guarded traits
// predicate. It depends on the value, not the type, and is never cached.
type GuardViolationError struct {
	Traits string
	Reason string
}

func (e *GuardViolationError) Error() string {
	return fmt.Sprintf("%s: value rejected: %s", e.Traits, e.Reason)
}

// TypeMismatchError reports two declarations that disagree on a field's
// type.
type TypeMismatchError struct {
	Record string
	Field  string
	First  string
	Second string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("record %s: field %q declared as both %s and %s", e.Record, e.Field, e.First, e.Second)
}

// DecodeError reports malformed input during deserialization.
type DecodeError struct {
	Offset  int64
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode at byte %d: %s", e.Offset, e.Message)
}

// IsGuardViolation reports whether err is or wraps a GuardViolationError.
func IsGuardViolation(err error) bool {
	var ge *GuardViolationError
	return errors.As(err, &ge)
}

// IsDecodeError reports whether err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
