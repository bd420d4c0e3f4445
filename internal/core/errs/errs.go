// Package errs holds the simulation error taxonomy shared by managers,
// systems and the event bus.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrCircuitExceeded  = errors.New("event circuit exceeded")
	ErrInvariant        = errors.New("invariant violated")
)

// Error is a typed failure carrying the operation and the entity involved.
type Error struct {
	Kind   error  // one of the sentinels above
	Op     string // e.g. "planet.remove_resources"
	Entity string // "planet", "ship", "faction" or ""
	ID     uint64
	Msg    string
	Err    error // optional cause
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Entity != "" {
		msg = fmt.Sprintf("%s %d: %s", e.Entity, e.ID, msg)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a bad identifier.
func NotFound(op, entity string, id uint64) error {
	return &Error{Kind: ErrNotFound, Op: op, Entity: entity, ID: id}
}

// Invalid reports a violated precondition.
func Invalid(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidOperation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidEntity reports a violated precondition on a specific entity.
func InvalidEntity(op, entity string, id uint64, format string, args ...any) error {
	return &Error{Kind: ErrInvalidOperation, Op: op, Entity: entity, ID: id, Msg: fmt.Sprintf(format, args...)}
}

// Circuit reports a tripped dispatch iteration guard.
func Circuit(op string, limit int) error {
	return &Error{Kind: ErrCircuitExceeded, Op: op, Msg: fmt.Sprintf("more than %d dispatch iterations", limit)}
}

// Invariant wraps a broken post-mutation invariant.
func Invariant(op, entity string, id uint64, cause error) error {
	return &Error{Kind: ErrInvariant, Op: op, Entity: entity, ID: id, Err: cause}
}

// IsFatal reports whether err must abort the tick.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCircuitExceeded) || errors.Is(err, ErrInvariant)
}
