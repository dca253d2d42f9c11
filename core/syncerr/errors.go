package syncerr

import (
	"errors"
	"fmt"
)

// Kind classifies a versioning error.
type Kind string

const (
	// KindEntityNotFound means the entity does not exist in the backing repository.
	KindEntityNotFound Kind = "entity_not_found"
	// KindStateConflict means a version is no longer retained or concurrent
	// changes could not be merged automatically.
	KindStateConflict Kind = "state_conflict"
	// KindValidation means malformed input: bad field path, non-numeric
	// incremental value, unknown sync mode.
	KindValidation Kind = "validation"
	// KindInternal is anything else.
	KindInternal Kind = "internal"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrEntityNotFound = &Error{Kind: KindEntityNotFound}
	ErrStateConflict  = &Error{Kind: KindStateConflict}
	ErrValidation     = &Error{Kind: KindValidation}
)

// Error is the structured error returned by the versioning packages.
type Error struct {
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
	Path     string `json:"path,omitempty"`
	Cause    error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.EntityID != "" {
		msg += fmt.Sprintf(" (entity %s)", e.EntityID)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (field %s)", e.Path)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithPath returns a copy of e with the field path set.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// EntityNotFound reports a missing entity.
func EntityNotFound(entityID string) *Error {
	return &Error{Kind: KindEntityNotFound, Message: "entity not found", EntityID: entityID}
}

// StateConflict reports an unresolvable concurrent modification or an evicted version.
func StateConflict(entityID, format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...), EntityID: entityID}
}

// Validation reports malformed input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error.
func Wrap(err error, kind Kind, entityID, message string) *Error {
	return &Error{Kind: kind, Message: message, EntityID: entityID, Cause: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsConflict is shorthand for errors.Is(err, ErrStateConflict).
func IsConflict(err error) bool {
	return errors.Is(err, ErrStateConflict)
}

// IsNotFound is shorthand for errors.Is(err, ErrEntityNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
