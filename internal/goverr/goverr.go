// Package goverr defines the typed outcomes returned by governance operations.
//
// Every public operation in the storage and governance layers returns either
// nil or a *Error carrying one of the Kind values below. Raw storage errors
// are wrapped as KindInternal so callers never see driver text.
package goverr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it (the HTTP
// layer maps each Kind to a status code).
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindForbidden         Kind = "FORBIDDEN"
	KindBadRequest        Kind = "BAD_REQUEST"
	KindInternal          Kind = "INTERNAL"
)

// Error is a governance outcome with a stable kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string

	// From and To are set for KindInvalidTransition.
	From string
	To   string

	// Details carries structured context, e.g. blocking child counts.
	Details map[string]int

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports that an entity id does not resolve.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// Conflict reports a uniqueness or in-flight invariant violation.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports a state machine edge that is not permitted.
func InvalidTransition(entity string, from, to fmt.Stringer) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		From:    from.String(),
		To:      to.String(),
	}
}

// Forbidden reports a state-gated edit or delete attempted outside its window.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// BadRequest reports a missing required field or an invalid enum value.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage or encoding failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for errors that did not
// originate here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is a governance error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
