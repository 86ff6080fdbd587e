package shared

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	// KindValidation covers malformed or missing input, rejected before any mutation.
	KindValidation Kind = "validation"
	// KindConflict covers state conflicts: double void, oversell, duplicate resubmission.
	KindConflict Kind = "conflict"
	// KindNotFound covers unknown batch or item identifiers.
	KindNotFound Kind = "not_found"
	// KindInternal covers storage and other transient failures; safe to retry.
	KindInternal Kind = "internal"
)

// Error is a kind-tagged domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps err as an internal failure with a caller-safe message.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserSafeMessage returns a message suitable for API consumers. Internal
// failures are masked; the other kinds carry messages written for callers.
func UserSafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "an unexpected error occurred, please retry"
}
