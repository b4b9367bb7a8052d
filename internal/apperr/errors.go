// Package apperr defines the error kinds surfaced to portal users and admins.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUpload       Kind = "upload"
	KindLedger       Kind = "ledger"
	KindPersistence  Kind = "persistence"
	KindGeneration   Kind = "generation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
)

// Error is a classified failure carrying a user-visible message.
type Error struct {
	Kind    Kind   // Failure class.
	Message string // User-visible message.
	Err     error  // Underlying cause, if any.
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation reports missing or invalid input.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// Upload reports a blob that failed to persist.
func Upload(message string, err error) *Error { return Wrap(KindUpload, message, err) }

// Ledger reports a failed transaction write during a balance change.
func Ledger(message string, err error) *Error { return Wrap(KindLedger, message, err) }

// Persistence reports a generic read/write failure from the data store.
func Persistence(message string, err error) *Error { return Wrap(KindPersistence, message, err) }

// Generation reports a failed or empty LLM call.
func Generation(message string, err error) *Error { return Wrap(KindGeneration, message, err) }

// Unauthorized reports a missing or invalid session.
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Forbidden reports an authenticated caller lacking the required role.
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// NotFound reports a missing record.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-visible message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return "internal error"
}

// HTTPStatus maps an error to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpload, KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
