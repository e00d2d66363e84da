// Package apperr defines the error taxonomy shared by every engine.
//
// Domain packages declare their own sentinels with New so that callers can match
// either the precise failure (errors.Is(err, ticketdomain.ErrTicketLocked)) or the
// broad kind (errors.Is(err, apperr.ErrInvalidState)).
package apperr

import "errors"

var (
	ErrValidation   = errors.New("validation")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid_state")
	ErrNotFound     = errors.New("not_found")
	ErrStorage      = errors.New("storage_failure")
)

var kinds = []error{ErrValidation, ErrConflict, ErrInvalidState, ErrNotFound, ErrStorage}

type Error struct {
	kind    error
	code    string
	message string
	cause   error
}

// New declares a coded error of the given kind.
func New(kind error, code, message string) *Error {
	return &Error{kind: kind, code: code, message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.code + ": " + e.cause.Error()
	}
	return e.code
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func (e *Error) Code() string    { return e.code }
func (e *Error) Message() string { return e.message }
func (e *Error) Kind() error     { return e.kind }

// Storage wraps an unexpected persistence failure. Errors that already carry a
// kind are returned untouched.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return err
	}
	return &Error{kind: ErrStorage, code: "storage_failure", message: "storage failure", cause: err}
}

// Conflict wraps a storage-level exclusivity violation.
func Conflict(code, message string, cause error) error {
	return &Error{kind: ErrConflict, code: code, message: message, cause: cause}
}

// KindOf returns the taxonomy kind carried by err, or nil for foreign errors.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Describe returns the machine code and human readable message for err.
func Describe(err error) (string, string) {
	var coded *Error
	if errors.As(err, &coded) && coded != nil {
		return coded.code, coded.message
	}
	switch KindOf(err) {
	case ErrValidation:
		return "validation", "invalid input"
	case ErrConflict:
		return "conflict", "resource is already taken"
	case ErrInvalidState:
		return "invalid_state", "operation not allowed in the current state"
	case ErrNotFound:
		return "not_found", "not found"
	default:
		return "storage_failure", "storage failure"
	}
}
