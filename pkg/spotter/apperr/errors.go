// Package apperr defines the error kinds shared by the access and domain layers.
// Every failure that reaches a caller carries one stable Kind tag; the message is
// for logs only.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error tag.
type Kind string

const (
	// Authentication
	KindInvalidCredential Kind = "AUTH_INVALID"
	KindUnknownSubject    Kind = "AUTH_UNKNOWN_SUBJECT"

	// Access decisions
	KindRoleNotPermitted Kind = "ROLE_NOT_PERMITTED"
	KindNotOwner         Kind = "NOT_OWNER"

	// Domain consistency
	KindNotFound          Kind = "NOT_FOUND"
	KindFull              Kind = "FULL"
	KindAlreadyJoined     Kind = "ALREADY_JOINED"
	KindForbidden         Kind = "FORBIDDEN"
	KindCapacityUnderflow Kind = "CAPACITY_UNDERFLOW"
	KindConflict          Kind = "CONFLICT"

	// Request shape and infrastructure
	KindInvalidInput Kind = "INVALID_INPUT"
	KindInternal     Kind = "INTERNAL"
)

// Class groups kinds by the layer that produced them.
type Class string

const (
	ClassAuth     Class = "auth"
	ClassAccess   Class = "access"
	ClassDomain   Class = "domain"
	ClassInput    Class = "input"
	ClassInternal Class = "internal"
)

// Kinds lists every kind. Callers that map kinds to outcomes test against it.
func Kinds() []Kind {
	return []Kind{
		KindInvalidCredential,
		KindUnknownSubject,
		KindRoleNotPermitted,
		KindNotOwner,
		KindNotFound,
		KindFull,
		KindAlreadyJoined,
		KindForbidden,
		KindCapacityUnderflow,
		KindConflict,
		KindInvalidInput,
		KindInternal,
	}
}

// Class returns the layer a kind belongs to.
func (k Kind) Class() Class {
	switch k {
	case KindInvalidCredential, KindUnknownSubject:
		return ClassAuth
	case KindRoleNotPermitted, KindNotOwner:
		return ClassAccess
	case KindNotFound, KindFull, KindAlreadyJoined, KindForbidden, KindCapacityUnderflow, KindConflict:
		return ClassDomain
	case KindInvalidInput:
		return ClassInput
	default:
		return ClassInternal
	}
}

// Error is the typed failure carried through the core.
type Error struct {
	Kind    Kind   // Stable tag exposed to callers
	Message string // Internal message (for logs)
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Internal wraps an infrastructure failure.
func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredential = New(KindInvalidCredential, "invalid credential")
	ErrUnknownSubject    = New(KindUnknownSubject, "unknown subject")
	ErrRoleNotPermitted  = New(KindRoleNotPermitted, "role not permitted")
	ErrNotOwner          = New(KindNotOwner, "not owner")
	ErrNotFound          = New(KindNotFound, "not found")
	ErrFull              = New(KindFull, "event is full")
	ErrAlreadyJoined     = New(KindAlreadyJoined, "already joined")
	ErrForbidden         = New(KindForbidden, "forbidden")
	ErrCapacityUnderflow = New(KindCapacityUnderflow, "participant count would go negative")
	ErrConflict          = New(KindConflict, "conflict")
	ErrInvalidInput      = New(KindInvalidInput, "invalid input")
)
