// Package apperr defines the error taxonomy shared by all handlers.
// Every failure a route can surface maps to one Kind with a fixed HTTP
// status and a machine-readable code, serialized uniformly at the route
// boundary by the echo error handler in this package.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindTokenExpired
	KindPermissionDenied
	KindValidation
	KindUserExists
	KindConflict
	KindNotFound
	KindTooManyRequests
)

// Error carries a taxonomy kind plus a human message. The wrapped cause
// (if any) is logged but never serialized to clients.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Unauthorized(message string) *Error     { return New(KindUnauthorized, message) }
func TokenExpired(message string) *Error     { return New(KindTokenExpired, message) }
func PermissionDenied(message string) *Error { return New(KindPermissionDenied, message) }
func Validation(message string) *Error       { return New(KindValidation, message) }
func UserExists(message string) *Error       { return New(KindUserExists, message) }
func Conflict(message string) *Error         { return New(KindConflict, message) }
func NotFound(message string) *Error         { return New(KindNotFound, message) }
func TooManyRequests(message string) *Error  { return New(KindTooManyRequests, message) }
func Internal(cause error) *Error            { return Wrap(KindInternal, "internal error", cause) }

// Status returns the fixed HTTP status for a kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized, KindTokenExpired:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindUserExists, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable code clients switch on.
func (k Kind) Code() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindTokenExpired:
		return "token_expired"
	case KindPermissionDenied:
		return "permission_denied"
	case KindValidation:
		return "validation"
	case KindUserExists:
		return "user_exists"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// KindOf extracts the taxonomy kind from any error chain,
// defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
