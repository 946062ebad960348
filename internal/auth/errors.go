package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrInvalidToken    = errors.New("invalid token")
)

// Kind tags the outcome of an auth operation. A nil error is the Ok outcome.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateEmail
	KindInvalidCredentials
	KindUnauthenticated
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindDuplicateEmail:
		return "duplicate_email"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal_failure"
	}
}

// Status is the single mapping from outcome to HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindDuplicateEmail:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failed auth outcome. Message is safe to show to the caller; Err
// holds the internal cause for logs and is never serialized.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Fields, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the outcome tag carried by err. Untagged errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Public user-facing messages. The invalid-credentials text is shared by every
// login failure so callers cannot tell which check failed.
const (
	msgInvalidInput       = "Invalid input data"
	msgDuplicateEmail     = "An account with this email already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgRegisterFailed     = "An error occurred during registration"
	msgLoginFailed        = "An error occurred during login"
	msgChangeFailed       = "An error occurred while changing password"
	msgLookupFailed       = "An error occurred while retrieving the account"
)

func validationError(fields []string) *Error {
	return &Error{Kind: KindValidation, Message: msgInvalidInput, Fields: fields}
}
