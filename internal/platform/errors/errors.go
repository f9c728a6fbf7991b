package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every failure that leaves a module carries exactly one of these.
var (
	ErrNetwork    = errors.New("network error")
	ErrAuth       = errors.New("authentication error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoActiveSession     = errors.New("no active session")
	ErrActiveSessionExists = errors.New("active session already exists")
)

// Error is a classified failure. Message is safe to show to an end user.
type Error struct {
	Kind    error
	Op      string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func Network(op string, err error) error {
	return &Error{Kind: ErrNetwork, Op: op, Message: "request did not complete", Err: err}
}

func Auth(op, message string, err error) error {
	return &Error{Kind: ErrAuth, Op: op, Message: message, Err: err}
}

// Unauthorized marks a rejected or expired credential. Callers holding a cached
// identity must drop it.
func Unauthorized(op string, err error) error {
	return &Error{Kind: ErrAuth, Op: op, Message: "session expired, please sign in again", Status: http.StatusUnauthorized, Err: err}
}

func Conflict(op, message string) error {
	return &Error{Kind: ErrConflict, Op: op, Message: message, Status: http.StatusConflict}
}

func NotFound(op, message string) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: message, Status: http.StatusNotFound}
}

func Validation(op, message string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: message, Status: http.StatusBadRequest}
}

// FromStatus classifies a non-2xx response status.
func FromStatus(op string, status int, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: ErrAuth, Op: op, Message: orDefault(message, "session expired, please sign in again"), Status: status}
	case status == http.StatusForbidden:
		return &Error{Kind: ErrAuth, Op: op, Message: orDefault(message, "access denied"), Status: status}
	case status == http.StatusConflict:
		return Conflict(op, orDefault(message, "resource already exists"))
	case status == http.StatusNotFound:
		return NotFound(op, orDefault(message, "resource not found"))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return Validation(op, orDefault(message, "request rejected"))
	default:
		return &Error{Kind: ErrNetwork, Op: op, Message: orDefault(message, "unexpected response"), Status: status}
	}
}

// KindOf returns the error kind or nil for unclassified errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrNetwork, ErrAuth, ErrConflict, ErrNotFound, ErrValidation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func KindName(err error) string {
	switch KindOf(err) {
	case ErrNetwork:
		return "network"
	case ErrAuth:
		return "auth"
	case ErrConflict:
		return "conflict"
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation"
	default:
		return "internal"
	}
}

func IsUnauthorized(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == ErrAuth && appErr.Status == http.StatusUnauthorized
}

// Message extracts the user-displayable message, falling back to err.Error().
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
