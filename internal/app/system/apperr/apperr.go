// Package apperr defines the error kinds surfaced by the attendance API and
// maps them onto HTTP responses.
//
// Services return *Error values (or wrap them); stores return plain errors
// or their own sentinels which services translate. Handlers call Write and
// never build error bodies by hand.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Kind classifies an error for callers and for the HTTP status mapping.
type Kind string

const (
	Unauthenticated   Kind = "unauthenticated"
	AccessDenied      Kind = "access_denied"
	DuplicateTimeIn   Kind = "duplicate_time_in"
	NoOpenTimeIn      Kind = "no_open_time_in"
	MediaUploadFailed Kind = "media_upload_failed"
	ValidationFailed  Kind = "validation_failed"
	NotFound          Kind = "not_found"
	Internal          Kind = "internal"
)

// Error carries a Kind, a message safe to show to clients, and an optional
// underlying cause that is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNoOpenTimeIn)
// works regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated   = New(Unauthenticated, "sign in required")
	ErrAccessDenied      = New(AccessDenied, "access denied")
	ErrDuplicateTimeIn   = New(DuplicateTimeIn, "already timed in today")
	ErrNoOpenTimeIn      = New(NoOpenTimeIn, "no time-in recorded for today, or already timed out")
	ErrMediaUploadFailed = New(MediaUploadFailed, "failed to store image")
	ErrValidation        = New(ValidationFailed, "invalid request")
	ErrNotFound          = New(NotFound, "not found")
	ErrInternal          = New(Internal, "internal error")
)

// New returns an *Error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an *Error that records err as its cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validation is shorthand for a ValidationFailed error with a specific message.
func Validation(msg string) *Error {
	return New(ValidationFailed, msg)
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case AccessDenied:
		return http.StatusForbidden
	case DuplicateTimeIn, NoOpenTimeIn:
		return http.StatusConflict
	case MediaUploadFailed:
		return http.StatusBadGateway
	case ValidationFailed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type body struct {
	Error string `json:"error"`
	Code  Kind   `json:"code"`
}

// Write renders err as a JSON error body with the matching status code.
// Internal and MediaUploadFailed errors are logged with their cause; the
// cause text is never sent to the client.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Wrap(Internal, ErrInternal.Message, err)
	}

	status := Status(e.Kind)
	if log != nil && status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("code", string(e.Kind)),
			zap.String("message", e.Message),
			zap.Error(err))
	}

	WriteJSON(w, status, body{Error: e.Message, Code: e.Kind})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
