// Package apperr defines the errors the API surfaces to clients. Each error
// carries the HTTP status and message to render; anything else is treated as
// an internal failure.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindInvalidToken Kind = "invalid_token"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// InternalMessage is the only text a client ever sees for a 500.
const InternalMessage = "Hubo un error"

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind, status and message so that
// sentinel values declared with New work with errors.Is after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Status == t.Status && e.Message == t.Message
}

func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Validation builds a 400 carrying per-field messages.
func Validation(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: "datos no válidos", Fields: fields}
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: InternalMessage, Err: err}
}

// From returns err as an *Error, collapsing anything unrecognised to Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
