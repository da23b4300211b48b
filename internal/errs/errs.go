// Package errs defines the error kinds shared by services and handlers.
//
// Services return *Error or *ValidationError values; handlers turn any error
// into an HTTPError with ToHTTP. Both types unwrap to one of the Err* kinds,
// so callers can branch with errors.Is.
package errs

import (
	"errors"
	"strings"
)

// Error kinds.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Machine-readable codes returned to clients.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeDuplicateRequest  = "DUPLICATE_ACTIVE_REQUEST"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUserExists        = "USER_EXISTS"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

// Error is a domain error of a given kind.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind so errors.Is(err, ErrNotFound) works.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound returns an ErrNotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Code: CodeNotFound, Message: message}
}

// Conflict returns an ErrConflict error with the given code.
func Conflict(code, message string) *Error {
	return &Error{Kind: ErrConflict, Code: code, Message: message}
}

// Unauthorized returns an ErrUnauthorized error.
func Unauthorized(code, message string) *Error {
	return &Error{Kind: ErrUnauthorized, Code: code, Message: message}
}

// Forbidden returns an ErrForbidden error.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Code: CodeForbidden, Message: message}
}

// FieldError is a validation failure on a single input field.
//
//	{ "field": "email", "error": "email is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError collects field-level failures.
type ValidationError struct {
	Fields []FieldError
}

// Validation builds a ValidationError from the given field errors.
func Validation(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Field builds a ValidationError for a single field.
func Field(field, message string) *ValidationError {
	return Validation(FieldError{Field: field, Error: message})
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Error: message})
}

// Err returns e when at least one field failed, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
