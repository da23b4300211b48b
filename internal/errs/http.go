package errs

import (
	"errors"
	"net/http"
	"strings"
)

// HTTPError is the body clients receive under the "error" key.
type HTTPError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError builds an HTTPError. An empty code defaults to the status text
// in UPPER_SNAKE form.
func NewHTTPError(status int, code, message string) *HTTPError {
	if code == "" {
		code = MakeUpperCaseWithUnderscores(http.StatusText(status))
	}
	return &HTTPError{Code: code, Message: message, Status: status}
}

// NewInternalServerError returns the generic 500. The underlying error is
// never exposed to clients.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:    CodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
	}
}

// ToHTTP maps any error onto an HTTPError. Unknown errors become a 500.
func ToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return &HTTPError{
			Code:    CodeValidation,
			Message: verr.Error(),
			Status:  http.StatusBadRequest,
			Errors:  verr.Fields,
		}
	}

	var derr *Error
	if errors.As(err, &derr) {
		status := StatusOf(derr.Kind)
		return NewHTTPError(status, derr.Code, derr.Message)
	}

	return NewInternalServerError()
}

// StatusOf returns the HTTP status for an error kind.
// Conflicts answer 400, matching the public API contract.
func StatusOf(kind error) int {
	switch {
	case errors.Is(kind, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(kind, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// MakeUpperCaseWithUnderscores converts "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
