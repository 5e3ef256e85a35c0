// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Services wrap these with context via
// fmt.Errorf("%w: ...") and handlers pass the result to RespondError.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// BusinessRuleError marks a violation of a domain rule (insufficient stock,
// payment exceeding total debt). The message is safe to return to the caller.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

// BusinessRule builds a BusinessRuleError.
func BusinessRule(message string) error {
	return &BusinessRuleError{Message: message}
}

// RespondError maps domain errors to HTTP responses using RFC7807. Unknown
// errors become an opaque 500; their detail is for server logs only.
func RespondError(w http.ResponseWriter, err error) {
	var ruleErr *BusinessRuleError
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &ruleErr):
		Problem(w, http.StatusUnprocessableEntity, "Business Rule Violation", ruleErr.Message)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
