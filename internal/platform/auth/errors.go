package auth

import (
	"fmt"
	"net/http"
)

// AuthError is the structured denial returned by every authorization check.
// Status is the HTTP-mappable class (401 unauthenticated, 403 forbidden),
// Code is a short machine-readable reason, and Diagnostic carries the
// operator-facing detail. The Diagnostic is written to the operational log
// only; response bodies never include it.
type AuthError struct {
	Status     int
	Code       string
	Diagnostic string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %d %s: %s", e.Status, e.Code, e.Diagnostic)
}

// Unauthenticated builds a 401-class denial: the token is missing liveness
// (expired, inactive, or failed signature/introspection validation).
func Unauthenticated(code, format string, args ...interface{}) *AuthError {
	return &AuthError{
		Status:     http.StatusUnauthorized,
		Code:       code,
		Diagnostic: fmt.Sprintf(format, args...),
	}
}

// Forbidden builds a 403-class denial: the token is authenticated but
// insufficiently scoped or contextualized for the requested operation.
func Forbidden(code, format string, args ...interface{}) *AuthError {
	return &AuthError{
		Status:     http.StatusForbidden,
		Code:       code,
		Diagnostic: fmt.Sprintf(format, args...),
	}
}
