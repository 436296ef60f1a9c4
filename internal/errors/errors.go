package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Common error types for the web front end
var (
	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("refresh token request failed")
	ErrNoAuthState    = errors.New("auth state must be initialised by the session middleware")

	// OAuth errors
	ErrInvalidProvider = errors.New("invalid oauth provider")
	ErrInvalidCallback = errors.New("invalid oauth callback")

	// General errors
	ErrUnexpectedResponse = errors.New("unexpected response from api")
)

// APIError is the error body returned by the remote authentication API.
type APIError struct {
	StatusCode int                 `json:"-"`
	Message    string              `json:"message"`
	Code       string              `json:"error,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"` // per-field validation errors
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Errors) == 0 {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
	}
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, msg, strings.Join(fields, ", "))
}

// FieldError returns the first server-side validation message for a field.
func (e *APIError) FieldError(field string) string {
	if e == nil || len(e.Errors[field]) == 0 {
		return ""
	}
	return e.Errors[field][0]
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
