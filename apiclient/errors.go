package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid api client configuration")
	// ErrNoRefreshToken indicates a 401 could not be recovered because no refresh token is stored
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// APIError represents a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Status     string
	// Body is the parsed JSON error body, empty when the body was missing or not JSON
	Body map[string]any
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Status
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("figureshelf API error: status %d: %s", e.StatusCode, msg)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an expired or missing access token
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// ValidationError indicates a 2xx response whose body did not match the expected shape
type ValidationError struct {
	Endpoint string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransportError indicates the request never produced an HTTP response
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RefreshError indicates the token refresh call itself failed.
// StatusCode is zero when the refresh call did not reach the backend.
type RefreshError struct {
	StatusCode int
	Err        error
}

func (e *RefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to refresh token: status %d", e.StatusCode)
	}
	return fmt.Sprintf("failed to refresh token: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is an *APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
