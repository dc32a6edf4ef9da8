package vision

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoCredentials is returned when neither an API key nor a credentials
	// file is configured.
	ErrNoCredentials = errors.New("vision: API key or credentials file required")

	// ErrEmptyImage is returned when Classify is called without image data.
	ErrEmptyImage = errors.New("vision: empty image")

	// ErrMalformedResponse is returned when the service response cannot be
	// interpreted.
	ErrMalformedResponse = errors.New("vision: malformed response")
)

// APIError represents an error response from the Vision API, either an HTTP
// failure or a per-image error status inside a successful batch response.
type APIError struct {
	// StatusCode is the HTTP status code (0 for per-image errors).
	StatusCode int

	// Code is the google.rpc status code for per-image errors.
	Code int64

	// Message is the error message from the API.
	Message string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("vision [%s]: image error (code %d): %s",
			e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("vision [%s]: API error %d: %s",
		e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsForbidden returns true if the key is invalid or the API is disabled (HTTP 403).
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == 403
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ProviderError wraps a transport or decoding error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("vision [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
