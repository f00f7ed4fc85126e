package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured indicates the provider credential is missing or a placeholder.
var ErrNotConfigured = errors.New("provider credential not configured")

// ErrTimeout indicates the provider did not answer within its time budget.
var ErrTimeout = errors.New("provider request timed out")

// ErrHTTP matches any *HTTPError.
var ErrHTTP = errors.New("provider returned an error status")

// ErrMalformedResponse indicates a 2xx response without the expected payload shape.
var ErrMalformedResponse = errors.New("malformed provider response")

// ErrNetwork indicates a transport-level failure such as DNS or a reset connection.
var ErrNetwork = errors.New("provider network error")

// ErrUnknownProvider indicates a chain references a provider that is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Client is the uniform call contract over one provider's wire dialect.
// Credential, endpoint and timeout are bound at construction.
type Client interface {
	Name() string
	Dialect() string
	// Call performs exactly one outbound request and returns the raw response body.
	Call(ctx context.Context, prompt string) ([]byte, error)
	// ExtractText pulls the generated text out of a raw response body.
	ExtractText(payload []byte) (string, error)
}

// HTTPError is a non-2xx provider response mapped to a stable message.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Is reports ErrHTTP so callers can match any status failure.
func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

// NewHTTPError maps a status code and the provider's own error message to the
// closed error taxonomy. Raw status text is never passed through.
func NewHTTPError(status int, providerMessage string) *HTTPError {
	if providerMessage == "" {
		providerMessage = "Unknown error"
	}

	var msg string
	switch status {
	case http.StatusBadRequest:
		msg = "bad request: " + providerMessage
	case http.StatusUnauthorized:
		msg = "invalid API key"
	case http.StatusForbidden:
		msg = "access forbidden"
	case http.StatusTooManyRequests:
		msg = "rate limit exceeded"
	case http.StatusInternalServerError:
		msg = "server error"
	default:
		msg = providerMessage
	}
	return &HTTPError{Status: status, Message: msg}
}
