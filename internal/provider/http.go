package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// ContentTypeJSON is sent and accepted by every dialect.
	ContentTypeJSON = "application/json"
	// UserAgent identifies outbound provider requests.
	UserAgent = "ideaforge/0.1"

	maxResponseBytes = 4 << 20
	maxErrorBytes    = 64 * 1024
)

// RequestBuilder constructs the outbound request bound to the per-call context.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Send issues one request under a hard timeout and returns the response body of a
// 2xx answer. Failures are mapped to ErrTimeout, ErrNetwork or *HTTPError. If the
// caller's own context ends first, its error is returned instead.
func Send(ctx context.Context, client *http.Client, timeout time.Duration, build RequestBuilder) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := build(callCtx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, callCtx, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, NewHTTPError(resp.StatusCode, errorMessage(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, callCtx, timeout, err)
	}
	return body, nil
}

func classifyTransportError(parent, callCtx context.Context, timeout time.Duration, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// errorMessage extracts error.message from the JSON error envelope shared by the
// supported dialects.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Message
}

// NewJSONRequest marshals payload and prepares a POST with the common headers.
func NewJSONRequest(ctx context.Context, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", ContentTypeJSON)
	req.Header.Set("Accept", ContentTypeJSON)
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

// DecodeJSON unmarshals a provider payload, reporting ErrMalformedResponse on failure.
func DecodeJSON(payload []byte, target any) error {
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	return nil
}
