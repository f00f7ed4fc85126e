package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	name string
}

func (s stubClient) Name() string { return s.name }
func (s stubClient) Dialect() string { return "stub" }
func (s stubClient) Call(context.Context, string) ([]byte, error) { return nil, nil }
func (s stubClient) ExtractText(payload []byte) (string, error) { return string(payload), nil }

func TestNewHTTPErrorDoesNotLeakStatusText(t *testing.T) {
	err := NewHTTPError(http.StatusUnauthorized, "API key not valid. Please pass a valid API key.")
	assert.Equal(t, "invalid API key", err.Message)
	assert.True(t, errors.Is(err, ErrHTTP))

	err = NewHTTPError(http.StatusBadGateway, "")
	assert.Equal(t, "Unknown error", err.Message)
	assert.Equal(t, "status 502: Unknown error", err.Error())
}

func TestSendReturnsBodyOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ContentTypeJSON, r.Header.Get("Content-Type"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := Send(context.Background(), srv.Client(), time.Second, func(ctx context.Context) (*http.Request, error) {
		return NewJSONRequest(ctx, srv.URL, map[string]string{"a": "b"})
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestSendPropagatesBuildError(t *testing.T) {
	buildErr := errors.New("boom")
	_, err := Send(context.Background(), http.DefaultClient, time.Second, func(context.Context) (*http.Request, error) {
		return nil, buildErr
	})
	assert.ErrorIs(t, err, buildErr)
}

func TestDecodeJSONWrapsMalformed(t *testing.T) {
	var v struct{}
	assert.ErrorIs(t, DecodeJSON([]byte("{"), &v), ErrMalformedResponse)
}

func TestRegistryKeepsPriorityOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"Gemini Primary", "Gemini Fallback", "OpenRouter Primary"} {
		require.NoError(t, r.Register(stubClient{name: name}))
	}

	assert.Error(t, r.Register(stubClient{name: "Gemini Primary"}))
	assert.Error(t, r.Register(nil))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "Gemini Primary", all[0].Name())
	assert.Equal(t, "OpenRouter Primary", all[2].Name())

	chain, err := r.Chain([]string{"OpenRouter Primary", "Gemini Primary"})
	require.NoError(t, err)
	assert.Equal(t, "OpenRouter Primary", chain[0].Name())
	assert.Equal(t, "Gemini Primary", chain[1].Name())

	_, err = r.Chain([]string{"Missing"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	c, err := r.Lookup("Gemini Fallback")
	require.NoError(t, err)
	assert.Equal(t, "Gemini Fallback", c.Name())
}
