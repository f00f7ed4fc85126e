package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ideaforge/internal/config"
	"ideaforge/internal/fallback"
	"ideaforge/internal/pipeline"
	"ideaforge/internal/provider"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const concept = `## 🎮 GAME CONCEPT OVERVIEW
**Title Options:** Ronda Malam
## ⚙️ UNITY IMPLEMENTATION
WarungManager.cs runs the warung.
## 📅 DEVELOPMENT ROADMAP
Week 1: prototype
## 🎯 SCOPE & FEASIBILITY
One village
`

type stubClient struct {
	name string
	text string
	err  error
}

func (c *stubClient) Name() string    { return c.name }
func (c *stubClient) Dialect() string { return "fake" }

func (c *stubClient) Call(_ context.Context, prompt string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.text != "" {
		return []byte(c.text), nil
	}
	_, body, _ := strings.Cut(prompt, "Text to translate:\n")
	return []byte(body), nil
}

func (c *stubClient) ExtractText(payload []byte) (string, error) {
	return string(payload), nil
}

func testConfig(t *testing.T, port int) config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
server:
  port: %d
providers:
  - name: Gemini Primary
    dialect: gemini
    api_key: test
    timeout_ms: 1000
`, port)))
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, clients ...provider.Client) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(fallback.New(fallback.WithLogger(logger)), clients, pipeline.WithLogger(logger))
	srv, err := New(testConfig(t, 8080), p, logger)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func ideaBody(sessionID string) map[string]string {
	return map[string]string{
		"sessionId": sessionID,
		"keywords":  "ronda, warung",
		"platform":  "2D",
		"timeline":  "solo-short",
		"category":  "Horror",
	}
}

func TestHealthSetsSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &stubClient{name: "p", text: concept})

	rec := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestGenerateAndHistoryLifecycle(t *testing.T) {
	srv := newTestServer(t,
		&stubClient{name: "Gemini Primary", err: provider.ErrTimeout},
		&stubClient{name: "OpenRouter Primary", text: concept},
	)

	rec := do(t, srv, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	rec = do(t, srv, http.MethodPost, "/v1/ideas", ideaBody(created.SessionID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result pipeline.GenerationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "OpenRouter Primary", result.ProviderName)
	assert.True(t, result.Validation.Valid)
	require.Len(t, result.Failures, 1)

	rec = do(t, srv, http.MethodGet, "/v1/sessions/"+created.SessionID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Entries, 1)
	assert.Equal(t, "Unity 2D", string(history.Entries[0].Request.Platform))

	rec = do(t, srv, http.MethodDelete, "/v1/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reset sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	assert.NotEqual(t, created.SessionID, reset.SessionID)

	rec = do(t, srv, http.MethodGet, "/v1/sessions/"+created.SessionID+"/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found_error", decodeEnvelope(t, rec).Error.Type)

	rec = do(t, srv, http.MethodGet, "/v1/sessions/"+reset.SessionID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestGenerateRejectsInvalidParameters(t *testing.T) {
	srv := newTestServer(t, &stubClient{name: "p", text: concept})

	body := ideaBody("")
	body["platform"] = "VR"
	rec := do(t, srv, http.MethodPost, "/v1/ideas", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "invalid_request_error", env.Error.Type)
	var problems []string
	require.NoError(t, json.Unmarshal(env.Error.Details, &problems))
	assert.Len(t, problems, 2)
}

func TestGenerateReportsValidationFailure(t *testing.T) {
	srv := newTestServer(t, &stubClient{name: "p", text: "## 🎮 GAME CONCEPT OVERVIEW\nronda"})

	rec := do(t, srv, http.MethodPost, "/v1/ideas", ideaBody("game_gen_x"))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "validation_failed", env.Error.Type)
	assert.Contains(t, env.Error.Message, "Missing keywords: warung")
	assert.Contains(t, string(env.Error.Details), `"valid":false`)
}

func TestGenerateReportsExhaustion(t *testing.T) {
	srv := newTestServer(t,
		&stubClient{name: "Gemini Primary", err: provider.ErrNotConfigured},
		&stubClient{name: "OpenRouter Primary", err: provider.NewHTTPError(http.StatusTooManyRequests, "")},
	)

	rec := do(t, srv, http.MethodPost, "/v1/ideas", ideaBody("game_gen_x"))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "upstream_error", env.Error.Type)
	assert.Equal(t, exhaustedMessage, env.Error.Message)
	assert.Contains(t, string(env.Error.Details), "Gemini Primary")
	assert.Contains(t, string(env.Error.Details), "rate limit exceeded")
}

func TestTranslations(t *testing.T) {
	srv := newTestServer(t, &stubClient{name: "p"})

	rec := do(t, srv, http.MethodPost, "/v1/translations", map[string]string{"text": concept})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var full translationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	assert.Equal(t, "id", full.Language)
	assert.Contains(t, full.Text, "SCOPE & FEASIBILITY")

	rec = do(t, srv, http.MethodPost, "/v1/translations", map[string]string{
		"text": concept, "language": "fr", "section": "roadmap",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var section translationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &section))
	assert.Equal(t, "## 📅 DEVELOPMENT ROADMAP\nWeek 1: prototype", section.Text)
	assert.Equal(t, "DEVELOPMENT ROADMAP", section.Section)
}

func TestTranslationsRejectBadInput(t *testing.T) {
	srv := newTestServer(t, &stubClient{name: "p"})

	for _, body := range []string{
		`{"text":""}`,
		`{"text":"x","section":"credits"}`,
		`{"text":"x","language":"??"}`,
		`{"text":"x"}{"text":"y"}`,
		``,
	} {
		rec := do(t, srv, http.MethodPost, "/v1/translations", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "invalid_request_error", decodeEnvelope(t, rec).Error.Type, body)
	}
}

func TestBriefs(t *testing.T) {
	srv := newTestServer(t, &stubClient{name: "p"})

	rec := do(t, srv, http.MethodPost, "/v1/briefs", map[string]string{"text": concept})
	require.Equal(t, http.StatusOK, rec.Code)
	var brief briefResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &brief))
	assert.Contains(t, brief.Prompt, "Technical Requirements:\n⚙️ UNITY IMPLEMENTATION")

	rec = do(t, srv, http.MethodPost, "/v1/briefs", map[string]string{"text": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderStatus(t *testing.T) {
	srv := newTestServer(t,
		&stubClient{name: "up", text: "pong"},
		&stubClient{name: "down", err: provider.ErrNetwork},
	)

	rec := do(t, srv, http.MethodGet, "/v1/providers/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Providers []fallback.ProbeResult `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Providers, 2)
	assert.True(t, body.Providers[0].OK)
	assert.False(t, body.Providers[1].OK)
	assert.NotEmpty(t, body.Providers[1].Error)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, &stubClient{name: "p"})

	rec := do(t, srv, http.MethodGet, "/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeEnvelope(t, rec).Error.Message)
}

func TestNewRequiresPipeline(t *testing.T) {
	_, err := New(testConfig(t, 8080), nil, nil)
	assert.Error(t, err)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(fallback.New(fallback.WithLogger(logger)), []provider.Client{&stubClient{name: "p"}})
	srv, err := New(testConfig(t, port), p, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	transport := &http.Transport{DisableKeepAlives: true}
	client := &http.Client{Transport: transport, Timeout: time.Second}
	defer transport.CloseIdleConnections()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownGracePeriod):
		t.Fatal("server did not shut down")
	}
}
