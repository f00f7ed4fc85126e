package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ideaforge/internal/config"
	"ideaforge/internal/provider"
)

const (
	apiVersion  = "2023-06-01"
	maxTokens   = 2048
	temperature = 0.7
)

// Provider implements the Anthropic Messages dialect: x-api-key header,
// "messages" request with content blocks, text blocks in the response.
type Provider struct {
	name     string
	apiKey   string
	endpoint string
	model    string
	headers  map[string]string
	timeout  time.Duration
	client   *http.Client
}

// New constructs a Claude provider instance.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("claude provider %q requires a model", cfg.Name)
	}
	if cfg.TimeoutMS <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %dms", cfg.TimeoutMS)
	}

	return &Provider{
		name:     cfg.Name,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: endpoint,
		model:    cfg.Model,
		headers:  cfg.Headers,
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		client:   client,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Dialect() string {
	return config.DialectClaude
}

func (p *Provider) Call(ctx context.Context, prompt string) ([]byte, error) {
	if config.IsPlaceholderKey(p.apiKey) {
		return nil, fmt.Errorf("claude api key: %w", provider.ErrNotConfigured)
	}

	payload := messagePayload{
		Model: p.model,
		Messages: []message{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt}}},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	return provider.Send(ctx, p.client, p.timeout, func(ctx context.Context) (*http.Request, error) {
		return p.newRequest(ctx, payload)
	})
}

// ExtractText returns the first text block of the response; non-text blocks are skipped.
func (p *Provider) ExtractText(payload []byte) (string, error) {
	var resp messageResponse
	if err := provider.DecodeJSON(payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%w: claude response missing content blocks", provider.ErrMalformedResponse)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: claude response has no text block", provider.ErrMalformedResponse)
}

func (p *Provider) newRequest(ctx context.Context, payload messagePayload) (*http.Request, error) {
	req, err := provider.NewJSONRequest(ctx, p.endpoint, payload)
	if err != nil {
		return nil, err
	}

	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type messagePayload struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messageResponse struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}
