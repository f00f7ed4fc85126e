package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ideaforge/internal/config"
	"ideaforge/internal/provider"
)

const (
	maxOutputTokens = 2048
	temperature     = 0.7
	topP            = 0.8
	topK            = 40
	blockThreshold  = "BLOCK_MEDIUM_AND_ABOVE"
)

// Provider speaks the Gemini generateContent dialect: API key in the query
// string, "contents/parts" request, "candidates[0].content.parts[0].text" response.
type Provider struct {
	name     string
	apiKey   string
	endpoint string
	headers  map[string]string
	timeout  time.Duration
	client   *http.Client
}

// New creates a new Gemini provider.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint must not be empty")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if cfg.TimeoutMS <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %dms", cfg.TimeoutMS)
	}

	return &Provider{
		name:     cfg.Name,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: endpoint,
		headers:  cfg.Headers,
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		client:   client,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Dialect() string {
	return config.DialectGemini
}

func (p *Provider) Call(ctx context.Context, prompt string) ([]byte, error) {
	if config.IsPlaceholderKey(p.apiKey) {
		return nil, fmt.Errorf("gemini api key: %w", provider.ErrNotConfigured)
	}

	target, err := p.requestURL()
	if err != nil {
		return nil, err
	}

	payload := buildPayload(prompt)
	return provider.Send(ctx, p.client, p.timeout, func(ctx context.Context) (*http.Request, error) {
		req, err := provider.NewJSONRequest(ctx, target, payload)
		if err != nil {
			return nil, err
		}
		for k, v := range p.headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

func (p *Provider) ExtractText(payload []byte) (string, error) {
	var resp generateResponse
	if err := provider.DecodeJSON(payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini response did not include candidates", provider.ErrMalformedResponse)
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", fmt.Errorf("%w: gemini candidate has no text part", provider.ErrMalformedResponse)
	}
	return *parts[0].Text, nil
}

func (p *Provider) requestURL() (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", p.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type generatePayload struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

func buildPayload(prompt string) generatePayload {
	return generatePayload{
		Contents: []content{{Parts: []part{{Text: &prompt}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: maxOutputTokens,
			Temperature:     temperature,
			TopP:            topP,
			TopK:            topK,
		},
		SafetySettings: []safetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: blockThreshold},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: blockThreshold},
		},
	}
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
