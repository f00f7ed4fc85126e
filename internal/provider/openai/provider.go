package openai

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
	maxTokens        = 2048
	temperature      = 0.7
	topP             = 0.8
	frequencyPenalty = 0.1
	presencePenalty  = 0.1
)

// Provider implements the OpenAI-compatible chat completions dialect used by
// OpenRouter: bearer token auth, "messages" request, "choices[0].message.content" response.
type Provider struct {
	name     string
	apiKey   string
	endpoint string
	model    string
	headers  map[string]string
	timeout  time.Duration
	client   *http.Client
}

// New creates a new OpenAI-compatible provider.
func New(cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("openai provider %q requires a model", cfg.Name)
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
	return config.DialectOpenAI
}

func (p *Provider) Call(ctx context.Context, prompt string) ([]byte, error) {
	if config.IsPlaceholderKey(p.apiKey) {
		return nil, fmt.Errorf("openai api key: %w", provider.ErrNotConfigured)
	}

	payload := buildChatPayload(p.model, prompt)
	return provider.Send(ctx, p.client, p.timeout, func(ctx context.Context) (*http.Request, error) {
		return p.newRequest(ctx, payload)
	})
}

func (p *Provider) ExtractText(payload []byte) (string, error) {
	var resp chatResponse
	if err := provider.DecodeJSON(payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai response did not include choices", provider.ErrMalformedResponse)
	}
	content := resp.Choices[0].Message.Content
	if content == nil {
		return "", fmt.Errorf("%w: openai choice has no message content", provider.ErrMalformedResponse)
	}
	return *content, nil
}

func (p *Provider) newRequest(ctx context.Context, payload chatPayload) (*http.Request, error) {
	req, err := provider.NewJSONRequest(ctx, p.endpoint, payload)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type chatPayload struct {
	Model            string          `json:"model"`
	Messages         []openAIMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p"`
	FrequencyPenalty float64         `json:"frequency_penalty"`
	PresencePenalty  float64         `json:"presence_penalty"`
}

type openAIMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

func buildChatPayload(model, prompt string) chatPayload {
	return chatPayload{
		Model: model,
		Messages: []openAIMessage{
			{Role: "user", Content: &prompt},
		},
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             topP,
		FrequencyPenalty: frequencyPenalty,
		PresencePenalty:  presencePenalty,
	}
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}
