// Package pipeline implements the generate operation: parameter validation,
// prompt rendering, provider fallback, response validation and history.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"ideaforge/internal/fallback"
	"ideaforge/internal/models"
	"ideaforge/internal/prompt"
	"ideaforge/internal/provider"
	"ideaforge/internal/session"
	"ideaforge/internal/translation"
	"ideaforge/internal/validator"
)

// Engine runs prompts against provider chains.
type Engine interface {
	Run(ctx context.Context, prompt string, clients []provider.Client) (models.ProviderResult, error)
	Probe(ctx context.Context, clients []provider.Client) []fallback.ProbeResult
}

// GenerationResult is what a caller gets back from Generate. Entry is nil when
// the text failed validation and was not recorded.
type GenerationResult struct {
	SessionID    string                   `json:"sessionId"`
	Text         string                   `json:"text"`
	ProviderName string                   `json:"providerName"`
	Metadata     models.ResultMetadata    `json:"metadata"`
	Failures     []models.ProviderFailure `json:"failures,omitempty"`
	Validation   models.ValidationOutcome `json:"validation"`
	Entry        *models.HistoryEntry     `json:"historyEntry,omitempty"`
}

// Pipeline wires the generation components together.
type Pipeline struct {
	engine     Engine
	clients    []provider.Client
	validator  *validator.Validator
	sessions   *session.Store
	translator *translation.Service
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidator replaces the default validator.
func WithValidator(v *validator.Validator) Option {
	return func(p *Pipeline) {
		if v != nil {
			p.validator = v
		}
	}
}

// WithSessions shares a session store with other components.
func WithSessions(s *session.Store) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sessions = s
		}
	}
}

// WithTranslator replaces the translation service, typically to give it its own chain.
func WithTranslator(t *translation.Service) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.translator = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a pipeline that generates with clients in priority order. Without
// WithTranslator, translations use the same chain.
func New(engine Engine, clients []provider.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:  engine,
		clients: clients,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.validator == nil {
		p.validator = validator.New()
	}
	if p.sessions == nil {
		p.sessions = session.NewStore()
	}
	if p.translator == nil {
		p.translator = translation.New(engine, clients, translation.WithLogger(p.logger))
	}
	return p
}

// Sessions exposes the session store backing history.
func (p *Pipeline) Sessions() *session.Store {
	return p.sessions
}

// Generate validates req, asks the provider chain for a concept and checks the
// answer. A failed content check is reported in the result, not as an error;
// only valid results are added to the session history.
func (p *Pipeline) Generate(ctx context.Context, req models.GenerationRequest) (GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return GenerationResult{}, err
	}

	text, err := prompt.Build(req)
	if err != nil {
		return GenerationResult{}, err
	}

	res, err := p.engine.Run(ctx, text, p.clients)
	if err != nil {
		return GenerationResult{SessionID: req.SessionID, Failures: res.Failures}, fmt.Errorf("generate: %w", err)
	}

	outcome := p.validator.Check(res.Text, prompt.Keywords(req))
	result := GenerationResult{
		SessionID:    req.SessionID,
		Text:         res.Text,
		ProviderName: res.Metadata.ProviderName,
		Metadata:     res.Metadata,
		Failures:     res.Failures,
		Validation:   outcome,
	}

	if !outcome.Valid {
		p.logger.Warn("generated text failed validation",
			"session", req.SessionID,
			"provider", res.Metadata.ProviderName,
			"warning", outcome.Warning,
		)
		return result, nil
	}

	entry := p.sessions.Ensure(req.SessionID).Record(req, res.Text, res.Metadata.ProviderName)
	result.Entry = &entry
	p.logger.Info("generation recorded",
		"session", req.SessionID,
		"entry", entry.ID,
		"provider", entry.ProviderName,
	)
	return result, nil
}

// Translate renders text in the language identified by code.
func (p *Pipeline) Translate(ctx context.Context, text, code string) (string, error) {
	return p.translator.Translate(ctx, text, code)
}

// TranslateSection translates a single section of a generated concept.
func (p *Pipeline) TranslateSection(ctx context.Context, fullText, marker, code string) (string, error) {
	return p.translator.TranslateSection(ctx, fullText, marker, code)
}

// Brief composes the implementation prompt for a generated concept.
func (p *Pipeline) Brief(resultText string) (string, error) {
	return prompt.BuildImplementationBrief(resultText)
}

// Probe checks connectivity of every generation provider.
func (p *Pipeline) Probe(ctx context.Context) []fallback.ProbeResult {
	return p.engine.Probe(ctx, p.clients)
}
