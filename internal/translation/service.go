// Package translation re-renders generated concepts in another language through
// the provider fallback chain.
package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"ideaforge/internal/models"
	"ideaforge/internal/prompt"
	"ideaforge/internal/provider"
	"ideaforge/internal/sections"
)

// DefaultLanguage is used when no target language is given.
const DefaultLanguage = "id"

// Runner executes a prompt against an ordered provider chain.
type Runner interface {
	Run(ctx context.Context, prompt string, clients []provider.Client) (models.ProviderResult, error)
}

// Service translates text using its own provider chain.
type Service struct {
	runner          Runner
	clients         []provider.Client
	defaultLanguage string
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultLanguage sets the language used when a call passes an empty code.
func WithDefaultLanguage(code string) Option {
	return func(s *Service) {
		if strings.TrimSpace(code) != "" {
			s.defaultLanguage = code
		}
	}
}

// New returns a Service that sends translation prompts to clients in order.
func New(runner Runner, clients []provider.Client, opts ...Option) *Service {
	s := &Service{
		runner:          runner,
		clients:         clients,
		defaultLanguage: DefaultLanguage,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LanguageName resolves a BCP 47 code such as "id" or "pt-BR" to its English
// display name.
func LanguageName(code string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: unsupported language code %q", models.ErrInvalidInput, code)
	}
	name := display.Languages(language.English).Name(tag)
	if name == "" {
		return tag.String(), nil
	}
	return name, nil
}

// Translate renders text in the language identified by code. An empty code
// selects the default language.
func (s *Service) Translate(ctx context.Context, text, code string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text to translate must not be empty", models.ErrInvalidInput)
	}
	if strings.TrimSpace(code) == "" {
		code = s.defaultLanguage
	}
	name, err := LanguageName(code)
	if err != nil {
		return "", err
	}

	res, err := s.runner.Run(ctx, prompt.BuildTranslation(text, name), s.clients)
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", name, err)
	}

	if lost := lostMarkers(text, res.Text); len(lost) > 0 {
		s.logger.Warn("translation dropped section headings",
			"language", name,
			"provider", res.Metadata.ProviderName,
			"markers", lost,
		)
	}
	return res.Text, nil
}

// TranslateSection extracts the section identified by marker from fullText and
// translates only that part.
func (s *Service) TranslateSection(ctx context.Context, fullText, marker, code string) (string, error) {
	section, ok := sections.Extract(fullText, marker)
	if !ok {
		return "", fmt.Errorf("%w: section %q not found", models.ErrInvalidInput, marker)
	}
	return s.Translate(ctx, section, code)
}

func lostMarkers(source, translated string) []string {
	var lost []string
	for _, sec := range sections.Required() {
		if strings.Contains(source, sec.Marker) && !strings.Contains(translated, sec.Marker) {
			lost = append(lost, sec.Marker)
		}
	}
	return lost
}
