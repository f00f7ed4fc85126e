package factory

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ideaforge/internal/config"
	"ideaforge/internal/provider"
	claudeProvider "ideaforge/internal/provider/claude"
	geminiProvider "ideaforge/internal/provider/gemini"
	openaiProvider "ideaforge/internal/provider/openai"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// RegisterConfiguredProviders constructs a client for every configured provider and
// stores them in the registry in configuration order.
func RegisterConfiguredProviders(cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	for _, pc := range cfg.Providers {
		client, err := New(pc)
		if err != nil {
			return fmt.Errorf("initialise provider %q: %w", pc.Name, err)
		}
		if err := registry.Register(client); err != nil {
			return fmt.Errorf("register provider %q: %w", pc.Name, err)
		}
	}

	return nil
}

// New builds the dialect adapter for a single provider configuration.
func New(pc config.ProviderConfig) (provider.Client, error) {
	httpClient := newHTTPClient(time.Duration(pc.TimeoutMS) * time.Millisecond)

	switch pc.Dialect {
	case config.DialectGemini:
		return geminiProvider.New(pc, httpClient)
	case config.DialectOpenAI:
		return openaiProvider.New(pc, httpClient)
	case config.DialectClaude:
		return claudeProvider.New(pc, httpClient)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", pc.Dialect)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
