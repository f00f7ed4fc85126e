package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/config"
	"ideaforge/internal/provider"
)

func TestRegisterConfiguredProvidersKeepsOrderAndDialects(t *testing.T) {
	cfg, err := config.Parse([]byte(`
providers:
  - name: Gemini Primary
    dialect: gemini
  - name: OpenRouter Primary
    dialect: openai
  - name: Claude
    dialect: claude
`))
	require.NoError(t, err)

	registry := provider.NewRegistry()
	require.NoError(t, RegisterConfiguredProviders(cfg, registry))

	all := registry.All()
	require.Len(t, all, 3)
	assert.Equal(t, "Gemini Primary", all[0].Name())
	assert.Equal(t, config.DialectGemini, all[0].Dialect())
	assert.Equal(t, config.DialectOpenAI, all[1].Dialect())
	assert.Equal(t, config.DialectClaude, all[2].Dialect())
}

func TestNewRejectsUnknownDialect(t *testing.T) {
	_, err := New(config.ProviderConfig{Name: "x", Dialect: "cohere", Endpoint: "https://example.invalid", TimeoutMS: 10})
	assert.Error(t, err)
}

func TestRegisterConfiguredProvidersRequiresRegistry(t *testing.T) {
	assert.Error(t, RegisterConfiguredProviders(config.Config{}, nil))
}
