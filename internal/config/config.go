package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DialectGemini = "gemini"
	DialectOpenAI = "openai"
	DialectClaude = "claude"
)

const (
	defaultPort            = 8080
	defaultTimeoutMS       = 30000
	defaultTargetLanguage  = "id"
	defaultMinOccurrences  = 1
	defaultMinFound        = 1
	defaultProbeTimeoutMS  = 10000
	defaultGeminiEndpoint  = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	defaultOpenAIEndpoint  = "https://openrouter.ai/api/v1/chat/completions"
	defaultClaudeEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultClaudeModel     = "claude-3-5-haiku-latest"
	maxProviderTimeoutMS   = 10 * 60 * 1000
	placeholderKeyPrefix   = "YOUR_"
	placeholderKeyChangeMe = "changeme"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Providers   []ProviderConfig  `yaml:"providers"`
	Translation TranslationConfig `yaml:"translation"`
	Validation  ValidationConfig  `yaml:"validation"`
	Probe       ProbeConfig       `yaml:"probe"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ProviderConfig describes one text-generation provider. Its position in
// Config.Providers is its fallback priority.
type ProviderConfig struct {
	Name      string  `yaml:"name"`
	Dialect   string  `yaml:"dialect"`
	Endpoint  string  `yaml:"endpoint"`
	APIKey    string  `yaml:"api_key"`
	Model     string  `yaml:"model"`
	TimeoutMS int     `yaml:"timeout_ms"`
	Headers   Headers `yaml:"headers"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// TranslationConfig selects the provider chain used for translations.
// An empty Providers list reuses the generation chain.
type TranslationConfig struct {
	Providers       []string `yaml:"providers"`
	DefaultLanguage string   `yaml:"default_language"`
}

// ValidationConfig tunes the keyword coverage thresholds.
type ValidationConfig struct {
	// MinFound is the occurrence count below which a keyword is reported missing.
	MinFound int `yaml:"min_found"`
	// MinOccurrences is the occurrence count below which a keyword is reported underused.
	MinOccurrences int `yaml:"min_occurrences"`
}

// ProbeConfig configures the provider connectivity check.
type ProbeConfig struct {
	TimeoutMS   int `yaml:"timeout_ms"`
	Concurrency int `yaml:"concurrency"`
}

// LoadEnv loads variables from the given dotenv files, ignoring files that do not exist.
// Variables already present in the environment are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", file, err)
		}
	}
	return nil
}

// Load reads YAML configuration from disk, expands ${VAR} references and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) expandEnv() {
	for i := range c.Providers {
		p := &c.Providers[i]
		p.APIKey = expandKeepingUnset(p.APIKey)
		p.Endpoint = expandKeepingUnset(p.Endpoint)
		for k, v := range p.Headers {
			p.Headers[k] = expandKeepingUnset(v)
		}
	}
}

// expandKeepingUnset expands ${VAR} references but leaves unset variables verbatim
// so that an unresolved credential is reported as not configured.
func expandKeepingUnset(s string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		p.Dialect = strings.ToLower(strings.TrimSpace(p.Dialect))
		if p.TimeoutMS == 0 {
			p.TimeoutMS = defaultTimeoutMS
		}
		if strings.TrimSpace(p.Endpoint) == "" {
			p.Endpoint = defaultEndpoint(p.Dialect)
		}
		if strings.TrimSpace(p.Model) == "" {
			p.Model = defaultModel(p.Dialect)
		}
	}
	if c.Translation.DefaultLanguage == "" {
		c.Translation.DefaultLanguage = defaultTargetLanguage
	}
	if c.Validation.MinFound == 0 {
		c.Validation.MinFound = defaultMinFound
	}
	if c.Validation.MinOccurrences == 0 {
		c.Validation.MinOccurrences = defaultMinOccurrences
	}
	if c.Probe.TimeoutMS == 0 {
		c.Probe.TimeoutMS = defaultProbeTimeoutMS
	}
}

func defaultEndpoint(dialect string) string {
	switch dialect {
	case DialectGemini:
		return defaultGeminiEndpoint
	case DialectOpenAI:
		return defaultOpenAIEndpoint
	case DialectClaude:
		return defaultClaudeEndpoint
	default:
		return ""
	}
}

func defaultModel(dialect string) string {
	switch dialect {
	case DialectOpenAI:
		return defaultOpenAIModel
	case DialectClaude:
		return defaultClaudeModel
	default:
		return ""
	}
}

// Validate performs strict sanity checks on the configuration.
// Missing credentials are not an error here: such providers fail at call time.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if len(c.Providers) == 0 {
		return errors.New("at least one provider must be configured")
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for _, provider := range c.Providers {
		if err := validateProvider(provider); err != nil {
			return err
		}
		if _, dup := seen[provider.Name]; dup {
			return fmt.Errorf("provider %q is configured more than once", provider.Name)
		}
		seen[provider.Name] = struct{}{}
	}

	for _, name := range c.Translation.Providers {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("translation.providers references unknown provider %q", name)
		}
	}

	if c.Validation.MinFound < 1 {
		return fmt.Errorf("validation.min_found must be at least 1, got %d", c.Validation.MinFound)
	}
	if c.Validation.MinOccurrences < 1 {
		return fmt.Errorf("validation.min_occurrences must be at least 1, got %d", c.Validation.MinOccurrences)
	}
	if c.Probe.TimeoutMS <= 0 {
		return fmt.Errorf("probe.timeout_ms must be positive, got %d", c.Probe.TimeoutMS)
	}
	if c.Probe.Concurrency < 0 {
		return fmt.Errorf("probe.concurrency must not be negative, got %d", c.Probe.Concurrency)
	}

	return nil
}

func validateProvider(provider ProviderConfig) error {
	if strings.TrimSpace(provider.Name) == "" {
		return errors.New("provider name must not be empty")
	}
	if err := validateDialect(provider.Name, provider.Dialect); err != nil {
		return err
	}
	if strings.TrimSpace(provider.Endpoint) == "" {
		return fmt.Errorf("provider %s: endpoint must be provided", provider.Name)
	}
	if provider.TimeoutMS <= 0 || provider.TimeoutMS > maxProviderTimeoutMS {
		return fmt.Errorf("provider %s: timeout_ms must be between 1 and %d, got %d", provider.Name, maxProviderTimeoutMS, provider.TimeoutMS)
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", provider.Name, headerKey)
		}
	}

	return nil
}

func validateDialect(providerName, dialect string) error {
	switch dialect {
	case DialectGemini, DialectOpenAI, DialectClaude:
		return nil
	default:
		return fmt.Errorf("provider %s: dialect %q must be one of %q, %q or %q", providerName, dialect, DialectGemini, DialectOpenAI, DialectClaude)
	}
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}

// IsPlaceholderKey reports whether a credential is empty or an obvious placeholder.
func IsPlaceholderKey(key string) bool {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return true
	case strings.HasPrefix(strings.ToUpper(key), placeholderKeyPrefix):
		return true
	case strings.EqualFold(key, placeholderKeyChangeMe):
		return true
	case strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}"):
		return true
	case strings.HasPrefix(key, "<") && strings.HasSuffix(key, ">"):
		return true
	}
	return false
}
