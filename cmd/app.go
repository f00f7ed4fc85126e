package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"ideaforge/internal/config"
	"ideaforge/internal/fallback"
	"ideaforge/internal/pipeline"
	"ideaforge/internal/provider"
	providerfactory "ideaforge/internal/provider/factory"
	"ideaforge/internal/translation"
	"ideaforge/internal/validator"
)

const defaultEnvFile = ".env"

// commonFlags are accepted by every command that talks to providers.
type commonFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "path to configuration file")
	fs.StringVar(&f.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the configuration")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
}

// parseFlags parses args and reports whether the command should stop (help requested).
func parseFlags(fs *flag.FlagSet, args []string) (stop bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, fmt.Errorf("parse %s flags: %w", fs.Name(), err)
	}
	return false, nil
}

// load configures logging, reads the dotenv file and the configuration.
func (f commonFlags) load(logOut io.Writer) (config.Config, *slog.Logger, error) {
	logger, err := newLogger(logOut, f.logLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)

	if f.configPath == "" {
		return config.Config{}, nil, errors.New("--config <path> is required")
	}
	if err := config.LoadEnv(f.envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// buildPipeline turns the configuration into a ready pipeline: clients in
// priority order, a separate translation chain and the validation thresholds.
func buildPipeline(cfg config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProviders(cfg, registry); err != nil {
		return nil, err
	}
	for _, pc := range cfg.Providers {
		if config.IsPlaceholderKey(pc.APIKey) {
			logger.Warn("provider has no credential and will be skipped at call time", "provider", pc.Name)
		}
	}

	translationChain, err := registry.Chain(cfg.Translation.Providers)
	if err != nil {
		return nil, err
	}

	engine := fallback.New(
		fallback.WithLogger(logger),
		fallback.WithProbe(time.Duration(cfg.Probe.TimeoutMS)*time.Millisecond, cfg.Probe.Concurrency),
	)

	translator := translation.New(engine, translationChain,
		translation.WithLogger(logger),
		translation.WithDefaultLanguage(cfg.Translation.DefaultLanguage),
	)

	return pipeline.New(engine, registry.All(),
		pipeline.WithLogger(logger),
		pipeline.WithTranslator(translator),
		pipeline.WithValidator(validator.New(
			validator.WithMinFound(cfg.Validation.MinFound),
			validator.WithMinOccurrences(cfg.Validation.MinOccurrences),
		)),
	), nil
}

func usageFunc(text string) func() {
	return func() {
		fmt.Fprintln(os.Stderr, text)
	}
}
