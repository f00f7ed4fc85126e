package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ideaforge/internal/models"
	"ideaforge/internal/provider"
)

const (
	defaultProbeTimeout     = 10 * time.Second
	defaultProbeConcurrency = 4
	defaultProbePrompt      = "Generate a simple test response."
)

// ErrAllProvidersExhausted matches the terminal failure of an orchestration run.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// AttemptError records why a single provider in the chain failed.
type AttemptError struct {
	Provider string
	Dialect  string
	Err      error
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e AttemptError) Unwrap() error {
	return e.Err
}

// ExhaustedError carries every per-provider failure in priority order.
type ExhaustedError struct {
	Attempts []AttemptError
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed: no providers configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return "all providers failed. errors: " + strings.Join(parts, " | ")
}

// Is reports ErrAllProvidersExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// Unwrap exposes the individual causes so errors.Is can match e.g. provider.ErrTimeout.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a
	}
	return errs
}

// Orchestrator tries providers strictly in order until one produces text.
// At most one provider call is in flight per Run.
type Orchestrator struct {
	logger           *slog.Logger
	now              func() time.Time
	probeTimeout     time.Duration
	probeConcurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for attempt records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for latency and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithProbe configures the connectivity check budget and parallelism.
func WithProbe(timeout time.Duration, concurrency int) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.probeTimeout = timeout
		}
		if concurrency > 0 {
			o.probeConcurrency = concurrency
		}
	}
}

// New constructs an orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:           slog.Default(),
		now:              time.Now,
		probeTimeout:     defaultProbeTimeout,
		probeConcurrency: defaultProbeConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run sends prompt to each client in order and returns the first success.
// Failures are recorded and the next client is tried immediately. When every
// client fails the error is an *ExhaustedError. If ctx ends, the loop stops and
// the context error is returned.
func (o *Orchestrator) Run(ctx context.Context, prompt string, clients []provider.Client) (models.ProviderResult, error) {
	var attempts []AttemptError

	for i, c := range clients {
		if err := ctx.Err(); err != nil {
			return models.ProviderResult{Failures: failures(attempts), Err: err}, err
		}

		start := o.now()
		text, err := attempt(ctx, c, prompt)
		latency := o.now().Sub(start)

		if err == nil {
			o.logger.Info("provider attempt succeeded",
				"provider", c.Name(),
				"dialect", c.Dialect(),
				"position", i+1,
				"latency_ms", latency.Milliseconds(),
			)
			return models.ProviderResult{
				Success: true,
				Text:    text,
				Metadata: models.ResultMetadata{
					ProviderName: c.Name(),
					Dialect:      c.Dialect(),
					LatencyMS:    latency.Milliseconds(),
					Timestamp:    o.now(),
				},
				Failures: failures(attempts),
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			o.logger.Warn("provider attempt cancelled", "provider", c.Name(), "position", i+1)
			return models.ProviderResult{Failures: failures(attempts), Err: ctxErr}, ctxErr
		}

		o.logger.Warn("provider attempt failed",
			"provider", c.Name(),
			"dialect", c.Dialect(),
			"position", i+1,
			"latency_ms", latency.Milliseconds(),
			"err", err,
		)
		attempts = append(attempts, AttemptError{Provider: c.Name(), Dialect: c.Dialect(), Err: err})
	}

	exhausted := &ExhaustedError{Attempts: attempts}
	o.logger.Error("all providers exhausted", "attempts", len(attempts))
	return models.ProviderResult{Failures: failures(attempts), Err: exhausted}, exhausted
}

func attempt(ctx context.Context, c provider.Client, prompt string) (string, error) {
	payload, err := c.Call(ctx, prompt)
	if err != nil {
		return "", err
	}
	text, err := c.ExtractText(payload)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text", provider.ErrMalformedResponse)
	}
	return text, nil
}

func failures(attempts []AttemptError) []models.ProviderFailure {
	if len(attempts) == 0 {
		return nil
	}
	out := make([]models.ProviderFailure, len(attempts))
	for i, a := range attempts {
		out[i] = models.ProviderFailure{ProviderName: a.Provider, Message: a.Err.Error()}
	}
	return out
}

// ProbeResult is the connectivity status of one provider.
type ProbeResult struct {
	Provider  string `json:"provider"`
	Dialect   string `json:"dialect"`
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Probe sends a short test prompt to every client and reports each outcome.
// Unlike Run it calls clients concurrently, bounded by the configured limit.
// Results are in the same order as clients.
func (o *Orchestrator) Probe(ctx context.Context, clients []provider.Client) []ProbeResult {
	results := make([]ProbeResult, len(clients))

	var g errgroup.Group
	g.SetLimit(o.probeConcurrency)

	for i, c := range clients {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, o.probeTimeout)
			defer cancel()

			start := o.now()
			_, err := attempt(probeCtx, c, defaultProbePrompt)
			if err != nil && ctx.Err() == nil && errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
				// The probe budget is this call's timeout, not a caller cancellation.
				err = fmt.Errorf("%w after %s", provider.ErrTimeout, o.probeTimeout)
			}
			res := ProbeResult{
				Provider:  c.Name(),
				Dialect:   c.Dialect(),
				OK:        err == nil,
				LatencyMS: o.now().Sub(start).Milliseconds(),
			}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		o.logger.Info("provider probe", "provider", r.Provider, "ok", r.OK, "latency_ms", r.LatencyMS, "err", r.Error)
	}
	return results
}
