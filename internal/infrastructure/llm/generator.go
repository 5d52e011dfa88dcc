package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/tracing"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/reliability/circuitbreaker"
)

// Result is the text of the first provider that succeeded.
type Result struct {
	Text     string
	Provider string
}

// Generator tries each provider once, in order. Each provider sits behind
// its own circuit breaker; an open breaker counts as a failed attempt.
// There is no retry beyond the fallback list.
type Generator struct {
	providers func() ([]Provider, error)
	logger    *slog.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func NewGenerator(providers func() ([]Provider, error), logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		providers: providers,
		logger:    logger,
		breakers:  make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// Static returns a provider source that always yields ps.
func Static(ps ...Provider) func() ([]Provider, error) {
	return func() ([]Provider, error) { return ps, nil }
}

func (g *Generator) breaker(name string) *circuitbreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[name]
	if !ok {
		cb = circuitbreaker.NewCircuitBreaker("llm_"+name, 3, 1, 60*time.Second)
		cb.SetStateChangeCallback(func(n string, from, to circuitbreaker.State) {
			metrics.SetBreakerState(n, int(to))
			g.logger.Warn("llm circuit breaker state changed",
				slog.String("breaker", n),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
		g.breakers[name] = cb
	}
	return cb
}

// Generate returns the first successful provider output. When every provider
// fails the error wraps domain.ErrUpstream and lists each failure.
func (g *Generator) Generate(ctx context.Context, prompt string) (Result, error) {
	providers, err := g.providers()
	if err != nil {
		return Result{}, err
	}
	if len(providers) == 0 {
		return Result{}, fmt.Errorf("narrative provider: %w", domain.ErrNotConfigured)
	}

	ctx, span := tracing.Start(ctx, "llm.Generate", attribute.Int("llm.providers", len(providers)))
	var errs []error
	for _, p := range providers {
		var text string
		start := time.Now()
		err := g.breaker(p.Name()).Execute(ctx, func(ctx context.Context) error {
			var genErr error
			text, genErr = p.Generate(ctx, prompt)
			return genErr
		})

		result := "success"
		switch {
		case errors.Is(err, circuitbreaker.ErrOpen):
			result = "breaker_open"
		case err != nil:
			result = "error"
		}
		metrics.ObserveLLMAttempt(p.Name(), result, time.Since(start))

		if err == nil {
			span.SetAttributes(attribute.String("llm.provider", p.Name()))
			tracing.End(span, nil)
			return Result{Text: text, Provider: p.Name()}, nil
		}

		g.logger.Warn("narrative provider failed",
			slog.String("provider", p.Name()),
			slog.String("result", result),
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	err = &domain.UpstreamError{Provider: "narrative", Summary: domain.NarrativeFailed, Err: errors.Join(errs...)}
	tracing.End(span, err)
	return Result{}, err
}
