// Package llm abstracts the language-model providers used for pair selection
// and adds retry, timeout and fallback behavior around them.
package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/observability"
)

// Provider generates free text from a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrExhausted is returned when every retry attempt failed.
var ErrExhausted = errors.New("llm attempts exhausted")

// Retrying wraps a provider with a per-attempt timeout and a fixed-delay
// retry loop. Metrics are recorded per attempt.
type Retrying struct {
	inner    Provider
	timeout  time.Duration
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

// WithRetry wraps p. attempts below 1 is treated as 1; logger may be nil.
func WithRetry(p Provider, timeout time.Duration, attempts int, delay time.Duration, logger *zap.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{inner: p, timeout: timeout, attempts: attempts, delay: delay, logger: logger}
}

// Name returns the wrapped provider's name.
func (r *Retrying) Name() string { return r.inner.Name() }

// Generate runs the wrapped provider up to the configured attempt count.
// The parent context cancels the whole loop; each attempt additionally gets
// its own timeout.
func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := r.attempt(ctx, prompt)
		if err == nil {
			observability.LLMCallsTotal.WithLabelValues(r.Name(), "success").Inc()
			return out, nil
		}
		observability.LLMCallsTotal.WithLabelValues(r.Name(), "error").Inc()
		lastErr = err
		if r.logger != nil {
			r.logger.Warn("llm call failed",
				zap.String("provider", r.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}

		if attempt < r.attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.delay):
			}
		}
	}
	return "", errors.Join(ErrExhausted, lastErr)
}

func (r *Retrying) attempt(ctx context.Context, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := r.inner.Generate(ctx, prompt)
	observability.LLMCallDuration.WithLabelValues(r.Name()).Observe(time.Since(start).Seconds())
	return out, err
}
