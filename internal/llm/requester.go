package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// RetryPolicy bounds retries of a failed generative request. MaxAttempts
// of 1 disables retrying.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy makes a single attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     1,
		InitialInterval: 2 * time.Second,
		MaxInterval:     20 * time.Second,
	}
}

// Requester asks a Provider for the spell list of a planned deck.
type Requester struct {
	provider Provider
	retry    RetryPolicy
	logger   *slog.Logger
}

// NewRequester creates a Requester. A nil logger uses slog.Default().
func NewRequester(p Provider, retry RetryPolicy, logger *slog.Logger) *Requester {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{provider: p, retry: retry, logger: logger.With("component", "llm", "provider", p.Name())}
}

// Provider returns the wrapped provider.
func (r *Requester) Provider() Provider { return r.provider }

// RequestSpellNames asks for plan.NonLandSlots card names. The returned
// list is raw: it is neither normalized nor deduplicated.
func (r *Requester) RequestSpellNames(ctx context.Context, plan commander.DeckPlan, rc RequestContext) ([]string, error) {
	prompt := BuildPrompt(plan, rc)

	attempt := 0
	op := func() ([]string, error) {
		attempt++
		start := time.Now()
		text, err := r.provider.GenerateJSON(ctx, prompt)
		if err == nil {
			var names []string
			names, err = ParseSpellList(text)
			if err == nil {
				r.logger.Debug("spell list received", "attempt", attempt, "count", len(names), "elapsed", time.Since(start))
				return names, nil
			}
		}
		if !retryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		r.logger.Warn("generative request failed", "attempt", attempt, "max_attempts", r.retry.MaxAttempts, "error", err)
		return nil, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.retry.InitialInterval
	eb.MaxInterval = r.retry.MaxInterval

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(r.retry.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
}

// retryable reports whether a failed attempt may be repeated. Caller
// cancellation and configuration problems never are; a provider that hit its
// own timeout is.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	var svcErr *GenerativeServiceError
	if errors.As(err, &svcErr) {
		return true
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
