package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/internal/metrics"
	"court-reservation-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 100 * time.Millisecond
)

// RetryPolicy re-runs a unit of work that lost a concurrency race.
// MaxAttempts counts every execution, the first one included.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns 3 attempts with 100ms, 200ms waits between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultRetryBaseDelay}
}

// NextDelay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay * time.Duration(attempt)
}

// Do runs fn until it succeeds, fails with anything other than
// ports.ErrConcurrencyConflict, or runs out of attempts. Exhaustion is
// reported as TransientConflict.
func (p RetryPolicy) Do(ctx context.Context, log zerolog.Logger, operation string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ports.ErrConcurrencyConflict) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := p.NextDelay(attempt)
		metrics.IncRetry(operation)
		log.Warn().Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("concurrency conflict, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return apperror.InternalError(fmt.Errorf("%s retry aborted: %w", operation, ctx.Err()))
		case <-timer.C:
		}
	}

	log.Error().Err(lastErr).Str("operation", operation).Int("attempts", attempts).Msg("retries exhausted")
	return apperror.ErrTransientConflict(lastErr)
}
