package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/levelshelf/levelshelf/internal/logger"
)

// RetryPolicy retries an operation with bounded exponential backoff and
// jitter. It is passed into the services that call the embedding provider
// rather than looped ad hoc, so it can be exercised with a fake provider.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles on
	// each subsequent attempt.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Jitter is the fraction of the delay randomised away, in [0, 1].
	Jitter float64
}

// DefaultRetryPolicy matches the provider contract: three attempts with
// exponential backoff starting at 200ms.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   200 * time.Millisecond,
	MaxDelay:    5 * time.Second,
	Jitter:      0.2,
}

// Do runs op until it succeeds, attempts are exhausted, or the context is
// cancelled. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		delay := p.delay(attempt)
		logger.Debug("attempt %d/%d failed: %v (retrying in %s)", attempt, attempts, err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}

// delay computes the backoff before the next attempt after the given
// one-based attempt number.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread/2 + rand.Float64()*spread)
	}
	if d < 0 {
		d = 0
	}
	return d
}
