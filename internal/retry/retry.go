package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy controls retry behavior for transient failures.
type Policy struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int

	// BaseDelay is the wait before the first retry; each subsequent
	// retry doubles it, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter adds up to this fraction of the delay as random slack,
	// so parallel workers do not retry in lockstep.
	Jitter float64

	// RetryIf decides whether an error is worth retrying. Nil retries
	// everything.
	RetryIf func(error) bool
}

// DefaultPolicy matches the backoff used for upstream API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 6,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      0.25,
	}
}

// Do runs fn until it succeeds, the attempts run out, or the context is
// canceled. The last error is returned wrapped with the attempt count.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := p.wait(ctx, attempt); err != nil {
				return err
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.RetryIf != nil && !p.RetryIf(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}

// wait sleeps for the backoff delay of the given attempt, or returns early
// when the context is canceled.
func (p Policy) wait(ctx context.Context, attempt int) error {
	delay := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
