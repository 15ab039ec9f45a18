package blob

import (
	"context"
	"time"
)

// RetryPolicy is the single retry/backoff configuration consumed by every
// caller of a Backend. Transient failures are retried with exponential
// backoff; all other errors return immediately.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the sleep before the second attempt; it doubles per retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
}

// DefaultRetryPolicy matches the store's bounded-backoff contract: three
// attempts with a short doubling delay.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:  3,
	BaseDelay: 100 * time.Millisecond,
	MaxDelay:  2 * time.Second,
}

// Do runs fn until it succeeds, fails with a non-transient error, the policy
// is exhausted, or the context is canceled. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return err
}
