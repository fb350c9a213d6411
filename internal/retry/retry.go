// Package retry re-runs operations that fail with transient errors, using
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds the retry loop.
type Policy struct {
	Attempts  int
	Base      time.Duration
	Transient func(error) bool
}

// Do runs fn until it succeeds, fails permanently or the attempts are used up.
func Do(ctx context.Context, p Policy, opName string, fn func() error) error {
	attempts := max(p.Attempts, 1)

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if p.Transient == nil || !p.Transient(err) {
			if attempts == 1 {
				return err
			}
			return fmt.Errorf("%s failed permanently: %w", opName, err)
		}

		if attempt == attempts {
			break
		}

		sleep := p.Base * (1 << (attempt - 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", opName, attempts, lastErr)
}
