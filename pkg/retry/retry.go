// Package retry provides a bounded retry helper with fixed backoff.
package retry

import (
	"context"
	"time"
)

// Policy bounds a retried operation: total attempts and the pause
// between consecutive attempts.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Do invokes op until it succeeds, the attempt budget is exhausted, or the
// context is canceled. The last error is returned on failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
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

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	return err
}
