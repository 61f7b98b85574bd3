package retry

import (
	"context"
	"time"
)

type shouldRetry func(err error, attempt int) bool

// Policy repeats a failing call up to Attempts times in total, pausing
// Backoff*attempt between tries. Zero Attempts means a single try.
type Policy struct {
	Attempts    int
	Backoff     time.Duration
	ShouldRetry shouldRetry
}

// Do runs f until it succeeds, the policy gives up or ctx is done.
// The last error is returned.
func (p Policy) Do(ctx context.Context, f func(ctx context.Context) error) error {
	attempt := 0

	for {
		err := f(ctx)
		if err == nil {
			return nil
		}

		attempt++
		if attempt >= p.Attempts {
			return err
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err, attempt) {
			return err
		}

		timer := time.NewTimer(p.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// Value is Do for calls that return a result.
func Value[T any](ctx context.Context, p Policy, f func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = f(ctx)
		return err
	})
	return result, err
}
