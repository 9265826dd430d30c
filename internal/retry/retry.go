// Package retry runs an operation again when it fails with a transient error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often an operation is retried. The zero value runs the
// operation once.
type Policy struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// Backoff is the wait before the first retry. It doubles on every
	// following retry, up to MaxBackoff when that is set.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Retryable classifies errors. A nil classifier retries nothing.
	Retryable func(error) bool
	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Attempts returns the total number of calls the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

func (p Policy) schedule(ctx context.Context) backoff.BackOffContext {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.Backoff > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Backoff
		exp.Multiplier = 2
		exp.RandomizationFactor = 0
		exp.MaxElapsedTime = 0
		exp.MaxInterval = time.Duration(math.MaxInt64)
		if p.MaxBackoff > 0 {
			exp.MaxInterval = p.MaxBackoff
		}
		exp.Reset()
		b = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts()-1)), ctx)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. Non-retryable errors are returned unchanged.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempt := 0
	fatal := false

	err := backoff.RetryNotify(func() error {
		attempt++
		err := fn(ctx)
		if err != nil && (p.Retryable == nil || !p.Retryable(err)) {
			fatal = true
			return backoff.Permanent(err)
		}
		return err
	}, p.schedule(ctx), func(err error, _ time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
	})

	switch {
	case err == nil:
		return nil
	case fatal:
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	}
	return &ExhaustedError{Attempts: attempt, Err: err}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
