package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultMaxAttempts is the number of attempts made per request unless configured otherwise.
	DefaultMaxAttempts = 5
	// DefaultDelay is the constant wait between two attempts.
	DefaultDelay = time.Second
)

// Policy is a constant-delay bounded retry policy.
type Policy struct {
	// Delay is the wait between two consecutive attempts.
	Delay time.Duration
	// MaxAttempts is the total number of attempts, including the first one.
	// Values below 1 are treated as 1.
	MaxAttempts uint
}

// NewPolicy returns a policy making at most maxAttempts attempts spaced by delay.
func NewPolicy(maxAttempts uint, delay time.Duration) Policy {
	return Policy{
		Delay:       delay,
		MaxAttempts: maxAttempts,
	}
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultMaxAttempts, DefaultDelay)
}

// Attempts returns the effective number of attempts, which is never less than 1.
func (p Policy) Attempts() uint {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// NotifyFunc is called with the failure of an attempt right before waiting for the next one.
// It is never called for the final failed attempt.
type NotifyFunc func(err error, delay time.Duration)

// Do runs op until it succeeds or the policy's attempts are used up. Attempts run
// strictly one after another. When every attempt failed, the last error is returned
// wrapped in an ExhaustedError.
//
// Errors wrapped with Permanent, as well as cancellation of ctx, end the loop at once and
// are returned as is.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error), notify NotifyFunc) (T, error) {
	var (
		result   T
		lastErr  error
		attempts uint
	)

	backoff := retry.WithMaxRetries(uint64(policy.Attempts()-1), retry.BackoffFunc(func() (time.Duration, bool) {
		if notify != nil {
			notify(lastErr, policy.Delay)
		}
		return policy.Delay, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		value, err := op(ctx)
		if err == nil {
			result = value
			return nil
		}
		lastErr = err
		if IsPermanent(err) || ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return result, nil
	}

	var zero T
	var permanent permanentError
	if errors.As(err, &permanent) {
		return zero, permanent.err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, fmt.Errorf("retry aborted after %d attempt(s): %w", attempts, ctxErr)
	}
	return zero, NewExhaustedError(attempts, err)
}
