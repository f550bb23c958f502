/*
retry re-invokes MLflow client calls which failed with a transport or
server error. The client itself never retries; wrap calls explicitly:

	err := retry.Do(ctx, func(ctx context.Context) error {
		return client.LogParam(ctx, runID, "lr", "0.01")
	}, retry.OptAttempts(5))
*/
package retry

import (
	"context"
	"fmt"
	"time"

	// Packages
	retrygo "github.com/avast/retry-go"
	mlflow "github.com/imishinist/mlflow-client/pkg/mlflow"
	log "github.com/sirupsen/logrus"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type policy struct {
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
	retryIf  func(error) bool
	log      log.FieldLogger
}

// Opt configures a retry policy
type Opt func(*policy) error

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	DefaultAttempts = 3
	DefaultDelay    = 200 * time.Millisecond
	DefaultMaxDelay = 5 * time.Second
)

///////////////////////////////////////////////////////////////////////////////
// OPTIONS

// OptAttempts sets the total number of calls, including the first one
func OptAttempts(n uint) Opt {
	return func(p *policy) error {
		if n == 0 {
			return fmt.Errorf("attempts must be at least 1")
		}
		p.attempts = n
		return nil
	}
}

// OptDelay sets the initial delay, doubled after each failure
func OptDelay(d time.Duration) Opt {
	return func(p *policy) error {
		if d < 0 {
			return fmt.Errorf("invalid delay: %v", d)
		}
		p.delay = d
		return nil
	}
}

// OptMaxDelay caps the delay between two calls
func OptMaxDelay(d time.Duration) Opt {
	return func(p *policy) error {
		if d < 0 {
			return fmt.Errorf("invalid max delay: %v", d)
		}
		p.maxDelay = d
		return nil
	}
}

// OptRetryIf replaces Retryable as the predicate deciding whether to retry
func OptRetryIf(fn func(error) bool) Opt {
	return func(p *policy) error {
		if fn == nil {
			return fmt.Errorf("retry predicate is nil")
		}
		p.retryIf = fn
		return nil
	}
}

// OptLogger logs each retry at warning level
func OptLogger(logger log.FieldLogger) Opt {
	return func(p *policy) error {
		p.log = logger
		return nil
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Retryable reports whether a failed call may succeed when repeated. Only
// transport and server failures are; everything else is a property of the
// request.
func Retryable(err error) bool {
	switch mlflow.KindOf(err) {
	case mlflow.ErrTransport, mlflow.ErrServer:
		return true
	}
	return false
}

// Do calls fn until it succeeds, fails with an error that is not retryable,
// the attempts are used up or ctx is done. It returns the error from the
// last call, or the context error if fn was never called.
func Do(ctx context.Context, fn func(context.Context) error, opts ...Opt) error {
	p := policy{
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		maxDelay: DefaultMaxDelay,
		retryIf:  Retryable,
	}
	for _, opt := range opts {
		if err := opt(&p); err != nil {
			return err
		}
	}

	options := []retrygo.Option{
		retrygo.Context(ctx),
		retrygo.Attempts(p.attempts),
		retrygo.Delay(p.delay),
		retrygo.MaxDelay(p.maxDelay),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(func(err error) bool {
			// Stop early once the caller has given up
			return ctx.Err() == nil && p.retryIf(err)
		}),
	}
	if p.log != nil {
		options = append(options, retrygo.OnRetry(func(n uint, err error) {
			p.log.WithFields(log.Fields{
				"attempt": n + 1,
				"of":      p.attempts,
			}).WithError(err).Warn("mlflow call failed")
		}))
	}

	var last error
	err := retrygo.Do(func() error {
		last = fn(ctx)
		return last
	}, options...)
	if err == nil {
		return nil
	}
	if last != nil {
		return last
	}
	return err
}

// Value is Do for calls which return a result
func Value[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...Opt) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	}, opts...)
	return result, err
}
