package retry

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/coder/quartz"
	"github.com/use-agent/cascade/models"
)

// Func is the action retried by Do.
type Func[T any] func(ctx context.Context) (T, error)

type options struct {
	clock    quartz.Clock
	observer models.Observer
}

// Option configures Do.
type Option func(*options)

// WithClock sets the clock used for backoff waits.
func WithClock(clock quartz.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithObserver sets the observer notified on retries and exhaustion.
func WithObserver(obs models.Observer) Option {
	return func(o *options) {
		o.observer = models.ObserverOrNop(obs)
	}
}

// Do runs fn and retries it according to policy.
//
// A nil policy or Count <= 0 runs fn exactly once. Otherwise fn runs at most
// Count+1 times, sequentially. A StatusError whose status is outside the
// policy's retriable set and any configuration error are returned at once,
// without the exhaustion event. After the last failed attempt the
// exhaustion event fires and the last error is returned.
func Do[T any](ctx context.Context, policy *models.RetryPolicy, fn Func[T], opts ...Option) (T, error) {
	if policy == nil || policy.Count <= 0 {
		return fn(ctx)
	}

	o := options{clock: quartz.NewReal(), observer: models.NopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	maxAttempts := policy.Count + 1
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Retryable(err, policy) {
			return zero, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := Delay(attempt, policy.Delay, policy.Type)
		o.observer.OnRetryAttempt(ctx, models.RetryAttemptEvent{
			Err:         err,
			Attempt:     attempt + 1,
			MaxAttempts: maxAttempts,
			Delay:       delay,
			Policy:      *policy,
		})

		if waitErr := wait(ctx, o.clock, delay); waitErr != nil {
			return zero, errors.Join(waitErr, lastErr)
		}
	}

	o.observer.OnRetryExhausted(ctx, models.RetryExhaustedEvent{
		Err:      lastErr,
		Attempts: maxAttempts,
		Policy:   *policy,
	})
	return zero, lastErr
}

// Retryable reports whether err may be retried under policy.
func Retryable(err error, policy *models.RetryPolicy) bool {
	if models.IsConfigError(err) {
		return false
	}
	var statusErr *models.StatusError
	if errors.As(err, &statusErr) {
		return slices.Contains(policy.Statuses(), statusErr.StatusCode)
	}
	return true
}

// wait blocks for d on clock or until ctx is done.
func wait(ctx context.Context, clock quartz.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d, "retry", "backoff")
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
