package retry

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"
)

// Defaults for the retryer knobs.
const (
	DefaultBackoffFactor    = 2.0
	DefaultMaxDelay         = 30 * time.Second
	DefaultJitterMax        = 250 * time.Millisecond
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
)

// Operation is a fallible call guarded by the retryer.
type Operation func(ctx context.Context) (any, error)

// Retryer runs operations with classified retry policies and a circuit
// breaker per operation id.
type Retryer struct {
	policies      map[ErrorType]Policy
	breakers      *BreakerSet
	backoffFactor float64
	maxDelay      time.Duration
	jitterMax     time.Duration

	// sleep is injectable for tests; defaults to a context-aware sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Retryer.
type Option func(*Retryer)

// WithPolicies replaces the per-error-type policy table.
func WithPolicies(p map[ErrorType]Policy) Option {
	return func(r *Retryer) { r.policies = p }
}

// WithBreaker replaces the breaker set.
func WithBreaker(b *BreakerSet) Option {
	return func(r *Retryer) { r.breakers = b }
}

// WithJitterMax sets the upper bound of the uniform jitter added to delays.
func WithJitterMax(d time.Duration) Option {
	return func(r *Retryer) { r.jitterMax = d }
}

// WithSleep replaces the sleep function. Tests use this to avoid waiting.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retryer) { r.sleep = fn }
}

// New creates a Retryer with default policies and breaker settings.
func New(opts ...Option) *Retryer {
	r := &Retryer{
		policies:      DefaultPolicies(),
		breakers:      NewBreakerSet(DefaultBreakerThreshold, DefaultBreakerCooldown),
		backoffFactor: DefaultBackoffFactor,
		maxDelay:      DefaultMaxDelay,
		jitterMax:     DefaultJitterMax,
		sleep:         sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Breakers returns the underlying breaker set.
func (r *Retryer) Breakers() *BreakerSet {
	return r.breakers
}

// Delay computes the backoff before the given attempt (1-indexed):
// min(base * factor^(attempt-1), maxDelay) plus uniform jitter.
func (r *Retryer) Delay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(base) * math.Pow(r.backoffFactor, float64(attempt-1))
	if backoff > float64(r.maxDelay) {
		backoff = float64(r.maxDelay)
	}
	d := time.Duration(backoff)
	if r.jitterMax > 0 {
		d += time.Duration(rand.Int63n(int64(r.jitterMax)))
	}
	return d
}

// ShouldRetry reports whether a failed attempt should be retried under
// the given policy. Non-retryable message patterns win over the attempt
// budget.
func (r *Retryer) ShouldRetry(err error, attempt int, policy Policy) bool {
	if nonRetryable(err) {
		return false
	}
	return attempt < policy.MaxAttempts
}

// Do runs the operation under the breaker and policy for operationID.
// The breaker is consulted before every attempt: an open breaker fails
// fast with a CircuitOpenError. On success the breaker resets; on each
// failure the breaker records it, the error is classified, and the
// retryer backs off per the class policy. Exhausting the attempt budget
// returns the last error.
func (r *Retryer) Do(ctx context.Context, operationID string, op Operation) (any, error) {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.breakers.Allow(operationID); err != nil {
			return nil, err
		}

		result, err := op(ctx)
		if err == nil {
			r.breakers.RecordSuccess(operationID)
			return result, nil
		}

		lastErr = err
		r.breakers.RecordFailure(operationID)

		errType := Classify(err)
		policy, ok := r.policies[errType]
		if !ok {
			policy = r.policies[ErrorTypeUnknown]
		}

		if !r.ShouldRetry(err, attempt, policy) {
			log.Printf("[retry] %s: attempt %d failed (%s), not retrying: %v", operationID, attempt, errType, err)
			return nil, lastErr
		}

		delay := r.Delay(attempt, policy.BaseDelay)
		log.Printf("[retry] %s: attempt %d failed (%s), retrying in %s: %v", operationID, attempt, errType, delay, err)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
