package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// noSleep is a sleep function that returns immediately.
func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func TestDelayMonotonic(t *testing.T) {
	r := New(WithJitterMax(0))
	base := 100 * time.Millisecond

	prev := time.Duration(0)
	for attempt := 1; attempt <= 12; attempt++ {
		d := r.Delay(attempt, base)
		if d < prev {
			t.Errorf("delay decreased at attempt %d: %s < %s", attempt, d, prev)
		}
		prev = d
	}
}

func TestDelayCapped(t *testing.T) {
	r := New(WithJitterMax(0))
	d := r.Delay(50, time.Second)
	if d > DefaultMaxDelay {
		t.Errorf("delay %s exceeds cap %s", d, DefaultMaxDelay)
	}
}

func TestDelayJitterBound(t *testing.T) {
	r := New(WithJitterMax(50 * time.Millisecond))
	base := 100 * time.Millisecond

	for i := 0; i < 20; i++ {
		d := r.Delay(1, base)
		if d < base || d > base+50*time.Millisecond {
			t.Errorf("delay %s outside [base, base+jitterMax]", d)
		}
	}
}

func TestShouldRetryBudget(t *testing.T) {
	r := New()
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	err := errors.New("connection reset")

	if !r.ShouldRetry(err, 1, policy) || !r.ShouldRetry(err, 2, policy) {
		t.Error("attempts below the budget should retry")
	}
	if r.ShouldRetry(err, 3, policy) {
		t.Error("attempt at the budget must not retry")
	}
}

func TestShouldRetryNonRetryable(t *testing.T) {
	r := New()
	policy := Policy{MaxAttempts: 10, BaseDelay: time.Millisecond}

	if r.ShouldRetry(errors.New("permission denied"), 1, policy) {
		t.Error("non-retryable error must not retry regardless of budget")
	}
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	r := New(WithSleep(noSleep))

	calls := 0
	result, err := r.Do(context.Background(), "op", func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "done" {
		t.Errorf("expected done, got %v", result)
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 invocations, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	r := New(WithSleep(noSleep))

	calls := 0
	_, err := r.Do(context.Background(), "op", func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("request timed out")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	// Timeout policy allows 3 attempts.
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	r := New(WithSleep(noSleep))

	calls := 0
	_, err := r.Do(context.Background(), "op", func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("invalid request: bad field")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
}

func TestDoRespectsCancelledContext(t *testing.T) {
	r := New(WithSleep(noSleep))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := r.Do(ctx, "op", func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected 0 invocations, got %d", calls)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	breakers := NewBreakerSet(3, time.Minute)
	r := New(WithSleep(noSleep), WithBreaker(breakers))

	calls := 0
	// Non-retryable errors so each Do records exactly one failure.
	for i := 0; i < 3; i++ {
		_, _ = r.Do(context.Background(), "flaky", func(ctx context.Context) (any, error) {
			calls++
			return nil, errors.New("permission denied")
		})
	}
	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
	if breakers.State("flaky") != BreakerOpen {
		t.Fatalf("expected open breaker, got %s", breakers.State("flaky"))
	}

	// Next call fails fast without invoking the operation.
	_, err := r.Do(context.Background(), "flaky", func(ctx context.Context) (any, error) {
		calls++
		return nil, nil
	})
	var open *CircuitOpenError
	if !errors.As(err, &open) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if calls != 3 {
		t.Errorf("operation invoked while breaker open (%d calls)", calls)
	}
}

func TestBreakerHalfOpenCloseOnSuccess(t *testing.T) {
	breakers := NewBreakerSet(1, time.Minute)
	now := time.Now()
	breakers.now = func() time.Time { return now }

	breakers.RecordFailure("op")
	if breakers.State("op") != BreakerOpen {
		t.Fatalf("expected open, got %s", breakers.State("op"))
	}

	// Cooldown not elapsed: rejected.
	if err := breakers.Allow("op"); err == nil {
		t.Fatal("expected rejection before cooldown")
	}

	// Cooldown elapsed: exactly one probe is admitted.
	now = now.Add(2 * time.Minute)
	if err := breakers.Allow("op"); err != nil {
		t.Fatalf("expected probe to be admitted: %v", err)
	}
	if breakers.State("op") != BreakerHalfOpen {
		t.Fatalf("expected half_open, got %s", breakers.State("op"))
	}
	if err := breakers.Allow("op"); err == nil {
		t.Fatal("expected second caller rejected during probe")
	}

	breakers.RecordSuccess("op")
	if breakers.State("op") != BreakerClosed {
		t.Errorf("expected closed after probe success, got %s", breakers.State("op"))
	}
	if breakers.Failures("op") != 0 {
		t.Errorf("expected failure count reset, got %d", breakers.Failures("op"))
	}
}

func TestBreakerHalfOpenReopenOnFailure(t *testing.T) {
	breakers := NewBreakerSet(1, time.Minute)
	now := time.Now()
	breakers.now = func() time.Time { return now }

	breakers.RecordFailure("op")
	now = now.Add(2 * time.Minute)
	if err := breakers.Allow("op"); err != nil {
		t.Fatalf("expected probe admitted: %v", err)
	}

	breakers.RecordFailure("op")
	if breakers.State("op") != BreakerOpen {
		t.Fatalf("expected reopened breaker, got %s", breakers.State("op"))
	}
	if err := breakers.Allow("op"); err == nil {
		t.Error("expected rejection after probe failure")
	}
}

func TestBreakersIndependentPerOperation(t *testing.T) {
	breakers := NewBreakerSet(1, time.Minute)
	breakers.RecordFailure("a")

	if breakers.State("a") != BreakerOpen {
		t.Errorf("expected a open, got %s", breakers.State("a"))
	}
	if breakers.State("b") != BreakerClosed {
		t.Errorf("expected b closed, got %s", breakers.State("b"))
	}
}
