package retry

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state for one operation.
type BreakerState string

const (
	// BreakerClosed allows calls through normally.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen fails calls fast until the cooldown elapses.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen lets exactly one probe call through.
	BreakerHalfOpen BreakerState = "half_open"
)

// CircuitOpenError indicates a call was rejected because the breaker for
// its operation is open and the cooldown has not elapsed.
type CircuitOpenError struct {
	// OperationID identifies the guarded operation.
	OperationID string
	// RetryAt is when the breaker will next let a probe through.
	RetryAt time.Time
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s until %s", e.OperationID, e.RetryAt.Format(time.RFC3339))
}

// breaker tracks failure state for a single operation id.
type breaker struct {
	state       BreakerState
	failures    int
	lastFailure time.Time
	nextAttempt time.Time
	probing     bool
}

// BreakerSet holds one independent circuit breaker per operation id.
// Concurrent callers of different operations never contend beyond the
// map lookup; counters for a single breaker are mutex-guarded.
type BreakerSet struct {
	mu        sync.Mutex
	breakers  map[string]*breaker
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewBreakerSet creates a breaker set that opens a breaker after
// threshold consecutive failures and keeps it open for cooldown.
func NewBreakerSet(threshold int, cooldown time.Duration) *BreakerSet {
	if threshold < 1 {
		threshold = 1
	}
	return &BreakerSet{
		breakers:  make(map[string]*breaker),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// get returns the breaker for an operation, creating it closed.
// Caller must hold the mutex.
func (s *BreakerSet) get(operationID string) *breaker {
	b, ok := s.breakers[operationID]
	if !ok {
		b = &breaker{state: BreakerClosed}
		s.breakers[operationID] = b
	}
	return b
}

// Allow reports whether a call for the operation may proceed. An open
// breaker whose cooldown has elapsed moves to half-open and admits
// exactly one probe; further calls are rejected until the probe reports.
func (s *BreakerSet) Allow(operationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.get(operationID)
	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if s.now().Before(b.nextAttempt) {
			return &CircuitOpenError{OperationID: operationID, RetryAt: b.nextAttempt}
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return &CircuitOpenError{OperationID: operationID, RetryAt: b.nextAttempt}
		}
		b.probing = true
		return nil
	}
	return nil
}

// RecordSuccess resets the breaker to closed.
func (s *BreakerSet) RecordSuccess(operationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.get(operationID)
	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a failure. A half-open probe failure reopens the
// breaker immediately; a closed breaker opens once the consecutive
// failure count reaches the threshold.
func (s *BreakerSet) RecordFailure(operationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.get(operationID)
	b.failures++
	b.lastFailure = s.now()
	b.probing = false

	if b.state == BreakerHalfOpen || b.failures >= s.threshold {
		b.state = BreakerOpen
		b.nextAttempt = s.now().Add(s.cooldown)
	}
}

// State returns the current state for an operation id.
func (s *BreakerSet) State(operationID string) BreakerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(operationID).state
}

// Failures returns the consecutive failure count for an operation id.
func (s *BreakerSet) Failures(operationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(operationID).failures
}
