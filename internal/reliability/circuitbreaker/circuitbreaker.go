package circuitbreaker

import (
	"sync"
	"time"
)

// State of a breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// CircuitBreaker fails fast once a dependency has failed failureThreshold
// times in a row. After timeout it lets a single trial call through (half-open);
// successThreshold consecutive trial successes close it again.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failures         int32
	successes        int32
	openedAt         time.Time
	trialing         bool
	failureThreshold int32
	successThreshold int32
	timeout          time.Duration
	now              func() time.Time
	onStateChange    func(from, to State)
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(failureThreshold, successThreshold int32, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: max(failureThreshold, 1),
		successThreshold: max(successThreshold, 1),
		timeout:          timeout,
		now:              time.Now,
	}
}

// SetStateChangeCallback registers fn for state transitions. fn runs
// without the breaker lock held.
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// AllowRequest reports whether a call may go through now
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return true
	case StateHalfOpen:
		if cb.trialing {
			cb.mu.Unlock()
			return false
		}
		cb.trialing = true
		cb.mu.Unlock()
		return true
	}

	if cb.now().Sub(cb.openedAt) < cb.timeout {
		cb.mu.Unlock()
		return false
	}
	notify := cb.transition(StateHalfOpen)
	cb.trialing = true
	cb.mu.Unlock()
	notify()
	return true
}

// RecordSuccess notes a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.trialing = false
		cb.successes++
		if cb.successes >= cb.successThreshold {
			notify = cb.transition(StateClosed)
		}
	}
	cb.mu.Unlock()
	notify()
}

// RecordFailure notes a failed call and may open the circuit
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			notify = cb.transition(StateOpen)
		}
	case StateHalfOpen:
		notify = cb.transition(StateOpen)
	}
	cb.mu.Unlock()
	notify()
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition must be called with mu held. It returns the callback to run
// once the lock is released.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	if from == to {
		return func() {}
	}
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.trialing = false
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	fn := cb.onStateChange
	if fn == nil {
		return func() {}
	}
	return func() { fn(from, to) }
}
