package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Normal operation, requests pass through
	StateOpen                  // Circuit is open, requests fail immediately
	StateHalfOpen              // Testing if dependency recovered, limited requests allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a call is short-circuited without reaching the dependency.
type ErrOpen struct {
	Name  string
	State State
}

func (e *ErrOpen) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s, request rejected", e.Name, e.State)
}

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold    int           // Failures within the rolling window before opening
	SuccessThreshold    int           // Successes in half-open state to close circuit
	RollingWindow       time.Duration // Window over which failures are counted
	ResetTimeout        time.Duration // Time to wait before transitioning from open to half-open
	MaxRequestsHalfOpen int           // Max trial requests allowed in half-open state
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		RollingWindow:       60 * time.Second,
		ResetTimeout:        30 * time.Second,
		MaxRequestsHalfOpen: 3,
	}
}

// CircuitBreaker guards calls to a single external dependency.
type CircuitBreaker struct {
	name   string
	config Config

	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	halfOpenRequests int
	windowStart      time.Time
	lastFailureTime  time.Time
	stateChangeTime  time.Time

	totalCalls     int64
	totalFailures  int64
	totalRejected  int64
	totalSuccesses int64

	onStateChange func(name string, from, to State)
}

// New creates a new circuit breaker with the given configuration.
func New(name string, config Config) *CircuitBreaker {
	return &CircuitBreaker{
		name:            name,
		config:          config,
		state:           StateClosed,
		windowStart:     time.Now(),
		stateChangeTime: time.Now(),
	}
}

// OnStateChange sets a callback invoked on every state transition.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Name returns the guarded dependency name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn through the circuit breaker. A context deadline exceeded or
// any error from fn counts as a failure for breaker accounting.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allowRequest() {
		cb.mu.Lock()
		cb.totalRejected++
		state := cb.state
		cb.mu.Unlock()
		return &ErrOpen{Name: cb.name, State: state}
	}

	err := fn(ctx)
	if err != nil {
		cb.onFailure()
		return fmt.Errorf("%s call failed: %w", cb.name, err)
	}

	cb.onSuccess()
	return nil
}

// allowRequest checks if a request should be allowed based on current state.
func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.totalCalls++

	// Transition from open to half-open after the reset timeout.
	if cb.state == StateOpen {
		if now.Sub(cb.stateChangeTime) >= cb.config.ResetTimeout {
			cb.transitionTo(StateHalfOpen)
			cb.halfOpenRequests++
			return true
		}
		cb.totalCalls--
		return false
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenRequests >= cb.config.MaxRequestsHalfOpen {
			cb.totalCalls--
			return false
		}
		cb.halfOpenRequests++
		return true
	}

	// Closed state: expire the rolling window before counting more failures.
	if now.Sub(cb.windowStart) >= cb.config.RollingWindow {
		cb.windowStart = now
		cb.failureCount = 0
	}
	return true
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	cb.lastFailureTime = time.Now()
	cb.successCount = 0

	switch cb.state {
	case StateClosed:
		if cb.failureCount == 0 {
			cb.windowStart = cb.lastFailureTime
		}
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		// Any failed trial call reopens the circuit and restarts the timeout.
		cb.transitionTo(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalSuccesses++

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.transitionTo(StateClosed)
		}
	}
}

// transitionTo transitions the circuit breaker to a new state.
// Caller must hold the lock.
func (cb *CircuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.stateChangeTime = time.Now()
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenRequests = 0
	cb.windowStart = cb.stateChangeTime

	if cb.onStateChange != nil {
		go cb.onStateChange(cb.name, oldState, newState)
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats holds a point-in-time snapshot of breaker statistics,
// shaped for the health/introspection endpoint.
type Stats struct {
	Name             string    `json:"name"`
	State            string    `json:"state"`
	FailureCount     int       `json:"failure_count"`
	SuccessCount     int       `json:"success_count"`
	HalfOpenRequests int       `json:"half_open_requests"`
	TotalCalls       int64     `json:"total_calls"`
	TotalFailures    int64     `json:"total_failures"`
	TotalSuccesses   int64     `json:"total_successes"`
	TotalRejected    int64     `json:"total_rejected"`
	LastFailureTime  time.Time `json:"last_failure_time"`
	StateChangeTime  time.Time `json:"state_change_time"`
}

// GetStats returns current circuit breaker statistics.
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		Name:             cb.name,
		State:            cb.state.String(),
		FailureCount:     cb.failureCount,
		SuccessCount:     cb.successCount,
		HalfOpenRequests: cb.halfOpenRequests,
		TotalCalls:       cb.totalCalls,
		TotalFailures:    cb.totalFailures,
		TotalSuccesses:   cb.totalSuccesses,
		TotalRejected:    cb.totalRejected,
		LastFailureTime:  cb.lastFailureTime,
		StateChangeTime:  cb.stateChangeTime,
	}
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(StateClosed)
}
