// Package resilience holds the circuit breaker that guards the primary
// embedding provider.
package resilience

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the breaker state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Default thresholds.
const (
	DefaultThreshold       = 5
	DefaultWindow          = 10 * time.Minute
	DefaultRecoveryTimeout = 5 * time.Minute
)

// BreakerStats is a point-in-time view of the breaker.
type BreakerStats struct {
	State           State      `json:"state"`
	RecentFailures  int        `json:"recent_failures"`
	RecentSuccesses int        `json:"recent_successes"`
	OpenedAt        *time.Time `json:"opened_at,omitempty"`
	RecoveryIn      string     `json:"recovery_in,omitempty"`
}

// ResilienceContext is a time-windowed circuit breaker. One instance is
// created at startup and shared by everything that calls the primary provider.
type ResilienceContext struct {
	mu        sync.Mutex
	state     State
	failures  []time.Time
	successes []time.Time
	openedAt  time.Time

	threshold       int
	window          time.Duration
	recoveryTimeout time.Duration
	now             func() time.Time
	logger          *zap.Logger
}

// Option configures a ResilienceContext.
type Option func(*ResilienceContext)

// WithThreshold sets how many failures within the window open the circuit.
func WithThreshold(n int) Option {
	return func(r *ResilienceContext) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithWindow sets the trailing window failures are counted in.
func WithWindow(d time.Duration) Option {
	return func(r *ResilienceContext) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithRecoveryTimeout sets how long the circuit stays open before a trial call.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(r *ResilienceContext) {
		if d > 0 {
			r.recoveryTimeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *ResilienceContext) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l *zap.Logger) Option {
	return func(r *ResilienceContext) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a closed breaker.
func New(opts ...Option) *ResilienceContext {
	r := &ResilienceContext{
		state:           StateClosed,
		threshold:       DefaultThreshold,
		window:          DefaultWindow,
		recoveryTimeout: DefaultRecoveryTimeout,
		now:             time.Now,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordFailure notes a failed call. In CLOSED the circuit opens once the
// failures inside the window reach the threshold; in HALF_OPEN a single
// failure reopens it.
func (r *ResilienceContext) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.failures = append(r.failures, now)
	r.prune(now)

	switch r.state {
	case StateHalfOpen:
		r.open(now)
	case StateClosed:
		if len(r.failures) >= r.threshold {
			r.open(now)
		}
	}
}

// RecordSuccess notes a successful call. A success in HALF_OPEN closes the
// circuit and clears the failure history.
func (r *ResilienceContext) RecordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.successes = append(r.successes, now)
	r.prune(now)

	if r.state == StateHalfOpen {
		r.state = StateClosed
		r.failures = nil
		r.openedAt = time.Time{}
		r.logger.Info("circuit breaker closed")
	}
}

// CanAttempt reports whether a call may go through. An open circuit moves to
// HALF_OPEN on the first check after the recovery timeout.
func (r *ResilienceContext) CanAttempt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateOpen {
		return true
	}
	if r.now().Sub(r.openedAt) >= r.recoveryTimeout {
		r.state = StateHalfOpen
		r.logger.Info("circuit breaker half-open, allowing trial call")
		return true
	}
	return false
}

// State returns the current state without transitioning.
func (r *ResilienceContext) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stats returns counts for the current window and, when open, the time left
// before a trial call is allowed.
func (r *ResilienceContext) Stats() BreakerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)
	st := BreakerStats{
		State:           r.state,
		RecentFailures:  len(r.failures),
		RecentSuccesses: len(r.successes),
	}
	if !r.openedAt.IsZero() {
		opened := r.openedAt
		st.OpenedAt = &opened
	}
	if r.state == StateOpen {
		left := r.recoveryTimeout - now.Sub(r.openedAt)
		if left < 0 {
			left = 0
		}
		st.RecoveryIn = left.Round(time.Second).String()
	}
	return st
}

func (r *ResilienceContext) open(now time.Time) {
	r.state = StateOpen
	r.openedAt = now
	r.logger.Warn("circuit breaker opened",
		zap.Int("recent_failures", len(r.failures)),
		zap.Duration("recovery_timeout", r.recoveryTimeout))
}

// prune drops timestamps that are window old or older. Caller holds mu.
func (r *ResilienceContext) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	r.failures = dropThrough(r.failures, cutoff)
	r.successes = dropThrough(r.successes, cutoff)
}

// dropThrough removes the leading timestamps at or before cutoff.
func dropThrough(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
