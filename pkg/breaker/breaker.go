package breaker

import (
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed allows calls to pass through.
	StateClosed State = iota
	// StateOpen rejects all calls until the open interval elapses.
	StateOpen
	// StateHalfOpen admits probe calls to test whether the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// Breaker is a consecutive-failure circuit breaker guarding a single shared
// dependency. One Breaker instance is shared by every goroutine calling that
// dependency; all methods are safe for concurrent use.
//
// The caller drives it explicitly: check Allow before the call, then report
// the outcome with RecordSuccess or RecordFailure. While open, Allow returns
// false without any side effect so rejected calls stay cheap.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	openInterval     time.Duration
	successThreshold int

	state        State
	failures     int
	successes    int // consecutive successes while half-open
	lastFailedAt time.Time

	now func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithOpenInterval sets how long the circuit stays open before admitting probes.
func WithOpenInterval(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.openInterval = d
		}
	}
}

// WithSuccessThreshold sets how many consecutive half-open successes close the circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithClock overrides the time source. Used by tests to avoid real sleeps.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a Breaker. Defaults: open after 5 consecutive failures, stay
// open for 60 seconds, close again after 1 successful probe.
func New(opts ...Option) *Breaker {
	b := &Breaker{
		failureThreshold: 5,
		openInterval:     60 * time.Second,
		successThreshold: 1,
		state:            StateClosed,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may proceed. An open circuit transitions to
// half-open once the open interval has elapsed, admitting the probe call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailedAt) > b.openInterval {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	}
}

// RecordFailure reports a failed call and may open the circuit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailedAt = b.now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		// The probe failed; the dependency is still down.
		b.state = StateOpen
		b.failures = b.failureThreshold
		b.successes = 0
	}
}

// State returns the current state, accounting for the open-to-half-open
// transition that would happen on the next Allow call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.lastFailedAt) > b.openInterval {
		return StateHalfOpen
	}
	return b.state
}

// Open reports whether the circuit currently rejects calls.
func (b *Breaker) Open() bool {
	return b.State() == StateOpen
}

// Reset returns the breaker to the closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.lastFailedAt = time.Time{}
}

// Stats is a snapshot of breaker internals for the metrics surface.
type Stats struct {
	State        string
	Failures     int
	LastFailedAt time.Time
}

// Stats returns the current breaker statistics.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:        b.state.String(),
		Failures:     b.failures,
		LastFailedAt: b.lastFailedAt,
	}
}
