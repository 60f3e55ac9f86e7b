package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("circuit breaker is probing")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker
	Threshold uint32
	// Cooldown is how long the breaker stays open before probing
	Cooldown time.Duration
	// Probes is the number of calls admitted while half-open
	Probes uint32
	// IsFailure classifies errors; context cancellation never counts
	IsFailure func(err error) bool
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
	// Now overrides the clock
	Now func() time.Time
}

// Counts holds the statistics for the current state
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

// Snapshot is a point-in-time view of a breaker
type Snapshot struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Counts    Counts    `json:"counts"`
	OpenUntil time.Time `json:"open_until,omitempty"`
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	counts     Counts
	openUntil  time.Time
	generation uint64
}

// New creates a breaker with defaults for unset settings
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = 3
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = time.Minute
	}
	if settings.Probes == 0 {
		settings.Probes = 1
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	return &Breaker{name: name, settings: settings}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current(b.settings.Now())
}

// Counts returns a copy of the counts for the current state
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Snapshot returns the breaker's state for diagnostics
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current(b.settings.Now())
	snap := Snapshot{Name: b.name, State: state.String(), Counts: b.counts}
	if state == StateOpen {
		snap.OpenUntil = b.openUntil
	}
	return snap
}

// Do runs fn if the breaker admits it and records the outcome
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.record(generation, false)
			panic(e)
		}
	}()

	err = fn(ctx)
	switch {
	case err == nil:
		b.record(generation, true)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		b.release(generation)
	default:
		b.record(generation, !b.settings.IsFailure(err))
	}
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current(b.settings.Now()) {
	case StateOpen:
		return b.generation, ErrCircuitOpen
	case StateHalfOpen:
		if b.counts.Requests >= b.settings.Probes {
			return b.generation, ErrTooManyRequests
		}
	}
	b.counts.Requests++
	return b.generation, nil
}

// release returns an admission slot without recording an outcome
func (b *Breaker) release(generation uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation == b.generation && b.counts.Requests > 0 {
		b.counts.Requests--
	}
}

func (b *Breaker) record(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Now()
	state := b.current(now)
	if generation != b.generation {
		return
	}

	if success {
		b.counts.Successes++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.Probes {
			b.transition(StateClosed, now)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	if state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.Threshold {
		b.transition(StateOpen, now)
	}
}

// current advances Open to HalfOpen once the cool-down has passed
func (b *Breaker) current(now time.Time) State {
	if b.state == StateOpen && !now.Before(b.openUntil) {
		b.transition(StateHalfOpen, now)
	}
	return b.state
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.generation++
	b.counts = Counts{}
	b.openUntil = time.Time{}
	if to == StateOpen {
		b.openUntil = now.Add(b.settings.Cooldown)
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
