// Package breaker implements a closed/open/half-open circuit breaker for collaborator calls.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

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
		return "half-open"
	default:
		return "unknown"
	}
}

type Config struct {
	MaxFailures     int
	ResetTimeout    time.Duration
	HalfOpenMaxReqs int
}

func DefaultConfig() Config {
	return Config{
		MaxFailures:     5,
		ResetTimeout:    30 * time.Second,
		HalfOpenMaxReqs: 1,
	}
}

// Breaker opens after MaxFailures consecutive failures and lets HalfOpenMaxReqs probe
// calls through once ResetTimeout has passed.
type Breaker struct {
	config Config
	now    func() time.Time

	mu           sync.Mutex
	state        State
	failures     int
	lastFailure  time.Time
	halfOpenReqs int
}

func New(config Config) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultConfig().MaxFailures
	}

	if config.HalfOpenMaxReqs <= 0 {
		config.HalfOpenMaxReqs = 1
	}

	return &Breaker{config: config, now: time.Now, state: StateClosed}
}

// Do runs fn when the breaker allows it. failure decides which errors count against the
// downstream; a nil failure counts every error.
func (b *Breaker) Do(fn func() error, failure func(error) bool) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn()
	if err != nil && (failure == nil || failure(err)) {
		b.onFailure()
	} else {
		b.onSuccess()
	}

	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.config.ResetTimeout {
			return false
		}

		b.state = StateHalfOpen
		b.halfOpenReqs = 1

		return true
	case StateHalfOpen:
		if b.halfOpenReqs < b.config.HalfOpenMaxReqs {
			b.halfOpenReqs++

			return true
		}

		return false
	default:
		return false
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.halfOpenReqs = 0
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.config.MaxFailures {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.halfOpenReqs = 0
	case StateOpen:
	}
}
