// Package circuitbreaker protects the dispatcher from repeatedly calling a
// failing provider. A breaker trips open after consecutive failures, fails
// fast while open, and probes recovery through a half-open state.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/maildash/assistant-gateway/internal/domain"
)

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
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // successes in half-open before closing
	Timeout          time.Duration // open duration before probing recovery
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	config      Config
	now         func() time.Time
}

type Option func(*Breaker)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

func New(cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		state:  StateClosed,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a request may proceed. It returns
// domain.ErrCircuitBreakerOpen while the breaker is open; once the open
// timeout has elapsed it moves to half-open and admits probes.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) > b.config.Timeout {
			b.state = StateHalfOpen
			b.successes = 0
			return nil
		}
		return domain.ErrCircuitBreakerOpen
	default:
		return nil
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.successes = 0
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Manager keys breakers by provider kind, creating them on first use.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   Config
	opts     []Option
}

func NewManager(cfg Config, opts ...Option) *Manager {
	return &Manager{
		breakers: make(map[string]*Breaker),
		config:   cfg,
		opts:     opts,
	}
}

func (m *Manager) Get(provider string) *Breaker {
	m.mu.RLock()
	b, ok := m.breakers[provider]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[provider]; ok {
		return b
	}
	b = New(m.config, m.opts...)
	m.breakers[provider] = b
	return b
}

// States reports the state of every breaker created so far, for the health
// and admin surfaces.
func (m *Manager) States() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]string, len(m.breakers))
	for provider, b := range m.breakers {
		states[provider] = b.State().String()
	}
	return states
}
