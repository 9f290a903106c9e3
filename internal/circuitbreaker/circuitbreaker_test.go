package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maildash/assistant-gateway/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return New(cfg, WithClock(clock.Now)), clock
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: 30 * time.Second})

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state after 2 failures = %v, want closed", got)
	}

	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", got)
	}

	if err := b.Allow(); !errors.Is(err, domain.ErrCircuitBreakerOpen) {
		t.Errorf("Allow() while open = %v, want ErrCircuitBreakerOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: 30 * time.Second})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if got := b.State(); got != StateClosed {
		t.Errorf("state = %v, want closed (success should reset the streak)", got)
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 30 * time.Second})

	b.RecordFailure()
	if err := b.Allow(); !errors.Is(err, domain.ErrCircuitBreakerOpen) {
		t.Fatalf("Allow() while open = %v, want ErrCircuitBreakerOpen", err)
	}

	clock.Advance(31 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v, want probe admitted", err)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}

	b.RecordSuccess()
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state after 1 success = %v, want half-open", got)
	}

	b.RecordSuccess()
	if got := b.State(); got != StateClosed {
		t.Errorf("state after 2 successes = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 30 * time.Second})

	b.RecordFailure()
	clock.Advance(31 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v", err)
	}

	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Errorf("state after half-open failure = %v, want open", got)
	}
}

func TestManager_ReusesBreakerPerProvider(t *testing.T) {
	m := NewManager(DefaultConfig())

	a := m.Get("openai")
	if m.Get("openai") != a {
		t.Error("Get returned a different breaker for the same provider")
	}
	if m.Get("anthropic") == a {
		t.Error("Get returned the same breaker for different providers")
	}
}

func TestManager_States(t *testing.T) {
	m := NewManager(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Minute})

	m.Get("openai").RecordFailure()
	m.Get("anthropic")

	states := m.States()
	if states["openai"] != "open" {
		t.Errorf("openai state = %q, want open", states["openai"])
	}
	if states["anthropic"] != "closed" {
		t.Errorf("anthropic state = %q, want closed", states["anthropic"])
	}
}
