// Package ratelimit enforces per-identifier request quotas over two
// overlapping bucket-aligned windows (minute and hour). Windows are fixed
// multiples of the window length since the epoch, not rolling windows
// anchored to the request time. Supports in-memory (single instance) and
// Redis (distributed) backends.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	WindowMinute = "minute"
	WindowHour   = "hour"

	sweepInterval = 5 * time.Minute
)

// Decision is the outcome of a quota check. When Allowed is false, Window
// names the exhausted window and ResetAt is the start of its next bucket.
type Decision struct {
	Allowed bool
	Window  string
	ResetAt time.Time
}

// Usage reports the request counts in the current minute and hour buckets.
type Usage struct {
	Minute int
	Hour   int
}

// Limiter defines the interface for rate limiting backends.
//
// Check and Record are deliberately separate and not atomic: two concurrent
// requests for the same identifier can both observe an allowed decision
// before either records. The over-admission is bounded by the number of
// in-flight requests for that identifier and is accepted; callers needing
// exact ceilings must serialize the pair themselves.
type Limiter interface {
	Check(ctx context.Context, identifier string) (Decision, error)
	Record(ctx context.Context, identifier string) error
	Usage(ctx context.Context, identifier string) (Usage, error)
	Reset(ctx context.Context, identifier string) error
}

type entry struct {
	count   int
	resetAt time.Time
}

// InMemoryLimiter tracks bucket counts in a map guarded by a mutex.
// Construct with New and call Stop to halt the background sweep.
type InMemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxPerMinute int
	maxPerHour   int

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// Option configures an InMemoryLimiter.
type Option func(*InMemoryLimiter)

// WithClock replaces the limiter's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *InMemoryLimiter) {
		l.now = now
	}
}

// New creates an in-memory limiter and starts its expiry sweep.
func New(maxPerMinute, maxPerHour int, opts ...Option) *InMemoryLimiter {
	l := &InMemoryLimiter{
		entries:      make(map[string]*entry),
		maxPerMinute: maxPerMinute,
		maxPerHour:   maxPerHour,
		now:          time.Now,
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.sweep()

	return l
}

// Stop halts the background sweep. Safe to call more than once.
func (l *InMemoryLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func minuteKey(identifier string, t time.Time) string {
	return fmt.Sprintf("%s:minute:%d", identifier, t.Unix()/60)
}

func hourKey(identifier string, t time.Time) string {
	return fmt.Sprintf("%s:hour:%d", identifier, t.Unix()/3600)
}

// nextBucket returns the start of the bucket after the one containing t.
func nextBucket(t time.Time, window time.Duration) time.Time {
	secs := int64(window / time.Second)
	return time.Unix((t.Unix()/secs+1)*secs, 0)
}

func (l *InMemoryLimiter) Check(ctx context.Context, identifier string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if e, ok := l.entries[minuteKey(identifier, now)]; ok && e.count >= l.maxPerMinute {
		return Decision{Window: WindowMinute, ResetAt: e.resetAt}, nil
	}
	if e, ok := l.entries[hourKey(identifier, now)]; ok && e.count >= l.maxPerHour {
		return Decision{Window: WindowHour, ResetAt: e.resetAt}, nil
	}

	return Decision{Allowed: true}, nil
}

func (l *InMemoryLimiter) Record(ctx context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.increment(minuteKey(identifier, now), nextBucket(now, time.Minute))
	l.increment(hourKey(identifier, now), nextBucket(now, time.Hour))

	return nil
}

func (l *InMemoryLimiter) increment(key string, resetAt time.Time) {
	if e, ok := l.entries[key]; ok {
		e.count++
		return
	}
	l.entries[key] = &entry{count: 1, resetAt: resetAt}
}

func (l *InMemoryLimiter) Usage(ctx context.Context, identifier string) (Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var u Usage
	if e, ok := l.entries[minuteKey(identifier, now)]; ok {
		u.Minute = e.count
	}
	if e, ok := l.entries[hourKey(identifier, now)]; ok {
		u.Hour = e.count
	}

	return u, nil
}

func (l *InMemoryLimiter) Reset(ctx context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := identifier + ":"
	for key := range l.entries {
		if strings.HasPrefix(key, prefix) {
			delete(l.entries, key)
		}
	}

	return nil
}

func (l *InMemoryLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeExpired()
		case <-l.stop:
			return
		}
	}
}

func (l *InMemoryLimiter) removeExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if !e.resetAt.After(now) {
			delete(l.entries, key)
		}
	}
}

// Len returns the number of live entries, for tests and diagnostics.
func (l *InMemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
