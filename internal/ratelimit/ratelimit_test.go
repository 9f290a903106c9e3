package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move through bucket boundaries deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
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

func newTestLimiter(t *testing.T, perMinute, perHour int, clock *fakeClock) *InMemoryLimiter {
	t.Helper()
	l := New(perMinute, perHour, WithClock(clock.Now))
	t.Cleanup(l.Stop)
	return l
}

func TestLimiter_MinuteCeiling(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 3, 100, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Check(ctx, "client1")
		if err != nil {
			t.Fatalf("Check error: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		l.Record(ctx, "client1")
	}

	d, _ := l.Check(ctx, "client1")
	if d.Allowed {
		t.Error("request past the minute ceiling should be rejected")
	}
	if d.Window != WindowMinute {
		t.Errorf("Window = %q, want %q", d.Window, WindowMinute)
	}

	wantReset := nextBucket(clock.Now(), time.Minute)
	if !d.ResetAt.Equal(wantReset) {
		t.Errorf("ResetAt = %v, want start of next minute bucket %v", d.ResetAt, wantReset)
	}
}

func TestLimiter_MinuteCheckedBeforeHour(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 1, 1, clock)
	ctx := context.Background()

	l.Record(ctx, "client1")

	d, _ := l.Check(ctx, "client1")
	if d.Allowed {
		t.Fatal("should be rejected")
	}
	if d.Window != WindowMinute {
		t.Errorf("Window = %q, want minute to be reported first", d.Window)
	}
}

func TestLimiter_HourCeiling(t *testing.T) {
	// Align to an hour boundary so advancing by minutes never crosses it.
	clock := newFakeClock(time.Unix(1_700_000_400-1_700_000_400%3600, 0))
	l := newTestLimiter(t, 10, 5, clock)
	ctx := context.Background()

	// Spread 5 requests over distinct minute buckets within one hour.
	for i := 0; i < 5; i++ {
		d, _ := l.Check(ctx, "client1")
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		l.Record(ctx, "client1")
		clock.Advance(time.Minute)
	}

	d, _ := l.Check(ctx, "client1")
	if d.Allowed {
		t.Error("request past the hour ceiling should be rejected")
	}
	if d.Window != WindowHour {
		t.Errorf("Window = %q, want %q", d.Window, WindowHour)
	}
}

func TestLimiter_BucketAligned(t *testing.T) {
	// Second 59 of one minute and second 1 of the next land in different
	// buckets even though only two seconds elapse.
	base := time.Unix(1_700_000_000-1_700_000_000%60, 0)
	clock := newFakeClock(base.Add(59 * time.Second))
	l := newTestLimiter(t, 1, 100, clock)
	ctx := context.Background()

	l.Record(ctx, "client1")
	if d, _ := l.Check(ctx, "client1"); d.Allowed {
		t.Fatal("minute bucket should be exhausted at second 59")
	}

	clock.Advance(2 * time.Second)

	if d, _ := l.Check(ctx, "client1"); !d.Allowed {
		t.Error("new minute bucket should admit at second 1")
	}
}

func TestLimiter_Usage(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 20, 100, clock)
	ctx := context.Background()

	u, _ := l.Usage(ctx, "client1")
	if u.Minute != 0 || u.Hour != 0 {
		t.Errorf("fresh usage = %+v, want zeros", u)
	}

	l.Record(ctx, "client1")
	l.Record(ctx, "client1")

	u, _ = l.Usage(ctx, "client1")
	if u.Minute != 2 {
		t.Errorf("minute usage = %d, want 2", u.Minute)
	}
	if u.Hour != 2 {
		t.Errorf("hour usage = %d, want 2", u.Hour)
	}
}

func TestLimiter_IndependentIdentifiers(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 1, 100, clock)
	ctx := context.Background()

	l.Record(ctx, "client1")

	if d, _ := l.Check(ctx, "client1"); d.Allowed {
		t.Error("client1 should be limited")
	}
	if d, _ := l.Check(ctx, "client2"); !d.Allowed {
		t.Error("client2 should not be limited")
	}
}

func TestLimiter_Reset(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 1, 1, clock)
	ctx := context.Background()

	l.Record(ctx, "client1")
	if d, _ := l.Check(ctx, "client1"); d.Allowed {
		t.Fatal("should be limited before reset")
	}

	l.Reset(ctx, "client1")

	if d, _ := l.Check(ctx, "client1"); !d.Allowed {
		t.Error("should admit after reset")
	}
	u, _ := l.Usage(ctx, "client1")
	if u.Minute != 0 || u.Hour != 0 {
		t.Errorf("usage after reset = %+v, want zeros", u)
	}
}

func TestLimiter_SweepRemovesExpired(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 20, 100, clock)
	ctx := context.Background()

	l.Record(ctx, "client1")
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (minute+hour entries)", l.Len())
	}

	// Past the minute reset but not the hour reset.
	clock.Advance(2 * time.Minute)
	l.removeExpired()
	if l.Len() != 1 {
		t.Errorf("Len = %d after minute expiry, want 1", l.Len())
	}

	clock.Advance(2 * time.Hour)
	l.removeExpired()
	if l.Len() != 0 {
		t.Errorf("Len = %d after hour expiry, want 0", l.Len())
	}
}

func TestLimiter_ConcurrentRecord(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 1000, 10000, clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Check(ctx, "client1")
				l.Record(ctx, "client1")
			}
		}()
	}
	wg.Wait()

	u, _ := l.Usage(ctx, "client1")
	if u.Minute != 200 {
		t.Errorf("minute usage = %d, want 200", u.Minute)
	}
}

// The Check/Record pair is intentionally not atomic: concurrent requests
// can all pass Check before any Record lands. This pins down the relaxed
// guarantee so a future "fix" is a conscious decision.
func TestLimiter_CheckRecordNotAtomic(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	l := newTestLimiter(t, 1, 100, clock)
	ctx := context.Background()

	d1, _ := l.Check(ctx, "client1")
	d2, _ := l.Check(ctx, "client1")
	if !d1.Allowed || !d2.Allowed {
		t.Fatal("both checks should pass before either records")
	}

	l.Record(ctx, "client1")
	l.Record(ctx, "client1")

	u, _ := l.Usage(ctx, "client1")
	if u.Minute != 2 {
		t.Errorf("minute usage = %d, want 2 (bounded over-admission)", u.Minute)
	}
}
