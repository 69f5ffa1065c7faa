package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeClock is an injectable, manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestScheduler(clock *fakeClock) *Scheduler {
	return New(Config{
		PollInterval: 10 * time.Millisecond,
		Now:          clock.now,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func waitFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}
}

func TestSchedulerAddValidation(t *testing.T) {
	s := newTestScheduler(newFakeClock())
	noop := func(ctx context.Context) error { return nil }

	if err := s.Add("", "* * * * *", noop); err == nil {
		t.Error("empty id accepted")
	}
	if err := s.Add("job", "* * * * *", nil); err == nil {
		t.Error("nil job accepted")
	}
	if err := s.Add("job", "not a cron", noop); err == nil {
		t.Error("invalid cron accepted")
	}
	if err := s.Add("job", "* * * * *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("job", "* * * * *", noop); err == nil {
		t.Error("duplicate id accepted")
	}
}

func TestSchedulerRunOnceFiresDueEntries(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)

	fired := make(chan struct{}, 1)
	err := s.Add("minutely", "* * * * *", func(ctx context.Context) error {
		fired <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Not yet due: the first firing is the next cron occurrence.
	s.RunOnce(context.Background())
	select {
	case <-fired:
		t.Fatal("fired before due time")
	default:
	}

	clock.advance(time.Minute)
	s.RunOnce(context.Background())
	waitFired(t, fired)
}

func TestSchedulerOverlapSkipped(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)

	started := make(chan struct{})
	release := make(chan struct{})
	err := s.Add("slow", "* * * * *", func(ctx context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	clock.advance(time.Minute)
	s.RunOnce(context.Background())
	waitFired(t, started)

	// The prior run is still active; the next due firing must be skipped.
	clock.advance(time.Minute)
	s.RunOnce(context.Background())
	select {
	case <-started:
		t.Fatal("overlapping run was started")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	// Once the prior run finishes, the entry fires again.
	deadline := time.Now().Add(2 * time.Second)
	for {
		clock.advance(time.Minute)
		s.RunOnce(context.Background())
		select {
		case <-started:
			return
		case <-time.After(10 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("entry never fired after the prior run finished")
		}
	}
}

func TestSchedulerRemove(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)

	fired := make(chan struct{}, 1)
	if err := s.Add("gone", "* * * * *", func(ctx context.Context) error {
		fired <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s.Remove("gone")
	s.Remove("never existed") // no-op

	clock.advance(time.Minute)
	s.RunOnce(context.Background())
	select {
	case <-fired:
		t.Fatal("removed entry fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerStartStop(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)

	fired := make(chan struct{}, 1)
	if err := s.Add("bg", "* * * * *", func(ctx context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	clock.advance(time.Minute)
	s.Start()
	s.Start() // second Start is a no-op
	waitFired(t, fired)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stopping a stopped scheduler is fine.
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestSchedulerStopTimeout(t *testing.T) {
	s := newTestScheduler(newFakeClock())
	s.Start()

	expired, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Stop(expired)
	// The poll loop usually exits instantly; both outcomes are acceptable,
	// but an expired context must never block.
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Stop: %v", err)
	}
}
