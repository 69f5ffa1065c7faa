package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultPollInterval = 5 * time.Second

// Job is the unit of work a schedule entry fires.
type Job func(ctx context.Context) error

// Config configures the scheduler.
type Config struct {
	PollInterval time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

// entry is one registered cron job plus its firing state.
type entry struct {
	id        string
	cronExpr  string
	job       Job
	nextRunAt time.Time
	running   bool
	lastError string
}

// Scheduler polls registered entries and fires the due ones. Overlapping
// firings of the same entry are skipped, not queued.
type Scheduler struct {
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler instance.
func New(cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		pollInterval: cfg.PollInterval,
		now:          cfg.Now,
		logger:       cfg.Logger,
		entries:      map[string]*entry{},
	}
}

// Add registers a job under an id. The cron expression is validated eagerly;
// the first firing is the expression's next occurrence after now.
func (s *Scheduler) Add(id, cronExpr string, job Job) error {
	if id == "" {
		return errors.New("schedule id is required")
	}
	if job == nil {
		return errors.New("schedule job is nil")
	}
	next, err := NextRunUTC(cronExpr, s.now())
	if err != nil {
		return fmt.Errorf("schedule %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; exists {
		return fmt.Errorf("schedule %q already registered", id)
	}
	s.entries[id] = &entry{id: id, cronExpr: cronExpr, job: job, nextRunAt: next}
	return nil
}

// Remove unregisters a job. Removing an unknown id is a no-op.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Start begins background polling. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.RunOnce(loopCtx)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.RunOnce(loopCtx)
			}
		}
	}()
}

// Stop halts background polling and waits for the poll loop to exit, or for
// ctx to expire. In-flight jobs are not interrupted.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes a single scheduler pass, firing every due entry.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now().UTC()

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !e.nextRunAt.After(now) {
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.fire(ctx, e, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, e *entry, now time.Time) {
	next, err := NextRunUTC(e.cronExpr, now)
	if err != nil {
		// Validated on Add; reaching here means the parser changed under us.
		s.logger.Error("reschedule failed", "schedule", e.id, "error", err)
		return
	}

	s.mu.Lock()
	if e.running {
		e.nextRunAt = next
		e.lastError = "skipped because prior scheduled run is still active"
		s.mu.Unlock()
		s.logger.Warn("schedule overlap skipped", "schedule", e.id)
		return
	}
	e.running = true
	e.nextRunAt = next
	s.mu.Unlock()

	go func() {
		err := e.job(ctx)

		s.mu.Lock()
		e.running = false
		if err != nil {
			e.lastError = err.Error()
		} else {
			e.lastError = ""
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("scheduled run failed", "schedule", e.id, "error", err)
		} else {
			s.logger.Info("scheduled run completed", "schedule", e.id)
		}
	}()
}
