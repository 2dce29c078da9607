package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/restock-engine/internal/replenishment"
)

// ErrCycleInProgress is returned by RunOnce while another cycle is running.
var ErrCycleInProgress = errors.New("a replenishment cycle is already running")

// ErrStopped is returned by RunOnce after Stop.
var ErrStopped = errors.New("scheduler stopped")

// ErrRunNotFound is returned by a RunStore for an unknown cycle id.
var ErrRunNotFound = errors.New("cycle run not found")

// Status is a point-in-time view of the scheduler.
type Status struct {
	State               State         `json:"state"`
	LastRun             *CycleRun     `json:"last_run,omitempty"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	NextRunAt           *time.Time    `json:"next_run_at,omitempty"`
	Interval            time.Duration `json:"interval"`
}

// Scheduler drives the cycle on a timer: IDLE -> RUNNING -> SLEEPING ->
// RUNNING ... until Stop moves it to STOPPED. Cycles never overlap.
type Scheduler struct {
	cycle *Cycle
	cfg   Config

	// running admits one cycle at a time, from the loop or RunOnce.
	running *semaphore.Weighted
	trigger chan struct{}
	stop    chan struct{}
	stopped sync.Once

	mu        sync.RWMutex
	state     State
	last      *CycleResult
	lastErr   error
	failures  int
	nextRunAt *time.Time
	backoff   *backoff.ExponentialBackOff

	// after provides the sleep timer; tests replace it.
	after func(d time.Duration) <-chan time.Time
}

// NewScheduler creates an idle scheduler for cycle.
func NewScheduler(cycle *Cycle, cfg Config) *Scheduler {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BackoffInitial
	bo.MaxInterval = cfg.BackoffMax
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	return &Scheduler{
		cycle:   cycle,
		cfg:     cfg,
		running: semaphore.NewWeighted(1),
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		state:   StateIdle,
		backoff: bo,
		after:   time.After,
	}
}

// Run loops until ctx is cancelled or Stop is called. It returns nil after
// Stop and ctx.Err() after cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.cfg.Interval).Msg("replenishment scheduler started")
	for {
		if s.isStopping() {
			s.setState(StateStopped)
			return nil
		}

		if err := s.running.Acquire(ctx, 1); err != nil {
			s.setState(StateStopped)
			return ctx.Err()
		}
		wait := s.runCycle(ctx)
		s.running.Release(1)

		if ctx.Err() != nil {
			s.setState(StateStopped)
			return ctx.Err()
		}
		if s.isStopping() {
			s.setState(StateStopped)
			return nil
		}

		s.sleeping(wait)
		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			return ctx.Err()
		case <-s.stop:
			s.setState(StateStopped)
			log.Info().Msg("replenishment scheduler stopped")
			return nil
		case <-s.trigger:
			log.Info().Msg("cycle triggered early")
		case <-s.after(wait):
		}
	}
}

// RunOnce runs a single cycle now, unless one is already running.
func (s *Scheduler) RunOnce(ctx context.Context) (*CycleResult, error) {
	if s.isStopping() {
		return nil, ErrStopped
	}
	if !s.running.TryAcquire(1) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Release(1)

	s.mu.RLock()
	prev, prevNext := s.state, s.nextRunAt
	s.mu.RUnlock()

	s.runCycle(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.isStopping():
		s.state = StateStopped
	case prev != StateRunning:
		s.state, s.nextRunAt = prev, prevNext
	}
	return s.last, s.lastErr
}

// Trigger wakes a sleeping scheduler so the next cycle starts right away.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop requests the scheduler to stop. In-flight items finish first.
func (s *Scheduler) Stop() {
	s.stopped.Do(func() { close(s.stop) })
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastResult returns the most recent cycle result, or nil.
func (s *Scheduler) LastResult() *CycleResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:               s.state,
		ConsecutiveFailures: s.failures,
		NextRunAt:           s.nextRunAt,
		Interval:            s.cfg.Interval,
	}
	if s.last != nil {
		run := s.last.Run
		st.LastRun = &run
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// runCycle runs one cycle and returns how long to sleep before the next.
func (s *Scheduler) runCycle(ctx context.Context) time.Duration {
	s.setState(StateRunning)

	res, err := s.cycle.Run(ctx, s.stop)

	s.mu.Lock()
	defer s.mu.Unlock()

	if res != nil {
		s.last = res
	}
	s.lastErr = err

	if err != nil && errors.Is(err, replenishment.ErrCollaboratorUnavailable) {
		s.failures++
		wait := s.backoff.NextBackOff()
		if wait <= 0 || wait > s.cfg.BackoffMax {
			wait = s.cfg.BackoffMax
		}
		log.Warn().Err(err).Int("consecutive_failures", s.failures).Dur("retry_in", wait).Msg("cycle failed, backing off")
		return wait
	}

	s.failures = 0
	s.backoff.Reset()
	return s.cfg.Interval
}

func (s *Scheduler) sleeping(wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateSleeping
	next := time.Now().Add(wait)
	s.nextRunAt = &next
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if state != StateSleeping {
		s.nextRunAt = nil
	}
}

func (s *Scheduler) isStopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}
