// Package scheduler runs recurring in-process jobs.
//
// Two kinds of job share one registry: fixed-interval jobs, first run one
// interval after registration, and anchored jobs that run at an hour of the
// day, optionally on one weekday. Each job runs on its own goroutine and never
// overlaps itself. A failing or panicking handler is logged and the job is
// armed for its next occurrence.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// RunRecorder observes completed runs
type RunRecorder interface {
	JobCompleted(ctx context.Context, job string, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) JobCompleted(context.Context, string, time.Duration, error) {}

// Scheduler owns the job registry. Create one per process and stop it with StopAll.
type Scheduler struct {
	clock    clockwork.Clock
	location *time.Location
	logger   *zap.Logger
	recorder RunRecorder
	baseCtx  context.Context

	mu      sync.Mutex
	jobs    map[uuid.UUID]*job
	stopped bool
	wg      sync.WaitGroup
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock sets the clock, used by tests to control time
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLocation sets the time zone anchored jobs are computed in
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the scheduler logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets where run durations and outcomes are reported
func WithRecorder(r RunRecorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New creates an empty Scheduler
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    clockwork.NewRealClock(),
		location: time.Local,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		jobs:     make(map[uuid.UUID]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	s.baseCtx = logger.WithContext(context.Background(), s.logger)
	return s
}

// RegisterInterval runs handler every interval, starting one interval from now
func (s *Scheduler) RegisterInterval(name string, interval time.Duration, handler Handler) (uuid.UUID, error) {
	if interval <= 0 {
		return uuid.Nil, fmt.Errorf("%w: interval must be positive", ErrInvalidJob)
	}
	j := &job{kind: KindInterval, interval: interval}
	return s.register(name, handler, j, s.runInterval)
}

// RegisterAnchored runs handler at hour:00 every day, or every week when weekday is set
func (s *Scheduler) RegisterAnchored(name string, hour int, weekday *time.Weekday, handler Handler) (uuid.UUID, error) {
	if hour < 0 || hour > 23 {
		return uuid.Nil, fmt.Errorf("%w: hour %d out of range", ErrInvalidJob, hour)
	}
	if weekday != nil && (*weekday < time.Sunday || *weekday > time.Saturday) {
		return uuid.Nil, fmt.Errorf("%w: invalid weekday", ErrInvalidJob)
	}
	j := &job{kind: KindAnchored, hour: hour}
	if weekday != nil {
		wd := *weekday
		j.weekday = &wd
	}
	return s.register(name, handler, j, s.runAnchored)
}

func (s *Scheduler) register(name string, handler Handler, j *job, loop func(*job)) (uuid.UUID, error) {
	if handler == nil {
		return uuid.Nil, fmt.Errorf("%w: handler is required", ErrInvalidJob)
	}

	j.id = uuid.New()
	j.name = name
	j.handler = handler
	j.status = JobStatusScheduled
	j.stop = make(chan struct{})
	j.done = make(chan struct{})

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return uuid.Nil, ErrSchedulerStopped
	}
	s.jobs[j.id] = j
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(j.done)
		loop(j)
	}()

	s.logger.Info("Job registered",
		logger.Job(name),
		zap.String("job_id", j.id.String()),
		zap.String("kind", string(j.kind)),
	)
	return j.id, nil
}

// runInterval fires at registration + k*interval. Ticks missed while a slow
// handler ran are skipped rather than run back to back.
func (s *Scheduler) runInterval(j *job) {
	next := s.clock.Now().Add(j.interval)
	for {
		if !s.wait(j, next) {
			return
		}
		s.execute(s.baseCtx, j)

		next = next.Add(j.interval)
		for now := s.clock.Now(); !next.After(now); {
			next = next.Add(j.interval)
		}
	}
}

// runAnchored sleeps until the next anchored occurrence, runs, then re-anchors
func (s *Scheduler) runAnchored(j *job) {
	for {
		next := NextAnchoredRun(s.clock.Now().In(s.location), j.hour, j.weekday)
		if !s.wait(j, next) {
			return
		}
		s.execute(s.baseCtx, j)
	}
}

// wait blocks until next or until the job is cancelled. It reports whether the job should run.
func (s *Scheduler) wait(j *job, next time.Time) bool {
	j.mu.Lock()
	j.nextRun = next
	j.mu.Unlock()

	timer := s.clock.NewTimer(next.Sub(s.clock.Now()))
	defer timer.Stop()

	select {
	case <-j.stop:
		return false
	case <-timer.Chan():
		return !j.stopped()
	}
}

// execute runs the handler once, converting a panic into an error
func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	started := s.clock.Now()
	j.mu.Lock()
	j.status = JobStatusRunning
	j.lastRun = &started
	j.mu.Unlock()

	log := s.logger.With(logger.Job(j.name), zap.String("job_id", j.id.String()))
	log.Debug("Job started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			log.Error("Job panicked", zap.Any("panic", r), zap.Stack("stack"))
		}

		elapsed := s.clock.Since(started)
		j.mu.Lock()
		j.status = JobStatusScheduled
		j.runs++
		j.lastError = ""
		if err != nil {
			j.lastError = err.Error()
		}
		j.mu.Unlock()

		s.recorder.JobCompleted(ctx, j.name, elapsed, err)
		if err != nil {
			log.Error("Job failed", zap.Duration("duration", elapsed), zap.Error(err))
			return
		}
		log.Info("Job completed", zap.Duration("duration", elapsed))
	}()

	return j.handler(ctx)
}

// RunNow runs a job's handler immediately on the caller's goroutine.
// It waits for an in-flight scheduled run of the same job to finish first.
func (s *Scheduler) RunNow(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.execute(ctx, j)
}

// Unregister cancels the job's pending timer. A run already in progress
// completes, but no further runs start.
func (s *Scheduler) Unregister(id uuid.UUID) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}

	j.cancel()
	s.logger.Info("Job unregistered", logger.Job(j.name), zap.String("job_id", id.String()))
	return nil
}

// StopAll unregisters every job and waits for their loops to exit, including
// in-flight runs, until ctx is done.
func (s *Scheduler) StopAll(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	jobs := make([]*job, 0, len(s.jobs))
	for id, j := range s.jobs {
		jobs = append(jobs, j)
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully", zap.Int("jobs", len(jobs)))
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Jobs returns a snapshot of registered jobs ordered by name
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	infos := make([]JobInfo, len(jobs))
	for i, j := range jobs {
		infos[i] = j.info()
	}
	sort.Slice(infos, func(a, b int) bool {
		if infos[a].Name == infos[b].Name {
			return infos[a].ID.String() < infos[b].ID.String()
		}
		return infos[a].Name < infos[b].Name
	})
	return infos
}
