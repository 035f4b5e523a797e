package cronjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/creditkit/pkg/logger"
)

// Job is a scheduled function. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs jobs on standard five-field cron schedules. A job never
// overlaps with itself: a tick that fires while the previous run is still
// going is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
	loc  *time.Location

	mu      sync.Mutex
	ctx     context.Context
	jobs    map[string]cron.EntryID
	running bool
}

type Option func(*Scheduler)

// WithLocation sets the time zone schedules are evaluated in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger routes scheduler and cron library logs to log.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a scheduler. Jobs are added with Add and start running on Run.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		log:  logger.Discard(),
		loc:  time.UTC,
		ctx:  context.Background(),
		jobs: make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("cron"))

	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Validate reports whether spec is a valid five-field cron expression or descriptor.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.Join(ErrInvalidSchedule, err)
	}
	return nil
}

// NextRun returns the first activation of spec after from.
func NextRun(spec string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidSchedule, err)
	}
	return sched.Next(from), nil
}

// Add registers a named job.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return errors.Join(ErrDuplicateJob, fmt.Errorf("job %q", name))
	}

	id, err := s.cron.AddFunc(spec, func() {
		ctx := s.jobContext()
		start := time.Now()
		s.log.InfoContext(ctx, "cron job started", slog.String("job", name))
		job(ctx)
		s.log.InfoContext(ctx, "cron job finished",
			slog.String("job", name),
			logger.Duration(time.Since(start)),
		)
	})
	if err != nil {
		return errors.Join(ErrInvalidSchedule, err)
	}
	s.jobs[name] = id
	s.log.Info("cron job registered", slog.String("job", name), slog.String("schedule", spec))
	return nil
}

// Next returns the next activation of a registered job. It is zero until
// the scheduler runs.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Run starts the scheduler and blocks until ctx is done. It then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.log.InfoContext(ctx, "cron scheduler started")

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.log.InfoContext(context.WithoutCancel(ctx), "cron scheduler stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, logger.Error(err))...)
}
