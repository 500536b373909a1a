// Package scheduler drives the unattended refresh loop: it polls the remote
// job, processes each new completion exactly once, and triggers the next
// refresh when the current window's interval has elapsed.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/albapepper/projection-refresher/internal/archive"
	"github.com/albapepper/projection-refresher/internal/difflog"
	"github.com/albapepper/projection-refresher/internal/jobclient"
	"github.com/albapepper/projection-refresher/internal/window"
)

// DefaultCheckFrequency is the tick interval when none is configured.
const DefaultCheckFrequency = 30 * time.Second

// JobService is the remote refresh job.
type JobService interface {
	Status(ctx context.Context) (*jobclient.JobStatus, error)
	Trigger(ctx context.Context, label string) (jobclient.TriggerResult, error)
}

// Cadence maps an instant to a polling window.
type Cadence interface {
	Resolve(now time.Time) window.Resolution
}

// Archiver copies a completion's artifacts into history.
type Archiver interface {
	Archive(finishedAt string) (*archive.Result, error)
}

// EntryLog records one diff entry per processed completion.
type EntryLog interface {
	Append(e difflog.Entry) error
}

// Mirror receives a copy of every recorded diff entry.
type Mirror interface {
	Record(ctx context.Context, e difflog.Entry) error
}

// Options wires a Scheduler. Jobs, Windows, Archiver and Log are required.
type Options struct {
	Jobs           JobService
	Windows        Cadence
	Archiver       Archiver
	Log            EntryLog
	Mirror         Mirror // optional
	StateFile      string // empty disables persistence
	CheckFrequency time.Duration
	Heartbeat      func() // called after every tick
	Logger         *slog.Logger
	Now            func() time.Time
}

// Scheduler owns all mutable loop state. It is driven by a single goroutine.
type Scheduler struct {
	jobs      JobService
	windows   Cadence
	archiver  Archiver
	log       EntryLog
	mirror    Mirror
	stateFile string
	every     time.Duration
	heartbeat func()
	logger    *slog.Logger
	now       func() time.Time

	state               State
	lastRun             time.Time
	lastLabel           string
	lastErrorFinishedAt string
}

// New validates opts and loads any persisted state.
func New(opts Options) (*Scheduler, error) {
	if opts.Jobs == nil || opts.Windows == nil || opts.Archiver == nil || opts.Log == nil {
		return nil, errors.New("scheduler: jobs, windows, archiver and log are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "refresh")
	if opts.CheckFrequency <= 0 {
		opts.CheckFrequency = DefaultCheckFrequency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Scheduler{
		jobs:      opts.Jobs,
		windows:   opts.Windows,
		archiver:  opts.Archiver,
		log:       opts.Log,
		mirror:    opts.Mirror,
		stateFile: opts.StateFile,
		every:     opts.CheckFrequency,
		heartbeat: opts.Heartbeat,
		logger:    logger,
		now:       opts.Now,
		state:     LoadState(opts.StateFile, logger),
	}, nil
}

// State returns a copy of the current scheduler state.
func (s *Scheduler) State() State { return s.state }

// LastRun is the time of the last accepted trigger; zero before the first.
func (s *Scheduler) LastRun() time.Time { return s.lastRun }

// Run ticks immediately and then every check interval until ctx is
// cancelled. State is persisted on the way out.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Refresh scheduler started", "check_every", s.every)

	t := time.NewTicker(s.every)
	defer t.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-t.C:
			s.Tick(ctx)
		case <-ctx.Done():
			s.persist()
			s.logger.Info("Refresh scheduler stopped")
			return nil
		}
	}
}

// Tick runs one poll/process/resolve/trigger cycle. Each step fails on its
// own: a failed poll skips processing and triggering, but the window is still
// resolved.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.heartbeat != nil {
		defer s.heartbeat()
	}

	job, err := s.jobs.Status(ctx)
	polled := err == nil
	if err != nil {
		s.logger.Warn("Status poll failed", "error", err, "timeout", errors.Is(err, jobclient.ErrTimeout))
	} else {
		s.handleCompletion(ctx, job)
	}

	now := s.now()
	res := s.windows.Resolve(now)
	if res.Label != s.lastLabel {
		s.logger.Info("Refresh window changed",
			"from", s.lastLabel,
			"to", res.Label,
			"interval_minutes", res.IntervalMinutes,
			"source", res.Source,
			"date", res.DateKey)
		s.lastLabel = res.Label
	}

	if polled {
		s.maybeTrigger(ctx, now, job, res)
	}
}

func (s *Scheduler) handleCompletion(ctx context.Context, job *jobclient.JobStatus) {
	if job == nil || job.FinishedAt == "" {
		return
	}
	switch job.Status {
	case jobclient.StatusFailed:
		if job.FinishedAt == s.lastErrorFinishedAt {
			return
		}
		s.lastErrorFinishedAt = job.FinishedAt
		msg := job.Error
		if msg == "" {
			msg = job.Message
		}
		s.logger.Error("Refresh job failed", "finished_at", job.FinishedAt, "message", msg)
	case jobclient.StatusSuccess:
		if job.FinishedAt == s.state.LastProcessedFinishedAt {
			return
		}
		s.process(ctx, job.FinishedAt)
	}
}

func (s *Scheduler) maybeTrigger(ctx context.Context, now time.Time, job *jobclient.JobStatus, res window.Resolution) {
	if job.Running() {
		s.logger.Debug("Refresh in flight; not triggering", "started_at", job.StartedAt)
		return
	}
	if !s.lastRun.IsZero() && now.Sub(s.lastRun) < res.Interval() {
		return
	}

	s.logger.Info("Triggering refresh", "label", res.Label, "interval_minutes", res.IntervalMinutes)
	out, err := s.jobs.Trigger(ctx, res.Label)
	switch {
	case err != nil:
		s.logger.Warn("Refresh trigger failed", "label", res.Label, "error", err)
	case out.AlreadyRunning:
		s.logger.Info("Refresh already running on remote", "label", res.Label)
	case out.Triggered:
		s.lastRun = now
		s.logger.Info("Refresh triggered", "label", res.Label)
	}
}

// persist writes state if a state file is configured.
func (s *Scheduler) persist() {
	if s.stateFile == "" {
		return
	}
	s.state.SavedAt = s.now().UTC().Format(time.RFC3339)
	if err := SaveState(s.stateFile, s.state); err != nil {
		s.logger.Warn("Failed to persist scheduler state", "path", s.stateFile, "error", err)
	}
}
