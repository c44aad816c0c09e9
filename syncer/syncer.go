// Package syncer executes sync plans: a bounded worker pool drives each
// repository through a state machine keyed on its local tree state and the
// selected mode, retries transient git failures, and aggregates per-task
// outcomes into a run report.
package syncer

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/AeyeOps/mgit-sub001/gitops"
	"github.com/AeyeOps/mgit-sub001/retry"
)

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// ConfirmFunc is asked once, before any destructive work, with every
// directory a force-mode run would delete. Returning false aborts the run.
type ConfirmFunc func(paths []string) bool

// Options configures a Scheduler.
type Options struct {
	// Git is the REQUIRED git client tasks are executed against.
	Git gitops.Client

	// Workers bounds concurrent task execution. Defaults to
	// DefaultWorkers.
	Workers int

	// Mode selects how existing local state is treated.
	Mode Mode

	// Confirm approves force-mode deletions. Required when Mode is
	// ModeForce.
	Confirm ConfirmFunc

	// Retry bounds git operation retries. Zero value means
	// retry.DefaultConfig.
	Retry retry.Config

	// Logger receives per-task progress. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.Git == nil {
		return ErrNoGitClient
	}
	if o.Workers < 0 {
		return errors.New("syncer: Workers cannot be negative")
	}
	if o.Mode == ModeForce && o.Confirm == nil {
		return errors.New("syncer: Confirm is required in force mode")
	}
	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Retry == (retry.Config{}) {
		o.Retry = retry.DefaultConfig()
	}
}

// Scheduler runs sync tasks through a bounded worker pool.
type Scheduler struct {
	git     gitops.Client
	workers int
	mode    Mode
	confirm ConfirmFunc
	retry   retry.Config
	logger  zerolog.Logger
}

// NewScheduler creates a scheduler from the given options.
func NewScheduler(opts *Options) (*Scheduler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	return &Scheduler{
		git:     opts.Git,
		workers: opts.Workers,
		mode:    opts.Mode,
		confirm: opts.Confirm,
		retry:   opts.Retry,
		logger:  opts.Logger,
	}, nil
}

// Run executes all tasks and returns the aggregated report. Tasks are
// mutated in place with their outcome and attempt count.
//
// Force mode first inspects every path and asks for a single confirmation
// covering all directories that would be deleted; a decline aborts before
// any task is dispatched and yields a zero-outcome report alongside
// ErrConfirmationDeclined. Cancellation stops dispatch: in-flight tasks
// finish their current git operation, undispatched tasks are marked
// cancelled. A failing task never stops its siblings.
func (s *Scheduler) Run(ctx context.Context, tasks []*Task) (*Report, error) {
	report := newReport(s.mode)

	if s.mode == ModeForce {
		if err := s.confirmDeletions(ctx, tasks); err != nil {
			report.abort()
			return report, err
		}
	}

	queue := make(chan *Task)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				s.execute(ctx, task)
			}
		}()
	}

dispatch:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- task:
		}
	}
	close(queue)
	wg.Wait()

	for _, task := range tasks {
		if task.Outcome == OutcomePending {
			task.Outcome = OutcomeCancelled
		}
	}

	report.finish(tasks, ctx.Err() != nil)
	return report, nil
}

// confirmDeletions inspects every task path and asks for approval of the
// directories force mode would delete. Nothing doomed means nothing to
// confirm.
func (s *Scheduler) confirmDeletions(ctx context.Context, tasks []*Task) error {
	var doomed []string
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		state, err := s.git.Status(ctx, task.Path)
		if err != nil {
			continue
		}
		if state != gitops.Missing {
			doomed = append(doomed, task.Path)
		}
	}

	if len(doomed) == 0 {
		return nil
	}
	if !s.confirm(doomed) {
		return WrapErrorf(ErrConfirmationDeclined, "%d directories", len(doomed))
	}
	return nil
}

// execute drives one task through the state machine.
func (s *Scheduler) execute(ctx context.Context, task *Task) {
	logger := s.logger.With().
		Str("repo", task.Record.Slug()).
		Str("path", task.Path).
		Logger()

	state, err := s.git.Status(ctx, task.Path)
	if err != nil {
		s.fail(task, err)
		logger.Error().Err(err).Msg("status check failed")
		return
	}

	switch state {
	case gitops.Missing:
		s.clone(ctx, task)

	case gitops.Clean:
		switch s.mode {
		case ModeSkip:
			task.Outcome = OutcomeSkippedClean
		case ModePull:
			s.pull(ctx, task)
		case ModeForce:
			s.replace(ctx, task)
		}

	case gitops.Dirty:
		if s.mode != ModeForce {
			task.Outcome = OutcomeSkippedDirty
			break
		}
		s.replace(ctx, task)

	case gitops.NotARepo:
		if s.mode != ModeForce {
			task.Outcome = OutcomeSkippedNonGit
			break
		}
		s.replace(ctx, task)
	}

	logger.Debug().
		Stringer("outcome", task.Outcome).
		Int("attempts", task.Attempts).
		Msg("task finished")
}

func (s *Scheduler) clone(ctx context.Context, task *Task) {
	attempts, err := retry.Do(ctx, s.retry, classifyGitError, func(ctx context.Context) error {
		return s.git.Clone(ctx, task.Record.CloneURL, task.Path)
	})
	task.Attempts += attempts
	if err != nil {
		s.fail(task, err)
		return
	}
	task.Outcome = OutcomeCloned
}

func (s *Scheduler) pull(ctx context.Context, task *Task) {
	attempts, err := retry.Do(ctx, s.retry, classifyGitError, func(ctx context.Context) error {
		return s.git.Pull(ctx, task.Path)
	})
	task.Attempts += attempts
	if err != nil {
		s.fail(task, err)
		return
	}
	task.Outcome = OutcomePulled
}

// replace deletes whatever is at the task path and clones fresh.
func (s *Scheduler) replace(ctx context.Context, task *Task) {
	if err := s.git.Remove(ctx, task.Path); err != nil {
		s.fail(task, err)
		return
	}
	s.clone(ctx, task)
}

// fail records a terminal error on the task. Context cancellation is not a
// task failure.
func (s *Scheduler) fail(task *Task, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		task.Outcome = OutcomeCancelled
		return
	}
	task.Outcome = OutcomeFailed
	task.Reason = err.Error()
}

// classifyGitError decides which git failures are worth retrying. Only
// transport-level failures are transient; auth and local-state errors will
// not heal on their own.
func classifyGitError(err error) retry.Class {
	if errors.Is(err, gitops.ErrNetworkFailed) {
		return retry.Transient
	}
	return retry.Permanent
}
