package syncer

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Report is the aggregated result of one sync run.
type Report struct {
	// RunID uniquely identifies this invocation.
	RunID uuid.UUID

	// Mode is the mode the run executed with.
	Mode Mode

	// Started and Finished bound the run wall-clock time.
	Started  time.Time
	Finished time.Time

	// Tasks holds every task with its terminal outcome, ordered by path.
	Tasks []*Task

	// UserCancelled is set when the run stopped because its context was
	// cancelled.
	UserCancelled bool

	// Aborted is set when the run stopped before dispatching any task,
	// leaving zero outcomes.
	Aborted bool

	// DuplicatesRemoved and FailedBackends carry resolution diagnostics
	// forward into the final report. Set by the caller.
	DuplicatesRemoved int
	FailedBackends    []string

	counts map[Outcome]int
}

func newReport(mode Mode) *Report {
	return &Report{
		RunID:   uuid.New(),
		Mode:    mode,
		Started: time.Now(),
		counts:  make(map[Outcome]int),
	}
}

// abort closes the report with zero outcomes.
func (r *Report) abort() {
	r.Aborted = true
	r.Finished = time.Now()
}

// finish records the terminal task set and closes the report.
func (r *Report) finish(tasks []*Task, cancelled bool) {
	r.Tasks = make([]*Task, len(tasks))
	copy(r.Tasks, tasks)
	sort.Slice(r.Tasks, func(i, j int) bool {
		return r.Tasks[i].Path < r.Tasks[j].Path
	})

	for _, task := range r.Tasks {
		r.counts[task.Outcome]++
	}
	r.UserCancelled = cancelled
	r.Finished = time.Now()
}

// Count returns how many tasks ended with the given outcome.
func (r *Report) Count(o Outcome) int {
	return r.counts[o]
}

// Total returns the number of tasks in the run.
func (r *Report) Total() int {
	return len(r.Tasks)
}

// Failures returns the failed tasks, ordered by path.
func (r *Report) Failures() []*Task {
	var failed []*Task
	for _, task := range r.Tasks {
		if task.Outcome == OutcomeFailed {
			failed = append(failed, task)
		}
	}
	return failed
}

// ExitCode maps the report onto a process exit code: non-zero when any
// task failed or the run aborted before dispatch. A run the user cancelled
// exits zero regardless of what the interruption left behind.
func (r *Report) ExitCode() int {
	if r.UserCancelled {
		return 0
	}
	if r.Aborted || r.Count(OutcomeFailed) > 0 {
		return 1
	}
	return 0
}
