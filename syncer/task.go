package syncer

import (
	"sort"
	"strings"

	"github.com/AeyeOps/mgit-sub001/layout"
	"github.com/AeyeOps/mgit-sub001/provider"
)

// Outcome is the terminal result of a sync task.
type Outcome int8

const (
	// OutcomePending means the task has not finished yet.
	OutcomePending Outcome = iota

	// OutcomeCloned means a new working copy was created.
	OutcomeCloned

	// OutcomePulled means an existing repository was fast-forwarded.
	OutcomePulled

	// OutcomeSkippedClean means a clean repository was left untouched.
	OutcomeSkippedClean

	// OutcomeSkippedDirty means local modifications blocked the update.
	OutcomeSkippedDirty

	// OutcomeSkippedNonGit means the path held something other than a
	// git repository.
	OutcomeSkippedNonGit

	// OutcomeFailed means the task exhausted its attempts with an error.
	OutcomeFailed

	// OutcomeCancelled means the run stopped before the task finished.
	OutcomeCancelled
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCloned:
		return "cloned"
	case OutcomePulled:
		return "pulled"
	case OutcomeSkippedClean:
		return "skipped (clean)"
	case OutcomeSkippedDirty:
		return "skipped (dirty)"
	case OutcomeSkippedNonGit:
		return "skipped (not a repository)"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Mode selects how existing local state is treated.
type Mode int8

const (
	// ModeSkip clones missing repositories and leaves everything else
	// untouched.
	ModeSkip Mode = iota

	// ModePull additionally fast-forwards clean repositories.
	ModePull

	// ModeForce additionally deletes and re-clones dirty or non-git
	// paths. Destructive; requires confirmation.
	ModeForce
)

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "skip":
		return ModeSkip, nil
	case "pull":
		return ModePull, nil
	case "force":
		return ModeForce, nil
	default:
		return ModeSkip, WrapErrorf(ErrUnknownMode, "%q", s)
	}
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSkip:
		return "skip"
	case ModePull:
		return "pull"
	case ModeForce:
		return "force"
	default:
		return "unknown"
	}
}

// Task is one repository to bring into sync with its remote.
type Task struct {
	// Record identifies the remote repository.
	Record provider.Record

	// Path is the local directory, relative to the sync filesystem root.
	Path string

	// Outcome is the terminal result, OutcomePending until the task runs.
	Outcome Outcome

	// Attempts counts git operation attempts, including retries.
	Attempts int

	// Reason carries the failure message when Outcome is OutcomeFailed.
	Reason string
}

// BuildTasks assigns a unique local directory to every record and returns
// one task per record, ordered by path.
func BuildTasks(records []provider.Record) []*Task {
	dirs := layout.Assign(records)

	tasks := make([]*Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, &Task{
			Record: rec,
			Path:   dirs[rec.Key()],
		})
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Path < tasks[j].Path
	})
	return tasks
}
