package webhook

import (
	"fmt"
	"time"
)

// JobKind selects what the evaluator does for a pull request.
type JobKind string

const (
	// JobEvaluate re-runs grouping, summary, gate and celebration.
	JobEvaluate JobKind = "evaluate"
	// JobWatch waits for GitHub to compute mergeability, then gates once.
	JobWatch JobKind = "watch"
	// JobToggle flips summary visibility.
	JobToggle JobKind = "toggle"
	// JobCollapse flips the summary's collapsed state.
	JobCollapse JobKind = "collapse"
)

// Job is one unit of work for a pull request.
type Job struct {
	ID             string
	Kind           JobKind
	Owner          string
	Repo           string
	Number         int
	InstallationID int64
	DeliveryID     string
	Event          string
	Action         string
	Sender         string
	// CommentID is the command comment for toggle, collapse and refresh.
	CommentID  int64
	Attempt    int // managed by dispatcher
	ReceivedAt time.Time
}

// FullName returns "owner/repo".
func (j *Job) FullName() string {
	return j.Owner + "/" + j.Repo
}

// Key identifies the pull request; jobs sharing a key run one at a time.
func (j *Job) Key() string {
	return fmt.Sprintf("%s/%s#%d", j.Owner, j.Repo, j.Number)
}

func (j *Job) String() string {
	return fmt.Sprintf("%s %s (job %s)", j.Kind, j.Key(), j.ID)
}

// JobDispatcher enqueues jobs for asynchronous execution
type JobDispatcher interface {
	Enqueue(job *Job) error
}
