// Package evaluator runs checklist passes for pull requests: it groups the
// description's task items, refreshes the summary comment, applies the merge
// gate and decides whether to celebrate.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/cexll/checklist-gate/internal/checklist"
	"github.com/cexll/checklist-gate/internal/document"
	"github.com/cexll/checklist-gate/internal/evalstore"
	"github.com/cexll/checklist-gate/internal/gate"
	"github.com/cexll/checklist-gate/internal/github"
	"github.com/cexll/checklist-gate/internal/github/comment"
	"github.com/cexll/checklist-gate/internal/github/validation"
	"github.com/cexll/checklist-gate/internal/overlay"
	"github.com/cexll/checklist-gate/internal/session"
	"github.com/cexll/checklist-gate/internal/uistate"
	"github.com/cexll/checklist-gate/internal/webhook"
)

const (
	DefaultWatchInterval      = 5 * time.Second
	DefaultWatchTimeout       = 2 * time.Minute
	DefaultCelebrationComment = "🎉 All checklist items are complete. Ready to merge!"
)

// Options configures an Evaluator.
type Options struct {
	Status github.StatusOptions
	// Keyword is shown in the summary footer. Empty hides the footer.
	Keyword string
	// CelebrationComment is posted once per session on reaching 100%.
	// Empty keeps only the reaction.
	CelebrationComment string
	// RequireWrite limits comment commands to users with write access.
	RequireWrite  bool
	WatchInterval time.Duration
	WatchTimeout  time.Duration
}

// Evaluator executes webhook jobs.
type Evaluator struct {
	clients      github.ClientFactory
	states       uistate.Store
	celebrations *session.Celebrations
	passes       *evalstore.Store
	opts         Options
}

// New creates an evaluator. passes may be nil.
func New(clients github.ClientFactory, states uistate.Store, celebrations *session.Celebrations, passes *evalstore.Store, opts Options) *Evaluator {
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = DefaultWatchInterval
	}
	if opts.WatchTimeout <= 0 {
		opts.WatchTimeout = DefaultWatchTimeout
	}
	if celebrations == nil {
		celebrations = session.NewCelebrations(session.Options{})
	}
	if passes == nil {
		passes = evalstore.NewStore()
	}
	return &Evaluator{
		clients:      clients,
		states:       states,
		celebrations: celebrations,
		passes:       passes,
		opts:         opts,
	}
}

// Prepare waits, for watch jobs, until GitHub has computed mergeability of
// the pull request. Other jobs return immediately. A timeout is final.
func (e *Evaluator) Prepare(ctx context.Context, job *webhook.Job) error {
	if job.Kind != webhook.JobWatch {
		return nil
	}

	client, err := e.clients.Client(ctx, job.InstallationID)
	if err != nil {
		return fmt.Errorf("github client for %s: %w", job.FullName(), err)
	}
	pr, err := github.FetchPullRequest(ctx, client, job.Owner, job.Repo, job.Number)
	if err != nil {
		return classify(err)
	}
	if !pr.Open() {
		return nil
	}

	e.passes.AddLog(job.Owner, job.Repo, job.Number, "info", "waiting for merge controls")
	log.Printf("[Evaluator] Watching %s for merge controls (timeout %s)", job.Key(), e.opts.WatchTimeout)

	watchCtx, cancel := context.WithTimeout(ctx, e.opts.WatchTimeout)
	defer cancel()

	surface := github.NewStatusSurface(client, pr, e.opts.Status)
	err = gate.Watch(watchCtx, surface, e.opts.WatchInterval, func(context.Context) error {
		log.Printf("[Evaluator] Merge controls ready for %s", job.Key())
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		e.passes.AddLog(job.Owner, job.Repo, job.Number, "error", "gave up waiting for merge controls")
		return NonRetryable(fmt.Errorf("watch %s: %w", job.Key(), err))
	}
	if err != nil {
		return classify(err)
	}
	return nil
}

// Execute runs one job. Closed pull requests are ignored.
func (e *Evaluator) Execute(ctx context.Context, job *webhook.Job) error {
	log.Printf("[Evaluator] Starting %s attempt %d", job, job.Attempt)
	e.passes.UpdateStatus(job.Owner, job.Repo, job.Number, evalstore.StatusRunning)

	err := e.execute(ctx, job)
	if err != nil {
		e.passes.Update(job.Owner, job.Repo, job.Number, func(p *evalstore.Pass) {
			p.Status = evalstore.StatusFailed
		})
		e.passes.AddLog(job.Owner, job.Repo, job.Number, "error", err.Error())
		return err
	}
	return nil
}

func (e *Evaluator) execute(ctx context.Context, job *webhook.Job) error {
	client, err := e.clients.Client(ctx, job.InstallationID)
	if err != nil {
		return fmt.Errorf("github client for %s: %w", job.FullName(), err)
	}

	pr, err := github.FetchPullRequest(ctx, client, job.Owner, job.Repo, job.Number)
	if err != nil {
		return classify(err)
	}
	if !pr.Open() {
		log.Printf("[Evaluator] %s is %s, ignoring", job.Key(), pr.State)
		e.passes.Update(job.Owner, job.Repo, job.Number, func(p *evalstore.Pass) {
			p.Status = evalstore.StatusIgnored
		})
		e.passes.AddLog(job.Owner, job.Repo, job.Number, "info", "pull request is not open")
		return nil
	}

	if job.CommentID != 0 && e.opts.RequireWrite {
		allowed, err := validation.CheckWritePermission(ctx, client, job.Owner, job.Repo, job.Sender)
		if err != nil {
			return classify(err)
		}
		if !allowed {
			log.Printf("[Evaluator] %s lacks write access on %s, ignoring %s command", job.Sender, job.FullName(), job.Kind)
			if err := github.Acknowledge(ctx, client, job.Owner, job.Repo, job.CommentID, github.ReactionDenied); err != nil {
				log.Printf("[Evaluator] Warning: failed to react to command on %s: %v", job.Key(), err)
			}
			e.passes.Update(job.Owner, job.Repo, job.Number, func(p *evalstore.Pass) {
				p.Status = evalstore.StatusIgnored
			})
			e.passes.AddLog(job.Owner, job.Repo, job.Number, "info", fmt.Sprintf("command from %s ignored: no write access", job.Sender))
			return nil
		}
	}

	key := overlay.Key(job.Owner, job.Repo, job.Number)
	var st overlay.State
	switch job.Kind {
	case webhook.JobToggle:
		st, err = overlay.Toggle(ctx, e.states, key)
	case webhook.JobCollapse:
		st, err = overlay.ToggleCollapse(ctx, e.states, key)
	default:
		st, err = overlay.LoadState(ctx, e.states, key)
	}
	if err != nil {
		log.Printf("[Evaluator] UI state for %s unavailable, using defaults: %v", job.Key(), err)
		st = overlay.State{}
	}

	if job.CommentID != 0 {
		if err := github.Acknowledge(ctx, client, job.Owner, job.Repo, job.CommentID, github.ReactionAck); err != nil {
			log.Printf("[Evaluator] Warning: failed to acknowledge command on %s: %v", job.Key(), err)
		}
	}

	return e.pass(ctx, client, pr, job, st)
}

// pass groups, renders, gates and celebrates. Only a failed gate write is an
// error; the summary and the celebration are best effort.
func (e *Evaluator) pass(ctx context.Context, client *gh.Client, pr *github.PullRequest, job *webhook.Job, st overlay.State) error {
	doc := document.FromMarkdown([]byte(pr.Body))
	sum := checklist.Analyze(doc)

	e.syncSummary(ctx, client, pr, sum, st)

	surface := github.NewStatusSurface(client, pr, e.opts.Status)
	decision, gateErr := gate.NewController(surface).Apply(ctx, sum.Total)

	celebrated := false
	if !sum.Empty() {
		key := evalstore.Key(pr.Owner, pr.Repo, pr.Number)
		if e.celebrations.Observe(key, sum.Total.Complete()) {
			log.Printf("[Evaluator] Checklist complete on %s, celebrating", job.Key())
			if err := github.Celebrate(ctx, client, pr.Owner, pr.Repo, pr.Number, e.opts.CelebrationComment); err != nil {
				log.Printf("[Evaluator] Warning: celebration failed on %s: %v", job.Key(), err)
			}
		}
		celebrated = e.celebrations.Celebrated(key)
	}

	pct, _ := sum.Total.Percentage()
	e.passes.Update(pr.Owner, pr.Repo, pr.Number, func(p *evalstore.Pass) {
		p.Title = pr.Title
		p.URL = pr.HTMLURL
		p.JobID = job.ID
		p.Kind = string(job.Kind)
		p.Summary = sum
		p.Decision = decision
		p.State = st
		p.Celebrated = celebrated
		p.Status = evalstore.StatusCompleted
	})

	if gateErr != nil {
		return classify(fmt.Errorf("gate %s: %w", job.Key(), gateErr))
	}

	msg := fmt.Sprintf("%d/%d items (%d%%), gate %s", sum.Total.Completed, sum.Total.Total, pct, decision.Action)
	e.passes.AddLog(pr.Owner, pr.Repo, pr.Number, "success", msg)
	log.Printf("[Evaluator] %s: %s", job.Key(), msg)
	return nil
}

func (e *Evaluator) syncSummary(ctx context.Context, client *gh.Client, pr *github.PullRequest, sum checklist.Summary, st overlay.State) {
	tracker := comment.NewTracker(client, pr.Owner, pr.Repo, pr.Number, overlay.Marker)

	body := ""
	if !st.Hidden {
		body = overlay.RenderWith(sum, st, e.opts.Keyword)
	}
	if body == "" {
		if removed, err := tracker.Remove(ctx); err != nil {
			log.Printf("[Evaluator] Warning: failed to remove summary on %s#%d: %v", pr.Repo, pr.Number, err)
		} else if removed {
			log.Printf("[Evaluator] Removed summary comment on %s/%s#%d", pr.Owner, pr.Repo, pr.Number)
		}
		return
	}

	if changed, err := tracker.Upsert(ctx, body); err != nil {
		log.Printf("[Evaluator] Warning: failed to update summary on %s#%d: %v", pr.Repo, pr.Number, err)
	} else if changed {
		log.Printf("[Evaluator] Summary comment %d updated on %s/%s#%d", tracker.GetCommentID(), pr.Owner, pr.Repo, pr.Number)
	}
}

// classify marks client errors (bad request, not found, forbidden) as final.
func classify(err error) error {
	if github.IsClientError(err) {
		return NonRetryable(err)
	}
	return err
}
