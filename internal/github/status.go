package github

import (
	"context"
	"fmt"
	"sync"

	gh "github.com/google/go-github/v66/github"

	"github.com/cexll/checklist-gate/internal/gate"
)

const (
	StatePending = "pending"
	StateFailure = "failure"
	StateSuccess = "success"

	DefaultContext   = "checklist-gate"
	DefaultHintLabel = "checklist-incomplete"

	// GitHub truncates longer status descriptions
	maxDescription = 140
)

// StatusOptions configures how the gate is expressed on GitHub.
type StatusOptions struct {
	// Contexts are the commit status contexts acting as merge controls.
	Contexts []string
	// FailureState is written while incomplete: "pending" or "failure".
	FailureState string
	// HintLabel is added while incomplete. Empty disables the label.
	HintLabel string
	// TargetURL is linked from each status, if set.
	TargetURL string
}

// StatusSurface exposes commit statuses on a PR head as merge controls.
// Controls only exist once GitHub knows whether the PR is mergeable.
type StatusSurface struct {
	client *gh.Client
	opts   StatusOptions

	mu sync.Mutex
	pr *PullRequest
}

func NewStatusSurface(client *gh.Client, pr *PullRequest, opts StatusOptions) *StatusSurface {
	if len(opts.Contexts) == 0 {
		opts.Contexts = []string{DefaultContext}
	}
	if opts.FailureState != StateFailure {
		opts.FailureState = StatePending
	}
	return &StatusSurface{client: client, opts: opts, pr: pr}
}

// PullRequest returns the latest snapshot the surface has seen.
func (s *StatusSurface) PullRequest() *PullRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pr
}

// Controls returns one control per status context. While mergeability is
// still unknown it refetches the PR and returns nil until it is known.
func (s *StatusSurface) Controls(ctx context.Context) ([]gate.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pr.MergeabilityKnown() {
		fresh, err := FetchPullRequest(ctx, s.client, s.pr.Owner, s.pr.Repo, s.pr.Number)
		if err != nil {
			return nil, err
		}
		s.pr = fresh
		if !fresh.MergeabilityKnown() {
			return nil, nil
		}
	}
	if !s.pr.Open() || s.pr.HeadSHA == "" {
		return nil, nil
	}

	controls := make([]gate.Control, 0, len(s.opts.Contexts))
	for _, c := range s.opts.Contexts {
		controls = append(controls, &statusControl{client: s.client, pr: s.pr, context: c, opts: s.opts})
	}
	return controls, nil
}

func (s *StatusSurface) Hint() gate.Hint {
	if s.opts.HintLabel == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return labelHint{client: s.client, pr: s.pr, label: s.opts.HintLabel}
}

type statusControl struct {
	client  *gh.Client
	pr      *PullRequest
	context string
	opts    StatusOptions
}

func (c *statusControl) ID() string { return c.context }

func (c *statusControl) SetEnabled(ctx context.Context, enabled bool, hint string) error {
	state, desc := StateSuccess, "All checklist items complete"
	if !enabled {
		state, desc = c.opts.FailureState, hint
	}
	return CreateStatus(ctx, c.client, c.pr.Owner, c.pr.Repo, c.pr.HeadSHA, c.context, state, desc, c.opts.TargetURL)
}

// CreateStatus writes a commit status on sha.
func CreateStatus(ctx context.Context, client *gh.Client, owner, repo, sha, statusContext, state, description, targetURL string) error {
	if r := []rune(description); len(r) > maxDescription {
		description = string(r[:maxDescription-3]) + "..."
	}
	status := &gh.RepoStatus{
		State:       gh.String(state),
		Description: gh.String(description),
		Context:     gh.String(statusContext),
	}
	if targetURL != "" {
		status.TargetURL = gh.String(targetURL)
	}
	return retryWithBackoff(ctx, func() error {
		if _, _, err := client.Repositories.CreateStatus(ctx, owner, repo, sha, status); err != nil {
			return fmt.Errorf("create status %s=%s on %s: %w", statusContext, state, sha, err)
		}
		return nil
	})
}
