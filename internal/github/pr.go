package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"
)

// PullRequest is the subset of a GitHub pull request the gate needs.
type PullRequest struct {
	Owner     string
	Repo      string
	Number    int
	Title     string
	Body      string
	HTMLURL   string
	HeadSHA   string
	State     string
	Draft     bool
	Merged    bool
	Mergeable *bool
}

// Open reports whether the pull request can still be merged.
func (p *PullRequest) Open() bool {
	return p.State == "open" && !p.Merged
}

// MergeabilityKnown reports whether GitHub has finished computing
// mergeability, which is when the merge box is rendered.
func (p *PullRequest) MergeabilityKnown() bool {
	return p.Mergeable != nil
}

// FromAPI converts a go-github pull request.
func FromAPI(owner, repo string, pr *gh.PullRequest) *PullRequest {
	return &PullRequest{
		Owner:     owner,
		Repo:      repo,
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		HTMLURL:   pr.GetHTMLURL(),
		HeadSHA:   pr.GetHead().GetSHA(),
		State:     pr.GetState(),
		Draft:     pr.GetDraft(),
		Merged:    pr.GetMerged(),
		Mergeable: pr.Mergeable,
	}
}

// FetchPullRequest loads a pull request with retry on transient errors.
func FetchPullRequest(ctx context.Context, client *gh.Client, owner, repo string, number int) (*PullRequest, error) {
	var pr *gh.PullRequest
	err := retryWithBackoff(ctx, func() error {
		var err error
		pr, _, err = client.PullRequests.Get(ctx, owner, repo, number)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return FromAPI(owner, repo, pr), nil
}
