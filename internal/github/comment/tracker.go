// Package comment maintains the single summary comment on a pull request.
package comment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/cexll/checklist-gate/internal/github/validation"
)

const pageSize = 100

// Tracker finds, creates, edits and deletes the comment carrying a marker.
// The marker is looked up on first use and cached afterwards.
type Tracker struct {
	client    *github.Client
	owner     string
	repo      string
	number    int
	marker    string
	commentID int64
	body      string
	looked    bool
}

func NewTracker(client *github.Client, owner, repo string, number int, marker string) *Tracker {
	return &Tracker{
		client: client,
		owner:  owner,
		repo:   repo,
		number: number,
		marker: marker,
	}
}

// Find returns the id of the marked comment, or 0 when there is none. Only
// bot-authored comments count; a person quoting the marker is ignored since
// the app could not edit their comment.
func (t *Tracker) Find(ctx context.Context) (int64, error) {
	if t == nil || t.client == nil {
		return 0, fmt.Errorf("nil tracker or client")
	}
	if t.looked {
		return t.commentID, nil
	}

	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: pageSize}}
	for {
		comments, resp, err := t.client.Issues.ListComments(ctx, t.owner, t.repo, t.number, opts)
		if err != nil {
			return 0, fmt.Errorf("list comments: %w", err)
		}
		for _, c := range comments {
			if validation.IsBot(c.GetUser()) && strings.Contains(c.GetBody(), t.marker) {
				t.commentID, t.body, t.looked = c.GetID(), c.GetBody(), true
				return t.commentID, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	t.looked = true
	return 0, nil
}

// Upsert creates the comment or edits it in place. An unchanged body makes no
// request. It reports whether anything was written.
func (t *Tracker) Upsert(ctx context.Context, body string) (bool, error) {
	id, err := t.Find(ctx)
	if err != nil {
		return false, err
	}
	if id != 0 && body == t.body {
		return false, nil
	}

	if id == 0 {
		c, _, err := t.client.Issues.CreateComment(ctx, t.owner, t.repo, t.number, &github.IssueComment{Body: &body})
		if err != nil {
			return false, fmt.Errorf("create summary comment: %w", err)
		}
		t.commentID, t.body = c.GetID(), body
		return true, nil
	}

	if _, _, err := t.client.Issues.EditComment(ctx, t.owner, t.repo, id, &github.IssueComment{Body: &body}); err != nil {
		return false, fmt.Errorf("edit summary comment %d: %w", id, err)
	}
	t.body = body
	return true, nil
}

// Remove deletes the comment if it exists.
func (t *Tracker) Remove(ctx context.Context) (bool, error) {
	id, err := t.Find(ctx)
	if err != nil || id == 0 {
		return false, err
	}
	if _, err := t.client.Issues.DeleteComment(ctx, t.owner, t.repo, id); err != nil {
		return false, fmt.Errorf("delete summary comment %d: %w", id, err)
	}
	t.commentID, t.body = 0, ""
	return true, nil
}

// GetCommentID returns the cached comment id, 0 if none is known.
func (t *Tracker) GetCommentID() int64 { return t.commentID }
