package github

import (
	"context"
	"fmt"
	"log"

	gh "github.com/google/go-github/v66/github"
)

// AddLabel adds a label to an issue or PR. GitHub creates unknown labels on
// first use.
func AddLabel(ctx context.Context, client *gh.Client, owner, repo string, number int, label string) error {
	return retryWithBackoff(ctx, func() error {
		_, _, err := client.Issues.AddLabelsToIssue(ctx, owner, repo, number, []string{label})
		if err != nil {
			return fmt.Errorf("add label %q: %w", label, err)
		}
		return nil
	})
}

// RemoveLabel removes a label from an issue or PR. A label that is not
// present is not an error.
func RemoveLabel(ctx context.Context, client *gh.Client, owner, repo string, number int, label string) error {
	return retryWithBackoff(ctx, func() error {
		_, err := client.Issues.RemoveLabelForIssue(ctx, owner, repo, number, label)
		if IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("remove label %q: %w", label, err)
		}
		return nil
	})
}

// labelHint shows the gate hint as a label on the pull request.
type labelHint struct {
	client *gh.Client
	pr     *PullRequest
	label  string
}

func (h labelHint) Show(ctx context.Context, message string) error {
	log.Printf("[Gate] Labeling %s/%s#%d %q: %s", h.pr.Owner, h.pr.Repo, h.pr.Number, h.label, message)
	return AddLabel(ctx, h.client, h.pr.Owner, h.pr.Repo, h.pr.Number, h.label)
}

func (h labelHint) Remove(ctx context.Context) error {
	return RemoveLabel(ctx, h.client, h.pr.Owner, h.pr.Repo, h.pr.Number, h.label)
}
