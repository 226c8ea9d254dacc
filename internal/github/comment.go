package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"
)

const (
	ReactionHooray = "hooray"
	ReactionAck    = "+1"
	ReactionDenied = "-1"
)

// Celebrate reacts with hooray on the pull request and, when message is set,
// posts it as a comment.
func Celebrate(ctx context.Context, client *gh.Client, owner, repo string, number int, message string) error {
	err := retryWithBackoff(ctx, func() error {
		_, _, err := client.Reactions.CreateIssueReaction(ctx, owner, repo, number, ReactionHooray)
		return err
	})
	if err != nil {
		return fmt.Errorf("celebration reaction: %w", err)
	}
	if message == "" {
		return nil
	}
	return CreateComment(ctx, client, owner, repo, number, message)
}

// CreateComment creates a comment on an issue or PR.
func CreateComment(ctx context.Context, client *gh.Client, owner, repo string, number int, body string) error {
	return retryWithBackoff(ctx, func() error {
		_, _, err := client.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{Body: gh.String(body)})
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
}

// Acknowledge reacts to a command comment so the author sees it was handled.
func Acknowledge(ctx context.Context, client *gh.Client, owner, repo string, commentID int64, reaction string) error {
	return retryWithBackoff(ctx, func() error {
		_, _, err := client.Reactions.CreateIssueCommentReaction(ctx, owner, repo, commentID, reaction)
		if err != nil {
			return fmt.Errorf("react to comment %d: %w", commentID, err)
		}
		return nil
	})
}
