package validation

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
)

// CheckWritePermission reports whether user may push to the repository.
// maintain and admin imply write.
func CheckWritePermission(ctx context.Context, client *github.Client, owner, repo, user string) (bool, error) {
	perm, _, err := client.Repositories.GetPermissionLevel(ctx, owner, repo, user)
	if err != nil {
		return false, fmt.Errorf("failed to get permission level: %w", err)
	}

	switch perm.GetPermission() {
	case "write", "maintain", "admin":
		return true, nil
	}
	return false, nil
}
