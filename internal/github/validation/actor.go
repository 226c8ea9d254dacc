package validation

import (
	"strings"

	"github.com/google/go-github/v66/github"
)

// IsBot reports whether user is a bot account: either its type is "Bot" or
// its login ends in "[bot]".
func IsBot(user *github.User) bool {
	if user == nil {
		return false
	}
	if user.GetType() == "Bot" {
		return true
	}
	return IsBotLogin(user.GetLogin())
}

// IsBotLogin checks the login alone
func IsBotLogin(login string) bool {
	return strings.HasSuffix(login, "[bot]")
}
