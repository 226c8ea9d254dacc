package webhook

import (
	"fmt"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// VerifySignature verifies the GitHub webhook signature using HMAC SHA-256
// and constant-time comparison.
func VerifySignature(payload []byte, signature, secret string) bool {
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	return gh.ValidateSignature(signature, payload, []byte(secret)) == nil
}

// ValidateSignatureHeader validates the X-Hub-Signature-256 header
func ValidateSignatureHeader(header string) error {
	if header == "" {
		return fmt.Errorf("missing X-Hub-Signature-256 header")
	}
	if !strings.HasPrefix(header, "sha256=") {
		return fmt.Errorf("invalid signature format, expected 'sha256=<hash>'")
	}
	return nil
}
