package github

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitedTransport waits on a shared limiter before each request so that
// bursts of webhook traffic stay under GitHub's secondary rate limits.
type RateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func NewRateLimitedTransport(base http.RoundTripper, limiter *rate.Limiter) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitedTransport{base: base, limiter: limiter}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("github rate limiter: %w", err)
	}
	return t.base.RoundTrip(req)
}
