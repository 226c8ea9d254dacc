// Package waitfor provides a poll-until-present primitive that resolves once.
package waitfor

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidInterval is returned for non-positive poll intervals.
var ErrInvalidInterval = errors.New("waitfor: interval must be positive")

// Probe checks for the awaited thing. ok=true resolves the wait with value.
type Probe[T any] func(ctx context.Context) (value T, ok bool, err error)

// Until runs probe immediately and then every interval until it reports ok,
// returns an error, or ctx is done. The ticker is released on return, so a
// resolved wait leaves nothing running.
func Until[T any](ctx context.Context, interval time.Duration, probe Probe[T]) (T, error) {
	var zero T
	if interval <= 0 {
		return zero, ErrInvalidInterval
	}

	if v, ok, err := probe(ctx); err != nil || ok {
		return v, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
			v, ok, err := probe(ctx)
			if err != nil {
				return zero, err
			}
			if ok {
				return v, nil
			}
		}
	}
}

// Result is delivered by Go.
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs Until in its own goroutine and delivers exactly one Result on the
// returned channel, which is then closed.
func Go[T any](ctx context.Context, interval time.Duration, probe Probe[T]) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		defer close(out)
		v, err := Until(ctx, interval, probe)
		out <- Result[T]{Value: v, Err: err}
	}()
	return out
}
