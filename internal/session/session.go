// Package session remembers, per pull request, whether completion has
// already been celebrated during the current session.
package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultTTL  = 12 * time.Hour
	DefaultSize = 4096
)

type entry struct {
	complete   bool
	celebrated bool
}

// Celebrations tracks the already-celebrated flag. A session is the lifetime
// of an LRU entry: it ends when the key expires or is evicted.
type Celebrations struct {
	mu          sync.Mutex
	entries     *expirable.LRU[string, entry]
	rearmOnDrop bool
}

// Options configures a tracker. Zero values fall back to defaults.
type Options struct {
	Size int
	TTL  time.Duration
	// RearmOnDrop clears the flag when completion drops below 100%, so a later
	// return to 100% celebrates again. By default the flag stays set.
	RearmOnDrop bool
}

func NewCelebrations(opts Options) *Celebrations {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Celebrations{
		entries:     expirable.NewLRU[string, entry](opts.Size, nil, opts.TTL),
		rearmOnDrop: opts.RearmOnDrop,
	}
}

// Observe records the completion state of key and reports whether this
// observation should celebrate: the state moved into complete and key has not
// celebrated yet in this session.
func (c *Celebrations) Observe(key string, complete bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, _ := c.entries.Get(key)
	next := entry{complete: complete, celebrated: prev.celebrated}

	fire := false
	switch {
	case complete && !prev.complete && !prev.celebrated:
		fire = true
		next.celebrated = true
	case !complete && c.rearmOnDrop:
		next.celebrated = false
	}

	c.entries.Add(key, next)
	return fire
}

// Celebrated reports whether key has celebrated in the current session.
func (c *Celebrations) Celebrated(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, _ := c.entries.Peek(key)
	return e.celebrated
}

// Forget ends the session for key.
func (c *Celebrations) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}
