package webhook

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const dedupeCapacity = 10000

// deduper remembers recently seen ids so redelivered webhooks are handled
// once.
type deduper struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func newDeduper(ttl time.Duration) *deduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &deduper{seen: expirable.NewLRU[string, struct{}](dedupeCapacity, nil, ttl)}
}

// markIfNew returns true if id has not been seen recently and records it.
// Empty ids are always new.
func (d *deduper) markIfNew(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen.Contains(id) {
		return false
	}
	d.seen.Add(id, struct{}{})
	return true
}

// forget drops id so a retried delivery is accepted again.
func (d *deduper) forget(id string) {
	if id == "" {
		return
	}
	d.seen.Remove(id)
}
