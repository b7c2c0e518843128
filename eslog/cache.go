package eslog

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// provisionCache remembers templates and indices verified recently.
type provisionCache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu   sync.Mutex
	seen map[string]time.Time // key -> verified at
}

func newProvisionCache(ttl time.Duration, clock clockwork.Clock) *provisionCache {
	if ttl <= 0 {
		return nil
	}
	return &provisionCache{ttl: ttl, clock: clock, seen: make(map[string]time.Time)}
}

// fresh reports whether key was verified less than ttl ago. A nil cache is
// never fresh.
func (c *provisionCache) fresh(key string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.seen[key]
	if !ok {
		return false
	}
	if c.clock.Since(at) >= c.ttl {
		delete(c.seen, key)
		return false
	}
	return true
}

func (c *provisionCache) mark(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = c.clock.Now()
}

func (c *provisionCache) forget(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, key)
}

func templateKey(name string) string { return "template/" + name }
func indexKey(name string) string    { return "index/" + name }
