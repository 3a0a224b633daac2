package policy

import (
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

// cacheEntry pairs a derived policy with the parsed robots data it came from
type cacheEntry struct {
	policy  *models.CrawlPolicy
	robots  *robotstxt.RobotsData // nil when robots.txt was absent/unreachable
	expires time.Time
}

// Cache is an explicit TTL cache of derived crawl policies keyed by domain.
// It is owned by whoever coordinates sessions (the batch coordinator) and
// injected into the policy engine, so no module-level state leaks between
// runs or tests.
type Cache struct {
	entries map[string]*cacheEntry
	mu      sync.Mutex
	ttl     time.Duration
}

// NewCache creates a policy cache with the given TTL. A non-positive TTL
// disables expiry.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

func (c *Cache) get(domain string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[domain]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Now().After(entry.expires) {
		delete(c.entries, domain)
		return nil, false
	}
	return entry, true
}

func (c *Cache) put(domain string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.expires = time.Now().Add(c.ttl)
	c.entries[domain] = entry
}

// Len returns the number of cached domains (expired entries included)
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops all cached policies
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}
