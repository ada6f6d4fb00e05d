package orchestrator

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/rpgo/wealth-simulator/internal/domain"
)

type cacheEntry struct {
	result  *Result
	size    int64
	rules   domain.RulesKey
	created time.Time
}

// cacheUsage is a snapshot of the cache's occupancy.
type cacheUsage struct {
	entries   int
	bytes     int64
	evictions int64
	// oldest is when the longest-held entry was stored; zero when empty.
	oldest    time.Time
}

// resultCache is a least-recently-used cache bounded by the estimated
// encoded size of its entries. Entries are indexed by the rules snapshot
// they were computed under so a superseded snapshot can drop its results in
// one call.
type resultCache struct {
	mu        sync.Mutex
	maxBytes  int64
	bytes     int64
	evictions int64
	entries   *lru.Cache
	byRules   map[domain.RulesKey]map[Fingerprint]*cacheEntry
	now       func() time.Time
}

func newResultCache(maxBytes int64) *resultCache {
	c := &resultCache{
		maxBytes: maxBytes,
		entries:  lru.New(0),
		byRules:  make(map[domain.RulesKey]map[Fingerprint]*cacheEntry),
		now:      time.Now,
	}
	c.entries.OnEvicted = c.forget
	return c
}

// forget runs under mu for every entry leaving the LRU.
func (c *resultCache) forget(key lru.Key, value any) {
	e := value.(*cacheEntry)
	c.bytes -= e.size
	fp := key.(Fingerprint)
	if set := c.byRules[e.rules]; set != nil {
		delete(set, fp)
		if len(set) == 0 {
			delete(c.byRules, e.rules)
		}
	}
}

func (c *resultCache) get(fp Fingerprint) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(fp)
	if !ok {
		return nil, false
	}
	return v.(*cacheEntry), true
}

// put stores a result, evicting the least recently used entries until the
// total fits. A result larger than the whole budget is not stored.
func (c *resultCache) put(fp Fingerprint, rules domain.RulesKey, r *Result, size int64) bool {
	if size > c.maxBytes {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(fp)
	for c.bytes+size > c.maxBytes && c.entries.Len() > 0 {
		c.entries.RemoveOldest()
		c.evictions++
	}
	e := &cacheEntry{result: r, size: size, rules: rules, created: c.now()}
	c.entries.Add(fp, e)
	c.bytes += size
	set := c.byRules[rules]
	if set == nil {
		set = make(map[Fingerprint]*cacheEntry)
		c.byRules[rules] = set
	}
	set[fp] = e
	return true
}

// invalidate drops every entry computed under a rules snapshot.
func (c *resultCache) invalidate(rules domain.RulesKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.byRules[rules]
	fps := make([]Fingerprint, 0, len(set))
	for fp := range set {
		fps = append(fps, fp)
	}
	for _, fp := range fps {
		c.entries.Remove(fp)
	}
	return len(fps)
}

func (c *resultCache) usage() cacheUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := cacheUsage{entries: c.entries.Len(), bytes: c.bytes, evictions: c.evictions}
	for _, set := range c.byRules {
		for _, e := range set {
			if u.oldest.IsZero() || e.created.Before(u.oldest) {
				u.oldest = e.created
			}
		}
	}
	return u
}
