// internal/permissions/cache.go
package permissions

import (
	"sort"
	"strings"
	"time"
)

/*
 * Result cache for combined permission checks.
 *
 * Plain map with manual TTL checks, guarded by the Manager's mutex (low
 * contention, checks are cheap). Keys canonicalize every evaluation input:
 * sorted held permissions, required permission, sorted context pairs, and
 * location, so identical inputs always collide and nothing time-dependent
 * leaks into the key.
 *
 * Expired entries are evicted lazily on lookup and counted out of
 * ValidEntries in stats. clear() drops everything at once; rule
 * registration calls it because new rules change combined outcomes.
 */

type cacheEntry struct {
	allowed    bool
	computedAt time.Time
}

// CacheStats reports cache size and effectiveness counters.
type CacheStats struct {
	TotalEntries int
	ValidEntries int
	Hits         uint64
	Misses       uint64
}

type resultCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	hits    uint64
	misses  uint64
	now     func() time.Time
}

func newResultCache(ttl time.Duration, now func() time.Time) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// get returns a cached result if present and within TTL. Expired entries
// are evicted and reported as misses.
func (c *resultCache) get(key string) (bool, bool) {
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return false, false
	}
	if c.now().Sub(entry.computedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return false, false
	}
	c.hits++
	return entry.allowed, true
}

func (c *resultCache) put(key string, allowed bool) {
	c.entries[key] = cacheEntry{allowed: allowed, computedAt: c.now()}
}

func (c *resultCache) clear() {
	c.entries = make(map[string]cacheEntry)
}

func (c *resultCache) stats() CacheStats {
	stats := CacheStats{
		TotalEntries: len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
	}
	cutoff := c.now()
	for _, entry := range c.entries {
		if cutoff.Sub(entry.computedAt) <= c.ttl {
			stats.ValidEntries++
		}
	}
	return stats
}

// cacheKey canonicalizes all combined-check inputs into one string key.
func cacheKey(held []Permission, required Permission, ctx map[string]string, location string) string {
	perms := make([]string, 0, len(held))
	for _, p := range held {
		perms = append(perms, string(p))
	}
	sort.Strings(perms)

	pairs := make([]string, 0, len(ctx))
	for k, v := range ctx {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteString(strings.Join(perms, ","))
	b.WriteByte('|')
	b.WriteString(string(required))
	b.WriteByte('|')
	b.WriteString(strings.Join(pairs, ","))
	b.WriteByte('|')
	b.WriteString(location)
	return b.String()
}
