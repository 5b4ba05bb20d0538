// Package permissions implements hierarchical and contextual permission
// evaluation for the Roshni Games platform.
//
// Permissions split into two kinds: a strict hierarchy where each level
// implies everything below it (ADMIN > MODERATOR > USER > BASIC_ACCESS) and
// flat gameplay permissions that grant nothing beyond themselves. On top of
// the hierarchy sit access rules (time windows, location lists, context
// matchers) registered per permission; a combined check requires the
// permission to be hierarchically held AND every applicable rule to pass.
// Combined results are cached with a TTL (see cache.go).
package permissions

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Permission names match the platform enum's .name values.
type Permission string

// Hierarchical levels, strongest first.
const (
	PermAdmin       Permission = "ADMIN"
	PermModerator   Permission = "MODERATOR"
	PermUser        Permission = "USER"
	PermBasicAccess Permission = "BASIC_ACCESS"
)

// Flat gameplay permissions. Held directly or not at all.
const (
	PermPlayGames     Permission = "PLAY_GAMES"
	PermCreateContent Permission = "CREATE_CONTENT"
	PermSocialFeed    Permission = "SOCIAL_FEED"
	PermPurchases     Permission = "PURCHASES"
)

// hierarchy lists the strict levels in descending strength. Index is rank;
// a held level implies every level with a greater or equal index.
var hierarchy = []Permission{PermAdmin, PermModerator, PermUser, PermBasicAccess}

// rank returns the hierarchy index of p, or false for flat permissions.
func rank(p Permission) (int, bool) {
	for i, h := range hierarchy {
		if h == p {
			return i, true
		}
	}
	return 0, false
}

// Manager evaluates hierarchical and rule-gated permission checks.
// All mutable state (rule registry, result cache) sits behind one mutex.
type Manager struct {
	mu    sync.Mutex
	log   *logrus.Logger
	rules map[Permission][]AccessRule
	cache *resultCache
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCacheTTL overrides the default cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.cache.ttl = ttl }
}

// WithClock injects the evaluation clock. Tests use this to pin time rules
// and TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
		m.cache.now = now
	}
}

// DefaultCacheTTL bounds how stale a cached combined check may be.
const DefaultCacheTTL = 5 * time.Minute

// NewManager creates a Manager with an empty rule registry.
func NewManager(log *logrus.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logrus.New()
	}
	m := &Manager{
		log:   log,
		rules: make(map[Permission][]AccessRule),
		cache: newResultCache(DefaultCacheTTL, time.Now),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CheckHierarchical reports whether required is directly held or implied by
// a stronger hierarchical permission.
func (m *Manager) CheckHierarchical(held []Permission, required Permission) bool {
	for _, p := range held {
		if p == required {
			return true
		}
	}

	reqRank, reqHierarchical := rank(required)
	if !reqHierarchical {
		// Flat permissions are never implied.
		return false
	}
	for _, p := range held {
		if heldRank, ok := rank(p); ok && heldRank <= reqRank {
			return true
		}
	}
	return false
}

// EffectivePermissions expands each held hierarchical permission to itself
// plus everything it implies, unioned with directly held flat permissions.
// Sorted for deterministic output.
func (m *Manager) EffectivePermissions(held []Permission) []Permission {
	set := make(map[Permission]struct{})
	for _, p := range held {
		set[p] = struct{}{}
		if heldRank, ok := rank(p); ok {
			for _, implied := range hierarchy[heldRank:] {
				set[implied] = struct{}{}
			}
		}
	}

	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddRule registers an access rule gating the given permission in combined
// checks. Registration invalidates the result cache.
func (m *Manager) AddRule(rule AccessRule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[rule.Permission] = append(m.rules[rule.Permission], rule)
	m.cache.clear()
	m.log.WithFields(logrus.Fields{
		"permission": rule.Permission,
		"kind":       rule.Kind,
		"enabled":    rule.Enabled,
	}).Debug("access rule registered")
}

// RemoveRules drops all access rules for a permission and invalidates the
// cache.
func (m *Manager) RemoveRules(permission Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rules, permission)
	m.cache.clear()
}

// CheckWithRules combines the hierarchical check with every access rule
// registered for the required permission (AND semantics). Results are cached
// by (held permissions, required, context, location) with a TTL.
func (m *Manager) CheckWithRules(held []Permission, required Permission, ctx map[string]string, location string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey(held, required, ctx, location)
	if allowed, ok := m.cache.get(key); ok {
		return allowed
	}

	allowed := m.checkLocked(held, required, ctx, location)
	m.cache.put(key, allowed)
	return allowed
}

// checkLocked performs the uncached combined evaluation.
func (m *Manager) checkLocked(held []Permission, required Permission, ctx map[string]string, location string) bool {
	if !m.CheckHierarchical(held, required) {
		return false
	}
	for _, rule := range m.rules[required] {
		if !rule.Evaluate(m.now(), ctx, location) {
			return false
		}
	}
	return true
}

// CacheStats reports the current cache counters.
func (m *Manager) CacheStats() CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.stats()
}

// ClearCache empties the result cache synchronously.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.clear()
}
