// Package cache provides a TTL-bounded, per-organization cache of active
// routing rules so routing does not hit the store on every event.
package cache

import (
	"context"
	"sync"
	"time"

	ruleModel "github.com/reviewflow/reviewflow/internal/rule/model"
	"github.com/reviewflow/reviewflow/internal/rule/repository"
)

type entry struct {
	rules      []ruleModel.RoutingRule
	expiration time.Time
}

// Cache holds active rules per organization with a fixed TTL. Safe for
// concurrent use; refresh races are benign (last write wins, TTL bounds
// staleness).
type Cache struct {
	repo    repository.Repository
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates a new rule cache instance backed by the given repository.
func New(repo repository.Repository, ttl time.Duration) *Cache {
	return &Cache{
		repo:    repo,
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// GetRules returns active rules for an organization in evaluation order,
// loading from the repository when the cached entry is missing or expired.
func (c *Cache) GetRules(ctx context.Context, orgID string) ([]ruleModel.RoutingRule, error) {
	c.mu.RLock()
	cached, exists := c.entries[orgID]
	c.mu.RUnlock()

	if exists && c.now().Before(cached.expiration) {
		return cached.rules, nil
	}

	rules, err := c.repo.ListActive(ctx, orgID)
	if err != nil {
		// Serve the stale entry rather than failing routing outright.
		if exists {
			return cached.rules, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[orgID] = entry{
		rules:      rules,
		expiration: c.now().Add(c.ttl),
	}
	c.mu.Unlock()

	return rules, nil
}

// Invalidate drops the cached entry for one organization.
func (c *Cache) Invalidate(orgID string) {
	c.mu.Lock()
	delete(c.entries, orgID)
	c.mu.Unlock()
}

// InvalidateAll drops all cached entries.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// SetNow overrides the clock. Intended for tests.
func (c *Cache) SetNow(now func() time.Time) {
	c.now = now
}
