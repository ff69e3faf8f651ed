// Package bancache keeps the ids of recently banned accounts in memory so the
// auth middleware can reject still-valid tokens of banned accounts without a
// database round trip.
package bancache

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/logger"
)

// Storage is the one read the cache needs.
type Storage interface {
	RecentlyBannedAccounts(since time.Time) ([]domain.AccountId, error)
}

type Cache struct {
	storage        Storage
	cache          map[domain.AccountId]bool
	mu             sync.RWMutex
	jwtTTL         time.Duration
	lastUpdateTime time.Time
}

func NewCache(storage Storage, jwtTTL time.Duration) *Cache {
	return &Cache{
		storage: storage,
		cache:   make(map[domain.AccountId]bool),
		jwtTTL:  jwtTTL,
	}
}

// Update reloads accounts banned within the JWT TTL plus a 10% buffer for
// clock skew. Older bans can't have a live token anyway.
func (c *Cache) Update() error {
	bufferMultiplier := 1.1
	since := time.Now().Add(-time.Duration(float64(c.jwtTTL) * bufferMultiplier))

	ids, err := c.storage.RecentlyBannedAccounts(since)
	if err != nil {
		return err
	}

	next := make(map[domain.AccountId]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}

	c.mu.Lock()
	c.cache = next
	c.lastUpdateTime = time.Now()
	c.mu.Unlock()

	logger.Log.Debug("ban cache updated",
		"component", "ban_cache",
		"entries", len(next),
		"since", since.Format(time.RFC3339))
	return nil
}

func (c *Cache) IsBanned(id domain.AccountId) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[id]
}

func (c *Cache) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdateTime
}

// StartBackgroundUpdate refreshes the cache every interval until ctx is done.
func (c *Cache) StartBackgroundUpdate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started ban cache background updates",
		"component", "ban_cache",
		"interval", interval,
		"jwt_ttl", c.jwtTTL)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Update(); err != nil {
					logger.Log.Error("ban cache update failed",
						"component", "ban_cache",
						"error", err)
				}
			case <-ctx.Done():
				logger.Log.Info("ban cache shutting down gracefully",
					"component", "ban_cache")
				return
			}
		}
	}()
}
