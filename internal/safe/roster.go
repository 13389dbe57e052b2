package safe

import (
	"context"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"

	"pyxis-safe/internal/models"
)

// RosterCache keeps recent owner -> wallets lookups. Entries expire after
// ttl and are dropped whenever a wallet the owner belongs to changes.
type RosterCache struct {
	roster OwnerRoster
	cache  *cache.Cache[string, []models.OwnerWallet]
	ttl    time.Duration
}

func NewRosterCache(roster OwnerRoster, size int, ttl time.Duration) *RosterCache {
	return &RosterCache{
		roster: roster,
		cache:  cache.New(cache.AsLRU[string, []models.OwnerWallet](lru.WithCapacity(size))),
		ttl:    ttl,
	}
}

func rosterKey(chainID, owner string) string { return chainID + "|" + owner }

// WalletsForOwner lists the live wallets owner belongs to on chainID.
func (c *RosterCache) WalletsForOwner(ctx context.Context, owner, chainID string) ([]models.OwnerWallet, error) {
	key := rosterKey(chainID, owner)
	if c.ttl > 0 {
		if v, ok := c.cache.Get(key); ok {
			rosterCacheLookups.WithLabelValues("hit").Inc()
			return v, nil
		}
	}
	rosterCacheLookups.WithLabelValues("miss").Inc()

	wallets, err := c.roster.ListWalletsForOwner(ctx, owner, chainID)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.cache.Set(key, wallets, cache.WithExpiration(c.ttl))
	}
	return wallets, nil
}

// IsOwner reports whether owner is on the roster of safeID.
func (c *RosterCache) IsOwner(ctx context.Context, owner, chainID string, safeID uint) (bool, error) {
	wallets, err := c.WalletsForOwner(ctx, owner, chainID)
	if err != nil {
		return false, err
	}
	for _, w := range wallets {
		if w.SafeID == safeID {
			return true, nil
		}
	}
	return false, nil
}

func (c *RosterCache) Invalidate(chainID string, owners ...string) {
	for _, o := range owners {
		c.cache.Delete(rosterKey(chainID, o))
	}
}
