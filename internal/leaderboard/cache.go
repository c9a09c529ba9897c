package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// rosterCache memoizes per-user persistent-team memberships for the
// shared-team badge. It is owned by the leaderboard service (no module-level
// state) and invalidates by TTL; Flush drops everything early if a
// collaborator signals a roster change.
type rosterCache struct {
	cache *gocache.Cache
}

func newRosterCache(ttl time.Duration) *rosterCache {
	return &rosterCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// teamsFor returns team IDs per user, fetching only the users missing from
// the cache through fetch.
func (c *rosterCache) teamsFor(
	ctx context.Context,
	userIDs []uuid.UUID,
	fetch func(ctx context.Context, missing []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error),
) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(userIDs))
	var missing []uuid.UUID
	for _, id := range userIDs {
		if v, ok := c.cache.Get(id.String()); ok {
			result[id] = v.([]uuid.UUID)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		teams := fetched[id] // nil for users with no team; cached too
		c.cache.SetDefault(id.String(), teams)
		result[id] = teams
	}
	return result, nil
}

// Flush drops all cached rosters.
func (c *rosterCache) Flush() {
	c.cache.Flush()
}
