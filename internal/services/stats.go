package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/warbler/warbler/pkg/cache"
)

// Stats are the per-user counters shown on profile pages.
type Stats struct {
	Messages  int64 `json:"messages"`
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
	Likes     int64 `json:"likes"`
}

// StatsCache keeps Stats in a redis hash per user. A nil *StatsCache is a
// valid cache that never hits.
//
// Each user also has a generation counter bumped by Invalidate. A reader
// that missed the cache takes Generation before counting and stores with
// SetIfCurrent, which drops the write if an invalidation landed meanwhile.
type StatsCache struct {
	client *cache.RedisClient
	ttl    time.Duration
}

func NewStatsCache(client *cache.RedisClient, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(userID uint) string {
	return fmt.Sprintf("warbler:user:%d:stats", userID)
}

func statsGenKey(userID uint) string {
	return fmt.Sprintf("warbler:user:%d:stats:gen", userID)
}

// Get returns the cached counters and whether there were any.
func (c *StatsCache) Get(ctx context.Context, userID uint) (*Stats, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	fields, err := c.client.HGetAll(ctx, statsKey(userID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read stats cache: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	var stats Stats
	for name, dest := range map[string]*int64{
		"messages":  &stats.Messages,
		"following": &stats.Following,
		"followers": &stats.Followers,
		"likes":     &stats.Likes,
	} {
		n, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			// a partial or corrupt hash is treated as a miss
			return nil, false, nil
		}
		*dest = n
	}
	return &stats, true, nil
}

func (c *StatsCache) Set(ctx context.Context, userID uint, stats *Stats) error {
	if c == nil {
		return nil
	}
	return c.client.SetHash(ctx, statsKey(userID), statsFields(stats), c.ttl)
}

// Generation returns the user's current invalidation generation.
func (c *StatsCache) Generation(ctx context.Context, userID uint) (int64, error) {
	if c == nil {
		return 0, nil
	}
	gen, err := c.client.Counter(ctx, statsGenKey(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to read stats generation: %w", err)
	}
	return gen, nil
}

// SetIfCurrent stores stats only if the user's generation is still gen.
func (c *StatsCache) SetIfCurrent(ctx context.Context, userID uint, stats *Stats, gen int64) (bool, error) {
	if c == nil {
		return false, nil
	}
	return c.client.SetHashIfCounter(ctx, statsKey(userID), statsFields(stats), c.ttl, statsGenKey(userID), gen)
}

// Invalidate drops the cached counters of every given user and bumps their
// generations.
func (c *StatsCache) Invalidate(ctx context.Context, userIDs ...uint) error {
	if c == nil || len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	gens := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, statsKey(id))
		gens = append(gens, statsGenKey(id))
	}
	return c.client.DeleteAndIncr(ctx, gens, c.ttl, keys...)
}

func statsFields(stats *Stats) map[string]interface{} {
	return map[string]interface{}{
		"messages":  stats.Messages,
		"following": stats.Following,
		"followers": stats.Followers,
		"likes":     stats.Likes,
	}
}
