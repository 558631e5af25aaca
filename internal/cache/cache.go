// Package cache wraps Redis for the platform's caching needs: search result
// caching, the points leaderboard and the session token denylist.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/campuslink/platform/internal/app/domain/points"
)

// Cache is a thin typed layer over a Redis client. A nil Cache is safe to
// use: every operation becomes a no-op miss, so callers degrade to the
// database when Redis is not configured.
type Cache struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// GetJSON loads key into dst. The boolean reports a cache hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with a TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// DeletePattern removes all keys matching a glob pattern.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	if c == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// --- session token denylist --------------------------------------------------

func denyKey(jti string) string { return "auth:denied:" + jti }

// DenyToken records a revoked token ID until its natural expiry.
func (c *Cache) DenyToken(ctx context.Context, jti string, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return c.client.Set(ctx, denyKey(jti), "1", ttl).Err()
}

// IsTokenDenied reports whether the token ID has been revoked.
func (c *Cache) IsTokenDenied(ctx context.Context, jti string) (bool, error) {
	if c == nil {
		return false, nil
	}
	_, err := c.client.Get(ctx, denyKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- leaderboard -------------------------------------------------------------

const leaderboardKey = "points:leaderboard"

// AddScore increments a member's leaderboard score.
func (c *Cache) AddScore(ctx context.Context, userID string, delta int) error {
	if c == nil {
		return nil
	}
	return c.client.ZIncrBy(ctx, leaderboardKey, float64(delta), userID).Err()
}

// SetLeaderboard replaces the leaderboard contents with entries.
func (c *Cache) SetLeaderboard(ctx context.Context, entries []points.LeaderboardEntry) error {
	if c == nil {
		return nil
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, leaderboardKey)
	for _, entry := range entries {
		pipe.ZAdd(ctx, leaderboardKey, &redis.Z{Score: float64(entry.Points), Member: entry.UserID})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Leaderboard returns the top limit members, highest score first. A false
// second return means the leaderboard is cold and must be rebuilt from the
// store.
func (c *Cache) Leaderboard(ctx context.Context, limit int) ([]points.LeaderboardEntry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	if limit <= 0 {
		limit = 10
	}
	results, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	entries := make([]points.LeaderboardEntry, 0, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries = append(entries, points.LeaderboardEntry{
			UserID: member,
			Points: int(z.Score),
			Rank:   i + 1,
		})
	}
	return entries, true, nil
}
