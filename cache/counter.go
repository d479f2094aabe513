package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CounterCache keeps the hot counters (beat play counts, chat unread counts)
// in Redis so the polling endpoints never hit MySQL.
type CounterCache struct {
	client *redis.Client
}

func NewCounterCache(client *redis.Client) *CounterCache {
	return &CounterCache{client: client}
}

func playCountKey(beatID int64) string {
	return fmt.Sprintf("beat:playcount:%d", beatID)
}

// Unread counters are kept per conversation side: the user's side counts
// staff messages they have not seen, and vice versa.
func unreadKey(userID int64, side string) string {
	return fmt.Sprintf("chat:unread:%s:%d", side, userID)
}

// IncrPlayCount bumps the play counter for a beat and returns the new value.
func (c *CounterCache) IncrPlayCount(ctx context.Context, beatID int64) (int64, error) {
	n, err := c.client.Incr(ctx, playCountKey(beatID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment play count for beat %d: %w", beatID, err)
	}
	return n, nil
}

// PlayCount returns the cached play counter for a beat; 0 when absent.
func (c *CounterCache) PlayCount(ctx context.Context, beatID int64) (int64, error) {
	n, err := c.client.Get(ctx, playCountKey(beatID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get play count for beat %d: %w", beatID, err)
	}
	return n, nil
}

// IncrUnread bumps the unread counter for one side of a conversation.
func (c *CounterCache) IncrUnread(ctx context.Context, userID int64, side string) error {
	key := unreadKey(userID, side)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to increment unread counter %s: %w", key, err)
	}
	// Counters are advisory; let stale ones age out.
	c.client.Expire(ctx, key, 30*24*time.Hour)
	return nil
}

// Unread returns the unread counter for one side of a conversation.
func (c *CounterCache) Unread(ctx context.Context, userID int64, side string) (int64, error) {
	n, err := c.client.Get(ctx, unreadKey(userID, side)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get unread counter for user %d: %w", userID, err)
	}
	return n, nil
}

// ResetUnread clears the unread counter after the side has fetched history.
func (c *CounterCache) ResetUnread(ctx context.Context, userID int64, side string) error {
	if err := c.client.Del(ctx, unreadKey(userID, side)).Err(); err != nil {
		return fmt.Errorf("failed to reset unread counter for user %d: %w", userID, err)
	}
	return nil
}
