package redis

import (
	"context"
	"time"
)

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.ready() {
		return ErrNotInitialized
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if !c.ready() {
		return "", ErrNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if !c.ready() {
		return false, ErrNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if !c.ready() {
		return ErrNotInitialized
	}
	return c.store.Del(ctx, keys...).Err()
}

// AddMembers adds members to the set at key and pushes its expiry out to ttl.
func (c *Client) AddMembers(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if !c.ready() {
		return ErrNotInitialized
	}
	if len(members) == 0 {
		return nil
	}
	if err := c.store.SAdd(ctx, key, toAny(members)...).Err(); err != nil {
		return err
	}
	if ttl > 0 {
		return c.store.Expire(ctx, key, ttl).Err()
	}
	return nil
}

func (c *Client) RemoveMembers(ctx context.Context, key string, members ...string) error {
	if !c.ready() {
		return ErrNotInitialized
	}
	if len(members) == 0 {
		return nil
	}
	return c.store.SRem(ctx, key, toAny(members)...).Err()
}

// Members returns an empty slice for a missing set.
func (c *Client) Members(ctx context.Context, key string) ([]string, error) {
	if !c.ready() {
		return nil, ErrNotInitialized
	}
	return c.store.SMembers(ctx, key).Result()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// IncrWithTTL increments key and makes sure it expires. EXPIRE NX runs on every
// call so a counter whose first EXPIRE was lost still ends up with a TTL.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if !c.ready() {
		return 0, ErrNotInitialized
	}
	n, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		if err := c.store.ExpireNX(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// FixedWindowAllow counts one hit against scope and reports whether the window
// is still within limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	n, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return n <= limit, n, nil
}
