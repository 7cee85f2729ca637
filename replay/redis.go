// Package replay records consumed (session_id, nonce) pairs so a Responder
// that restarts mid-fleet cannot be tricked into accepting a replayed
// CHALLENGE or PSK_EXCHANGE context value for a session id it no longer
// holds in memory. This hardens a gap spec silence leaves open; it is
// optional and additive, never required for a single in-process handshake.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func key(sessionID uint32, nonce []byte) string {
	return fmt.Sprintf("spdm:nonce:%d:%x", sessionID, nonce)
}

// ClaimNonce records a nonce as consumed, returning false if it was already
// seen (a replay).
func (c *Cache) ClaimNonce(ctx context.Context, sessionID uint32, nonce []byte) (fresh bool, err error) {
	ok, err := c.client.SetNX(ctx, key(sessionID, nonce), 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim nonce: %w", err)
	}
	return ok, nil
}

func (c *Cache) Close() error { return c.client.Close() }
