// Package cache keeps resolved webhook identities in Redis so that webhook
// authentication does not hit the workflow store on every call.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/wirecat/pkg/services"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a deleted webhook may keep authenticating on a node
	// that missed the eviction.
	DefaultTTL = 5 * time.Minute

	keyPrefix = "wirecat:webhook:"
)

// WebhookCache stores services.WebhookIdentity values as JSON under a TTL.
type WebhookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWebhookCache wraps client. A non-positive ttl selects DefaultTTL.
func NewWebhookCache(client *redis.Client, ttl time.Duration) *WebhookCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &WebhookCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string, ttl time.Duration) (*WebhookCache, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWebhookCache(client, ttl), nil
}

func key(webhookID string) string {
	return keyPrefix + webhookID
}

func (c *WebhookCache) Get(ctx context.Context, webhookID string) (*services.WebhookIdentity, bool, error) {
	raw, err := c.client.Get(ctx, key(webhookID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to read webhook %s from cache: %w", webhookID, err)
	}

	var identity services.WebhookIdentity

	err = json.Unmarshal(raw, &identity)
	if err != nil {
		// the entry is overwritten by the next Set after the store lookup
		return nil, false, fmt.Errorf("failed to decode cached webhook %s: %w", webhookID, err)
	}

	return &identity, true, nil
}

func (c *WebhookCache) Set(ctx context.Context, identity *services.WebhookIdentity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode webhook %s: %w", identity.WebhookID, err)
	}

	err = c.client.Set(ctx, key(identity.WebhookID), raw, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to cache webhook %s: %w", identity.WebhookID, err)
	}

	return nil
}

func (c *WebhookCache) Delete(ctx context.Context, webhookID string) error {
	err := c.client.Del(ctx, key(webhookID)).Err()
	if err != nil {
		return fmt.Errorf("failed to evict webhook %s: %w", webhookID, err)
	}

	return nil
}

// Close releases the Redis connection pool.
func (c *WebhookCache) Close() error {
	return c.client.Close()
}
