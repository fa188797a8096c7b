package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/wirecat/pkg/services"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*WebhookCache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	c := NewWebhookCache(client, ttl)
	t.Cleanup(func() { _ = c.Close() })

	return c, server
}

func TestWebhookCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, server := newTestCache(t, time.Minute)

	identity := &services.WebhookIdentity{
		OwnerID:    "U1",
		ActionID:   "a1",
		ActionKey:  "a1.receive",
		WorkflowID: "wf",
		WebhookID:  "wh",
	}

	_, found, err := c.Get(ctx, "wh")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, identity))
	assert.True(t, server.Exists("wirecat:webhook:wh"))
	assert.Equal(t, time.Minute, server.TTL("wirecat:webhook:wh"))

	got, found, err := c.Get(ctx, "wh")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, identity, got)

	require.NoError(t, c.Delete(ctx, "wh"))

	_, found, err = c.Get(ctx, "wh")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWebhookCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, server := newTestCache(t, 0)

	require.NoError(t, c.Set(ctx, &services.WebhookIdentity{WebhookID: "wh"}))
	assert.Equal(t, DefaultTTL, server.TTL("wirecat:webhook:wh"))

	server.FastForward(DefaultTTL + time.Second)

	_, found, err := c.Get(ctx, "wh")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWebhookCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, server := newTestCache(t, time.Minute)

	require.NoError(t, server.Set("wirecat:webhook:wh", "{not json"))

	_, found, err := c.Get(ctx, "wh")
	require.Error(t, err)
	assert.False(t, found)
}

func TestWebhookCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	c, server := newTestCache(t, time.Minute)
	server.Close()

	_, _, err := c.Get(ctx, "wh")
	require.Error(t, err)
	require.Error(t, c.Set(ctx, &services.WebhookIdentity{WebhookID: "wh"}))
	require.Error(t, c.Delete(ctx, "wh"))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	c, err := Connect(ctx, "redis://"+server.Addr(), 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Connect(ctx, "not a url", 0)
	require.Error(t, err)
}
