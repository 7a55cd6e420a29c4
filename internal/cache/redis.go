package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Connect opens a Redis client from a redis:// URL and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return client, nil
}

const guardPrefix = "recall:dispatch:"

// DispatchGuard suppresses repeated dispatches of the same contact within a
// window. A nil guard, a nil client or a zero window lets everything through.
type DispatchGuard struct {
	client *redis.Client
	window time.Duration
}

func NewDispatchGuard(client *redis.Client, window time.Duration) *DispatchGuard {
	return &DispatchGuard{client: client, window: window}
}

// Acquire claims the dispatch slot for opportunity+channel+template. It
// returns false when another dispatch holds the slot. Redis failures let the
// dispatch through.
func (g *DispatchGuard) Acquire(ctx context.Context, opportunityID, channel, templateKey string) bool {
	if g == nil || g.client == nil || g.window <= 0 {
		return true
	}

	key := guardKey(opportunityID, channel, templateKey)
	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.window).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dispatch guard unavailable")
		return true
	}
	return ok
}

// Release frees the slot early.
func (g *DispatchGuard) Release(ctx context.Context, opportunityID, channel, templateKey string) {
	if g == nil || g.client == nil || g.window <= 0 {
		return
	}
	if err := g.client.Del(ctx, guardKey(opportunityID, channel, templateKey)).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to release dispatch guard")
	}
}

func guardKey(opportunityID, channel, templateKey string) string {
	return guardPrefix + strings.Join([]string{opportunityID, channel, templateKey}, ":")
}
