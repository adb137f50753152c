package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irad15/wildfire-detection/internal/protocol"
)

// ResultCache caches detection summaries in Redis keyed by a digest of the
// request body. The pipeline is a pure function of the batch, so a cached
// summary is always identical to a recomputed one.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a result cache and verifies the connection
func New(addr, password string, db int, ttl time.Duration) (*ResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ResultCache{client: client, ttl: ttl}, nil
}

// BatchDigest returns the cache key for a raw request body.
func BatchDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return "detection:result:" + hex.EncodeToString(sum[:])
}

// GetSummary returns the cached summary for a digest, or nil on a miss.
func (c *ResultCache) GetSummary(ctx context.Context, digest string) (*protocol.Summary, error) {
	data, err := c.client.Get(ctx, digest).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary from Redis: %w", err)
	}

	var summary protocol.Summary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}

	return &summary, nil
}

// SetSummary stores a summary under a digest with the configured TTL.
func (c *ResultCache) SetSummary(ctx context.Context, digest string, summary *protocol.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := c.client.Set(ctx, digest, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set summary in Redis: %w", err)
	}

	return nil
}

// Ping checks Redis availability
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *ResultCache) Close() error {
	return c.client.Close()
}
