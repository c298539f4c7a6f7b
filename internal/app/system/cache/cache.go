// internal/app/system/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/metrics"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// DefaultTTL bounds how stale a cached read model may get between invalidations.
const DefaultTTL = 60 * time.Second

// KeyPrefix namespaces every key this app writes.
const KeyPrefix = "vibes:"

// Cache is a JSON read-through cache over Redis. A nil *Cache is valid and
// always misses, so callers work unchanged without Redis.
type Cache struct {
	client  rueidis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Connect opens a client to addr. The client-side cache is disabled because
// entries are invalidated explicitly.
func Connect(addr, password string) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client for %s: %w", addr, err)
	}
	return client, nil
}

// New wraps client. ttl <= 0 uses DefaultTTL.
func New(client rueidis.Client, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		logger:  logger.Named("cache"),
		metrics: m,
	}
}

// Get decodes the value at key into dst and reports whether it was present.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(KeyPrefix+key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores v at key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	err = c.client.Do(ctx, c.client.B().Set().Key(KeyPrefix+key).Value(rueidis.BinaryString(raw)).Ex(c.ttl).Build()).Error()
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored. Each key gets its own DEL,
// pipelined, so keys in different cluster slots can be removed together.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, c.client.B().Del().Key(KeyPrefix+k).Build())
	}
	var errs []error
	for i, resp := range c.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			errs = append(errs, fmt.Errorf("cache delete %s: %w", keys[i], err))
		}
	}
	return errors.Join(errs...)
}

// Fetch returns the cached value for key, or calls load and caches its result.
// Redis failures degrade to calling load; they are logged, never returned.
// family labels the lookup in metrics.
func Fetch[T any](ctx context.Context, c *Cache, family, key string, load func(context.Context) (T, error)) (T, error) {
	var v T
	if c != nil {
		hit, err := c.Get(ctx, key, &v)
		if err != nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.CacheLookup(family, hit)
		if hit {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		if err := c.Set(ctx, key, v); err != nil {
			c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

// Close releases the client.
func (c *Cache) Close() {
	if c != nil {
		c.client.Close()
	}
}
