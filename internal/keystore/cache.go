package keystore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docreader/internal/models"
	"docreader/internal/redis"
)

const cachePrefix = "docreader:apikey:"

// CachedStore layers a redis read-through cache over another Store. A cache
// failure falls back to the wrapped store, so redis being down never blocks
// authentication.
type CachedStore struct {
	inner  Store
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps inner with a redis membership cache.
func NewCachedStore(inner Store, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedStore) IsValid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	key := cachePrefix + token
	if val, err := c.cache.Get(ctx, key); err == nil {
		return val == "1", nil
	} else if !errors.Is(err, redis.ErrCacheMiss) {
		c.logger.Warn("keystore.cache.get_failed", "error", err)
	}

	ok, err := c.inner.IsValid(ctx, token)
	if err != nil {
		return false, err
	}
	val := "0"
	if ok {
		val = "1"
	}
	if err := c.cache.Set(ctx, key, val, c.ttl); err != nil {
		c.logger.Warn("keystore.cache.set_failed", "error", err)
	}
	return ok, nil
}

func (c *CachedStore) Add(ctx context.Context, token, label string) (*models.APIKeyRecord, error) {
	rec, err := c.inner.Add(ctx, token, label)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Del(ctx, cachePrefix+token); err != nil {
		c.logger.Warn("keystore.cache.invalidate_failed", "error", err)
	}
	return rec, nil
}

func (c *CachedStore) Remove(ctx context.Context, token string) error {
	if err := c.inner.Remove(ctx, token); err != nil {
		return err
	}
	if err := c.cache.Del(ctx, cachePrefix+token); err != nil {
		c.logger.Warn("keystore.cache.invalidate_failed", "error", err)
	}
	return nil
}

func (c *CachedStore) List(ctx context.Context) ([]models.APIKeyRecord, error) {
	return c.inner.List(ctx)
}
