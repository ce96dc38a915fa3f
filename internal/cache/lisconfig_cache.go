// Package cache provides a Redis-backed read-through cache in front of the
// LISConfigRepository, cutting repeated GetByTenant round-trips from the
// pull/upload/retry worker loops (all three sweep every tenant on every
// tick) down to a cache hit, falling back to the underlying repository on
// a miss or when Redis itself is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// LISConfigRepository wraps a repository.LISConfigRepository with a Redis
// read-through cache on GetByTenant. Create/Update invalidate the cached
// entry rather than refreshing it, so the next read repopulates from the
// source of truth.
type LISConfigRepository struct {
	inner  repository.LISConfigRepository
	client *redis.Client
	ttl    time.Duration
}

func NewLISConfigRepository(inner repository.LISConfigRepository, client *redis.Client, ttl time.Duration) *LISConfigRepository {
	return &LISConfigRepository{inner: inner, client: client, ttl: ttl}
}

func (c *LISConfigRepository) key(tenantID string) string {
	return "ivdmw:lisconfig:" + tenantID
}

func (c *LISConfigRepository) GetByTenant(ctx context.Context, tenantID string) (*lisconfig.LISConfig, error) {
	if cached, ok := c.getCached(ctx, tenantID); ok {
		return cached, nil
	}

	cfg, err := c.inner.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.setCached(ctx, tenantID, cfg)
	return cfg, nil
}

func (c *LISConfigRepository) getCached(ctx context.Context, tenantID string) (*lisconfig.LISConfig, bool) {
	data, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if err != nil {
		return nil, false
	}
	var cfg lisconfig.LISConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, false
	}
	return &cfg, true
}

func (c *LISConfigRepository) setCached(ctx context.Context, tenantID string, cfg *lisconfig.LISConfig) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(tenantID), data, c.ttl)
}

func (c *LISConfigRepository) Create(ctx context.Context, cfg *lisconfig.LISConfig) error {
	if err := c.inner.Create(ctx, cfg); err != nil {
		return err
	}
	c.client.Del(ctx, c.key(cfg.TenantID))
	return nil
}

func (c *LISConfigRepository) Update(ctx context.Context, cfg *lisconfig.LISConfig) error {
	if err := c.inner.Update(ctx, cfg); err != nil {
		return err
	}
	c.client.Del(ctx, c.key(cfg.TenantID))
	return nil
}

func (c *LISConfigRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	return c.inner.ListTenantIDs(ctx)
}
