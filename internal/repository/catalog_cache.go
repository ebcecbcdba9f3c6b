package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
)

// cachedCatalog is a read-through Redis cache over CatalogRepository.
// Cache failures degrade to the database, never to the caller.
type cachedCatalog struct {
	inner  CatalogRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalog wraps a catalog lookup with Redis caching.
func NewCachedCatalog(inner CatalogRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) CatalogRepository {
	return &cachedCatalog{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *cachedCatalog) GetStatus(ctx context.Context, id int64) (*domain.Status, error) {
	key := fmt.Sprintf("catalog:status:%d", id)
	var status domain.Status
	if c.readCache(ctx, key, &status) {
		return &status, nil
	}
	fresh, err := c.inner.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

func (c *cachedCatalog) GetStatusByCode(ctx context.Context, kind domain.CaseKind, code string) (*domain.Status, error) {
	key := fmt.Sprintf("catalog:status:%s:%s", kind, code)
	var status domain.Status
	if c.readCache(ctx, key, &status) {
		return &status, nil
	}
	fresh, err := c.inner.GetStatusByCode(ctx, kind, code)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

func (c *cachedCatalog) GetSeverity(ctx context.Context, id int64) (*domain.Severity, error) {
	key := fmt.Sprintf("catalog:severity:%d", id)
	var severity domain.Severity
	if c.readCache(ctx, key, &severity) {
		return &severity, nil
	}
	fresh, err := c.inner.GetSeverity(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

func (c *cachedCatalog) GetCaseType(ctx context.Context, id int64) (*domain.CaseType, error) {
	key := fmt.Sprintf("catalog:type:%d", id)
	var caseType domain.CaseType
	if c.readCache(ctx, key, &caseType) {
		return &caseType, nil
	}
	fresh, err := c.inner.GetCaseType(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

func (c *cachedCatalog) GetArea(ctx context.Context, id int64) (*domain.Area, error) {
	key := fmt.Sprintf("catalog:area:%d", id)
	var area domain.Area
	if c.readCache(ctx, key, &area) {
		return &area, nil
	}
	fresh, err := c.inner.GetArea(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

func (c *cachedCatalog) GetSite(ctx context.Context, id int64) (*domain.Site, error) {
	key := fmt.Sprintf("catalog:site:%d", id)
	var site domain.Site
	if c.readCache(ctx, key, &site) {
		return &site, nil
	}
	fresh, err := c.inner.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

func (c *cachedCatalog) GetSubLocation(ctx context.Context, id int64) (*domain.SubLocation, error) {
	key := fmt.Sprintf("catalog:sublocation:%d", id)
	var sub domain.SubLocation
	if c.readCache(ctx, key, &sub) {
		return &sub, nil
	}
	fresh, err := c.inner.GetSubLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, fresh)
	return fresh, nil
}

func (c *cachedCatalog) readCache(ctx context.Context, key string, dest any) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Debug("catalog cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *cachedCatalog) writeCache(ctx context.Context, key string, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
