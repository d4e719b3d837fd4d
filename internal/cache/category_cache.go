package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
)

// CategoryCache stores category read results in Redis. Failures are logged and treated as
// misses so the store stays the source of truth.
type CategoryCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

type cachedCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCategoryCache builds the cache.
func NewCategoryCache(client redis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *CategoryCache {
	return &CategoryCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *CategoryCache) listKey(includeInactive bool) string {
	if includeInactive {
		return fmt.Sprintf("%s:categories:list:all", c.prefix)
	}
	return fmt.Sprintf("%s:categories:list:active", c.prefix)
}

func (c *CategoryCache) itemKey(id int64) string {
	return fmt.Sprintf("%s:categories:id:%d", c.prefix, id)
}

// GetList returns a cached listing.
func (c *CategoryCache) GetList(ctx context.Context, includeInactive bool) ([]domain.Category, bool) {
	var items []cachedCategory
	if !c.load(ctx, c.listKey(includeInactive), &items) {
		return nil, false
	}
	out := make([]domain.Category, 0, len(items))
	for _, item := range items {
		out = append(out, fromCached(item))
	}
	return out, true
}

// SetList caches a listing.
func (c *CategoryCache) SetList(ctx context.Context, includeInactive bool, categories []domain.Category) {
	items := make([]cachedCategory, 0, len(categories))
	for _, category := range categories {
		items = append(items, toCached(category))
	}
	c.store(ctx, c.listKey(includeInactive), items)
}

// Get returns a cached category.
func (c *CategoryCache) Get(ctx context.Context, id int64) (*domain.Category, bool) {
	var item cachedCategory
	if !c.load(ctx, c.itemKey(id), &item) {
		return nil, false
	}
	category := fromCached(item)
	return &category, true
}

// Set caches a category.
func (c *CategoryCache) Set(ctx context.Context, category *domain.Category) {
	if category == nil {
		return
	}
	c.store(ctx, c.itemKey(category.ID), toCached(*category))
}

// Invalidate drops both listings and the entry for id.
func (c *CategoryCache) Invalidate(ctx context.Context, id int64) {
	keys := []string{c.listKey(true), c.listKey(false), c.itemKey(id)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("category cache invalidate failed", zap.Int64("category_id", id), zap.Error(err))
	}
}

func (c *CategoryCache) load(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("category cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("category cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CategoryCache) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("category cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func toCached(c domain.Category) cachedCategory {
	return cachedCategory{ID: c.ID, Name: c.Name, Description: c.Description, IsActive: c.IsActive, CreatedAt: c.CreatedAt}
}

func fromCached(c cachedCategory) domain.Category {
	return domain.Category{ID: c.ID, Name: c.Name, Description: c.Description, IsActive: c.IsActive, CreatedAt: c.CreatedAt}
}
