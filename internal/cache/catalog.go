package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

type productSource interface {
	GetByIDs(ctx context.Context, ids []domain.EntityID) ([]domain.Product, error)
}

// CatalogCache is a read-through Redis cache in front of the product
// catalog. Redis failures degrade to reading the source directly.
type CatalogCache struct {
	client *redis.Client
	source productSource
	ttl    time.Duration
	group  singleflight.Group
}

func NewCatalogCache(client *redis.Client, source productSource, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, source: source, ttl: ttl}
}

func (c *CatalogCache) GetByIDs(ctx context.Context, ids []domain.EntityID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	log := logging.FromContext(ctx)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warn("catalog cache read failed, using source", "error", err)
		return c.load(ctx, ids)
	}

	products := make([]domain.Product, 0, len(ids))
	var misses []domain.EntityID
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var p domain.Product
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		products = append(products, p)
	}
	if len(misses) == 0 {
		return products, nil
	}

	loaded, err := c.load(ctx, misses)
	if err != nil {
		return nil, err
	}
	return append(products, loaded...), nil
}

// load reads ids from the source, collapsing concurrent loads of the same
// id set, and writes what it found back to Redis. The shared load ignores
// caller cancellation; a canceled caller returns early without failing the
// other waiters.
func (c *CatalogCache) load(ctx context.Context, ids []domain.EntityID) ([]domain.Product, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey(ids), func() (any, error) {
		products, err := c.source.GetByIDs(flightCtx, ids)
		if err != nil {
			return nil, err
		}
		c.store(flightCtx, products)
		return products, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("CatalogCache.load: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("CatalogCache.load: %w", res.Err)
		}
		return slices.Clone(res.Val.([]domain.Product)), nil
	}
}

func (c *CatalogCache) store(ctx context.Context, products []domain.Product) {
	if len(products) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, p := range products {
		b, err := json.Marshal(p)
		if err != nil {
			continue
		}
		pipe.Set(ctx, productKey(p.ID), b, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		logging.FromContext(ctx).Warn("catalog cache write failed", "error", err)
	}
}

// Invalidate drops cached entries so the next read goes to the source.
func (c *CatalogCache) Invalidate(ctx context.Context, ids ...domain.EntityID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("CatalogCache.Invalidate: %w", err)
	}
	return nil
}

func productKey(id domain.EntityID) string {
	return "catalog:product:" + id.String()
}

func flightKey(ids []domain.EntityID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}
