package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/repository"
)

const (
	supplierKeyPrefix   = "catalog:suppliers"
	supplierScanBatch   = 100
	supplierKeyEncoding = "v1"
)

// SupplierCache caches the supplier catalog between cycles.
type SupplierCache interface {
	GetSuppliers(ctx context.Context) ([]domain.SupplierProfile, bool, error)
	SetSuppliers(ctx context.Context, suppliers []domain.SupplierProfile) error
	InvalidateAll(ctx context.Context) error
}

type redisSupplierCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

type noopSupplierCache struct{}

// NewSupplierCache returns a redis-backed cache, or a noop cache when client
// is nil.
func NewSupplierCache(client redis.UniversalClient, ttl time.Duration) SupplierCache {
	if client == nil {
		return &noopSupplierCache{}
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisSupplierCache{client: client, ttl: ttl}
}

func NewNoopSupplierCache() SupplierCache {
	return &noopSupplierCache{}
}

func (c *redisSupplierCache) GetSuppliers(ctx context.Context) ([]domain.SupplierProfile, bool, error) {
	payload, err := c.client.Get(ctx, supplierKey()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var suppliers []domain.SupplierProfile
	if err := json.Unmarshal(payload, &suppliers); err != nil {
		return nil, false, fmt.Errorf("decode supplier cache: %w", err)
	}

	return suppliers, true, nil
}

func (c *redisSupplierCache) SetSuppliers(ctx context.Context, suppliers []domain.SupplierProfile) error {
	payload, err := json.Marshal(suppliers)
	if err != nil {
		return fmt.Errorf("encode supplier cache: %w", err)
	}

	if err := c.client.Set(ctx, supplierKey(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSupplierCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, supplierKeyPrefix, supplierScanBatch)
}

func (n *noopSupplierCache) GetSuppliers(ctx context.Context) ([]domain.SupplierProfile, bool, error) {
	return nil, false, nil
}

func (n *noopSupplierCache) SetSuppliers(ctx context.Context, suppliers []domain.SupplierProfile) error {
	return nil
}

func (n *noopSupplierCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func supplierKey() string {
	return fmt.Sprintf("%s:%s", supplierKeyPrefix, supplierKeyEncoding)
}

// CachedCatalog serves ListSuppliers from the cache and passes everything
// else through. A failing cache falls back to the underlying reader.
type CachedCatalog struct {
	repository.CatalogReader
	cache SupplierCache
}

func NewCachedCatalog(reader repository.CatalogReader, cache SupplierCache) *CachedCatalog {
	if cache == nil {
		cache = NewNoopSupplierCache()
	}
	return &CachedCatalog{CatalogReader: reader, cache: cache}
}

func (c *CachedCatalog) ListSuppliers(ctx context.Context) ([]domain.SupplierProfile, error) {
	suppliers, ok, err := c.cache.GetSuppliers(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("supplier cache read failed, loading from catalog")
	}
	if ok {
		return suppliers, nil
	}

	suppliers, err = c.CatalogReader.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetSuppliers(ctx, suppliers); err != nil {
		log.Warn().Err(err).Msg("supplier cache write failed")
	}
	return suppliers, nil
}
