// internal/service/reservation/infrastructure/adapter/cache_redis_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"stockgate/internal/pkg/redis"
	"stockgate/internal/service/reservation/domain"
	"stockgate/internal/service/reservation/domain/port"
)

// CacheRedisAdapter 是 port.ProductCache 的 Redis 实现
// TTL 带抖动，避免批量过期导致的回源尖峰
type CacheRedisAdapter struct {
	redisClient *redis.Client
	baseTTL     time.Duration
}

func NewCacheRedisAdapter(redisClient *redis.Client, baseTTL time.Duration) *CacheRedisAdapter {
	return &CacheRedisAdapter{redisClient: redisClient, baseTTL: baseTTL}
}

func (a *CacheRedisAdapter) Get(ctx context.Context, productID uint64) (*domain.Product, error) {
	data, err := a.redisClient.GetClient().Get(ctx, cacheKey(productID)).Bytes()
	if err == goredis.Nil {
		return nil, port.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("cache entry unmarshal failed: %w", err)
	}
	return &product, nil
}

func (a *CacheRedisAdapter) Set(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("cache entry marshal failed: %w", err)
	}
	jitter := time.Duration(rand.Intn(30)) * time.Second
	if err := a.redisClient.GetClient().Set(ctx, cacheKey(product.ID), data, a.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (a *CacheRedisAdapter) Delete(ctx context.Context, productID uint64) error {
	if err := a.redisClient.GetClient().Del(ctx, cacheKey(productID)).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

func cacheKey(productID uint64) string {
	return fmt.Sprintf("product:detail:{%d}", productID)
}
