// internal/service/reservation/domain/port/cache.go
package port

import (
	"context"
	"errors"

	"stockgate/internal/service/reservation/domain"
)

// ErrCacheMiss 表示缓存中没有对应条目，调用方应回源加载
var ErrCacheMiss = errors.New("cache miss")

// ProductCache 是商品详情的旁路缓存端口
// 任何影响库存的写操作只允许 Delete，不允许 Set，避免失效与旧值回写交错
type ProductCache interface {
	Get(ctx context.Context, productID uint64) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID uint64) error
}
