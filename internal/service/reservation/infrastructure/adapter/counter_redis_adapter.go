// internal/service/reservation/infrastructure/adapter/counter_redis_adapter.go
package adapter

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"stockgate/internal/pkg/redis"
	"stockgate/internal/service/reservation/domain"
)

const decrementScriptName = "stock_decrement"

// CounterRedisAdapter 是 port.StockCounter 的 Redis 实现
// 准入正确性完全建立在 Redis 单 Key 命令的串行执行之上
type CounterRedisAdapter struct {
	redisClient *redis.Client
}

// NewCounterRedisAdapter 创建计数器适配器，并在初始化时加载扣减脚本
func NewCounterRedisAdapter(redisClient *redis.Client) (*CounterRedisAdapter, error) {
	if err := redisClient.LoadScriptFromContent(decrementScriptName, decrementScript); err != nil {
		return nil, fmt.Errorf("failed to load stock decrement script: %w", err)
	}
	return &CounterRedisAdapter{redisClient: redisClient}, nil
}

// DecrementAndGet 原子扣减并返回新值
// Key 不存在时脚本返回 nil（ErrUnknownResource），避免 DECRBY 凭空创建负数计数器
func (a *CounterRedisAdapter) DecrementAndGet(ctx context.Context, productID uint64, quantity int64) (int64, error) {
	result, err := a.redisClient.RunScript(ctx, decrementScriptName, []string{counterKey(productID)}, quantity)
	if err != nil {
		if err == goredis.Nil {
			return 0, domain.ErrUnknownResource
		}
		return 0, fmt.Errorf("counter decrement script failed: %w", err)
	}
	value, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from Lua script: %T", result)
	}
	return value, nil
}

// IncrementAndGet 原子回加并返回新值
func (a *CounterRedisAdapter) IncrementAndGet(ctx context.Context, productID uint64, quantity int64) (int64, error) {
	value, err := a.redisClient.GetClient().IncrBy(ctx, counterKey(productID), quantity).Result()
	if err != nil {
		return 0, fmt.Errorf("counter increment failed: %w", err)
	}
	return value, nil
}

// Set 覆写计数器，仅供对账和初始化
func (a *CounterRedisAdapter) Set(ctx context.Context, productID uint64, value int64) error {
	if err := a.redisClient.GetClient().Set(ctx, counterKey(productID), value, 0).Err(); err != nil {
		return fmt.Errorf("counter set failed: %w", err)
	}
	return nil
}

// Get 读取当前计数
func (a *CounterRedisAdapter) Get(ctx context.Context, productID uint64) (int64, error) {
	raw, err := a.redisClient.GetClient().Get(ctx, counterKey(productID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return 0, domain.ErrUnknownResource
		}
		return 0, fmt.Errorf("counter get failed: %w", err)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter holds non-integer value %q: %w", raw, err)
	}
	return value, nil
}

func counterKey(productID uint64) string {
	// hash tag 保证集群模式下同一商品的操作落在同一个 slot
	return fmt.Sprintf("stock:counter:{%d}", productID)
}

var decrementScript = `
-- KEYS[1]: 库存计数器的 Key, 例如: stock:counter:{42}
-- ARGV[1]: 本次扣减的数量

-- Key 不存在说明资源未知，返回 nil 而不是把 Key 创建成负数
if redis.call('exists', KEYS[1]) == 0 then
    return false
end

return redis.call('decrby', KEYS[1], ARGV[1])
`
