// internal/service/reservation/domain/port/counter.go
package port

import "context"

// StockCounter 是准入计数器的出站端口
// 它只暴露原子的增减原语，应用层绝不允许对计数器做读-改-写
// 每个 Key 上的操作必须线性一致，这是准入正确性的唯一依赖
type StockCounter interface {
	// DecrementAndGet 原子扣减并返回扣减后的值。
	// 计数器不存在（资源未知）时返回 domain.ErrUnknownResource，且不创建 Key。
	DecrementAndGet(ctx context.Context, productID uint64, quantity int64) (int64, error)

	// IncrementAndGet 原子回加并返回回加后的值，用于补偿和取消。
	IncrementAndGet(ctx context.Context, productID uint64, quantity int64) (int64, error)

	// Set 覆写计数器，仅供对账/初始化使用，禁止出现在在线请求路径上。
	Set(ctx context.Context, productID uint64, value int64) error

	// Get 读取当前计数，仅用于观测与测试断言。
	Get(ctx context.Context, productID uint64) (int64, error)
}
