// internal/service/reservation/domain/repository.go
package domain

import "context"

// StockRepository 定义了持久层（系统事实记录）的能力
// ApplyFulfillment 和 CancelOrder 必须在单个数据库事务内完成各自的全部写操作
type StockRepository interface {
	CreateProduct(ctx context.Context, product *Product) error
	FindProductByID(ctx context.Context, id uint64) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)

	// ApplyFulfillment 在一个事务内：登记事件幂等键、扣减持久库存、写入订单。
	// 事件已处理过时返回 ErrDuplicateEvent，订单不会被重复创建。
	ApplyFulfillment(ctx context.Context, event *FulfillmentEvent, orderNo string) (*OrderRecord, error)

	// CancelOrder 在一个事务内：回加持久库存、删除订单行。
	// 返回被取消的订单，供调用方执行计数器补偿。订单不存在时返回 ErrOrderNotFound。
	CancelOrder(ctx context.Context, orderID uint64) (*OrderRecord, error)
}
