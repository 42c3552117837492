// internal/service/reservation/domain/order.go
package domain

import "time"

// OrderRecord 是一次预约完成履约后的持久记录
// 只能由履约侧在事务内创建，准入侧永远不直接写订单
type OrderRecord struct {
	ID        uint64
	OrderNo   string
	ProductID uint64
	Quantity  int64
	CreatedAt time.Time
}