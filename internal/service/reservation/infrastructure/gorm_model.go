// internal/service/reservation/infrastructure/gorm_model.go
package infrastructure

import "time"

// ProductModel 对应 products 表，stock 列是持久层的权威库存
type ProductModel struct {
	ID        uint64 `gorm:"primarykey"`
	Name      string `gorm:"size:255;not null"`
	Stock     int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProductModel) TableName() string { return "products" }

// OrderModel 对应 orders 表，只由履约事务写入
type OrderModel struct {
	ID        uint64 `gorm:"primarykey"`
	OrderNo   string `gorm:"size:64;uniqueIndex;not null"`
	ProductID uint64 `gorm:"not null;index"`
	Quantity  int64  `gorm:"not null"`
	CreatedAt time.Time
}

func (OrderModel) TableName() string { return "orders" }

// ProcessedEventModel 是履约事件的幂等表
// event_id 上的唯一索引让重复投递在事务内直接撞唯一键，而不是生成第二条订单
type ProcessedEventModel struct {
	ID        uint64 `gorm:"primarykey"`
	EventID   string `gorm:"size:64;uniqueIndex;not null"`
	ProductID uint64 `gorm:"not null"`
	Quantity  int64  `gorm:"not null"`
	CreatedAt time.Time
}

func (ProcessedEventModel) TableName() string { return "processed_events" }
