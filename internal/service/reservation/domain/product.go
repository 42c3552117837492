// internal/service/reservation/domain/product.go
package domain

import "time"

// Product 是库存资源的聚合根
// Stock 是持久层的权威库存，计数器中的值仅用于准入判断
type Product struct {
	ID        uint64
	Name      string
	Stock     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
