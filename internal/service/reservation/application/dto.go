// internal/service/reservation/application/dto.go
package application

// ReserveRequest 是一次预约请求的载体，请求本身不落库
type ReserveRequest struct {
	ProductID uint64 `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// ReserveResponse 的 Accepted 语义是"扣减成功且事件已入队"，
// 而不是"订单已持久化"——真正的持久化由履约服务异步完成
type ReserveResponse struct {
	Status  string `json:"status"`
	EventID string `json:"eventId"`
}

// CancelRequest 取消一个已履约的订单
type CancelRequest struct {
	OrderID uint64 `json:"orderId"`
}

// CreateProductRequest 管理接口：创建商品并初始化计数器
type CreateProductRequest struct {
	Name  string `json:"name"`
	Stock int64  `json:"stock"`
}

// ProductView 标记了读取来源，便于验证缓存行为
type ProductView struct {
	Source string      `json:"source"` // "cache" | "store"
	Data   ProductData `json:"data"`
}

type ProductData struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Stock int64  `json:"stock"`
}
