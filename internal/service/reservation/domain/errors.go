// internal/service/reservation/domain/errors.go
package domain

import "errors"

var (
	// ErrInvalidQuantity 请求数量不合法，或未通过准入策略
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrUnknownResource 资源不存在（计数器未被初始化）
	ErrUnknownResource = errors.New("unknown resource")
	// ErrInsufficientStock 库存不足，补偿已执行
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNotFound 订单不存在或已被取消
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateEvent 履约事件已被处理过（重复投递）
	ErrDuplicateEvent = errors.New("fulfillment event already processed")
	// ErrDataConsistency 计数器与持久层出现不可自动恢复的分歧
	ErrDataConsistency = errors.New("data consistency violation detected")
)
