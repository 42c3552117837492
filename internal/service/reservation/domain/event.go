// internal/service/reservation/domain/event.go
package domain

import "time"

// FulfillmentEvent 是准入成功后发往履约队列的事件
// EventID 是幂等键：重复投递时履约侧依赖它去重，避免生成重复订单
type FulfillmentEvent struct {
	EventID    string    `json:"eventId"`
	ProductID  uint64    `json:"productId"`
	Quantity   int64     `json:"quantity"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// StockAlert 是面向运维的一致性告警事件
// 只要出现"扣了计数器但没有对应事件/补偿失败"这类孤儿状态，必须发出，不能静默
type StockAlert struct {
	Reason    string    `json:"reason"`
	ProductID uint64    `json:"productId"`
	Quantity  int64     `json:"quantity"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

// 告警原因
const (
	AlertOrphanedReservation = "orphaned_reservation"
	AlertCounterDrift        = "counter_drift"
	AlertDeadLetter          = "dead_letter"
)
