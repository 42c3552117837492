// internal/service/reservation/domain/port/queue.go
package port

import (
	"context"

	"stockgate/internal/service/reservation/domain"
)

// FulfillmentProducer 把履约事件投递到持久队列
// 投递必须按资源分区，保证同一资源上的履约与取消保持相对顺序
type FulfillmentProducer interface {
	Publish(ctx context.Context, event *domain.FulfillmentEvent) error
}

// AlertProducer 发出面向运维的一致性告警
type AlertProducer interface {
	Alert(ctx context.Context, alert *domain.StockAlert) error
}
