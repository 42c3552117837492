// internal/service/reservation/infrastructure/adapter/fulfillment_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"stockgate/internal/pkg/mq"
	"stockgate/internal/service/reservation/domain"
)

// FulfillmentKafkaAdapter 是 port.FulfillmentProducer 的 Kafka 实现
// 消息 Key 是商品 ID：同一商品的事件进同一分区，保证履约与取消的相对顺序
type FulfillmentKafkaAdapter struct {
	writer mq.Publisher
}

func NewFulfillmentKafkaAdapter(writer mq.Publisher) *FulfillmentKafkaAdapter {
	return &FulfillmentKafkaAdapter{writer: writer}
}

func (a *FulfillmentKafkaAdapter) Publish(ctx context.Context, event *domain.FulfillmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal fulfillment event")
	}
	key := []byte(strconv.FormatUint(event.ProductID, 10))
	if err := mq.ProduceMessage(ctx, a.writer, key, payload); err != nil {
		return errors.Wrap(err, "failed to produce fulfillment event")
	}
	return nil
}

// AlertKafkaAdapter 是 port.AlertProducer 的 Kafka 实现
// 告警进独立 Topic，由 alert-gateway 推送给在线的运维客户端
type AlertKafkaAdapter struct {
	writer mq.Publisher
}

func NewAlertKafkaAdapter(writer mq.Publisher) *AlertKafkaAdapter {
	return &AlertKafkaAdapter{writer: writer}
}

func (a *AlertKafkaAdapter) Alert(ctx context.Context, alert *domain.StockAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "failed to marshal stock alert")
	}
	if err := mq.ProduceMessage(ctx, a.writer, []byte(alert.Reason), payload); err != nil {
		return errors.Wrap(err, "failed to produce stock alert")
	}
	return nil
}
