// internal/service/reservation/interfaces/dlt_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"stockgate/internal/pkg/logger"
	"stockgate/internal/pkg/mq"
	"stockgate/internal/service/reservation/domain"
	"stockgate/internal/service/reservation/domain/port"
)

// DltConsumerAdapter 监听死信队列，记录日志并升级为运维告警
type DltConsumerAdapter struct {
	reader  *kafka.Reader
	alerter port.AlertProducer
	wg      sync.WaitGroup
	stopped bool
}

func NewDltConsumerAdapter(reader *kafka.Reader, alerter port.AlertProducer) *DltConsumerAdapter {
	return &DltConsumerAdapter{
		reader:  reader,
		alerter: alerter,
	}
}

func (a *DltConsumerAdapter) Start(ctx context.Context) error {
	a.wg.Add(1)
	defer a.wg.Done()
	logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("✅ DLT Consumer Adapter started.")
	for {
		if a.stopped {
			return nil
		}
		msg, err := a.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("🛑 DLT Consumer Adapter shutting down.")
				return nil
			}
			continue
		}

		// 死信消息总是直接确认：它的"处理"就是记录与告警
		a.handleDeadLetter(ctx, msg)
	}
}

func (a *DltConsumerAdapter) Stop(ctx context.Context) {
	a.stopped = true
	a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("✅ DLT Consumer Adapter stopped.")
}

func (a *DltConsumerAdapter) handleDeadLetter(ctx context.Context, msg kafka.Message) {
	fulfillmentEventsTotal.WithLabelValues("dead_lettered").Inc()

	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", mq.HeaderValue(msg, mq.HeaderOriginalTopic)).
		Str("original_partition", mq.HeaderValue(msg, mq.HeaderOriginalPartition)).
		Str("original_offset", mq.HeaderValue(msg, mq.HeaderOriginalOffset)).
		Str("exception_fqcn", mq.HeaderValue(msg, mq.HeaderExceptionFqcn)).
		Str("exception_message", mq.HeaderValue(msg, mq.HeaderExceptionMessage)).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("🚨 CRITICAL: Dead letter message received")

	// 尽力还原事件内容，拼出告警详情
	var event domain.FulfillmentEvent
	_ = json.Unmarshal(msg.Value, &event)
	alert := &domain.StockAlert{
		Reason:    domain.AlertDeadLetter,
		ProductID: event.ProductID,
		Quantity:  event.Quantity,
		Detail:    mq.HeaderValue(msg, mq.HeaderExceptionMessage),
		At:        time.Now(),
	}
	if err := a.alerter.Alert(ctx, alert); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to publish dead-letter alert")
	}
}
