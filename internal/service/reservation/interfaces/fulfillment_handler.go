// internal/service/reservation/interfaces/fulfillment_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"stockgate/internal/pkg/logger"
	"stockgate/internal/pkg/mq"
	"stockgate/internal/service/reservation/application"
	"stockgate/internal/service/reservation/domain"
)

// FulfillmentConsumerAdapter 是一个驱动适配器：拉取履约事件并驱动应用服务
// 显式的 Fetch → 处理 → Commit 循环，确认永远发生在事务提交之后
type FulfillmentConsumerAdapter struct {
	reader  *kafka.Reader
	appSvc  *application.FulfillmentService
	wg      sync.WaitGroup
	stopped bool

	failureHandler *mq.FailureHandler
}

func NewFulfillmentConsumerAdapter(reader *kafka.Reader, appSvc *application.FulfillmentService, failureHandler *mq.FailureHandler) *FulfillmentConsumerAdapter {
	return &FulfillmentConsumerAdapter{
		reader:         reader,
		appSvc:         appSvc,
		failureHandler: failureHandler,
	}
}

// Start 开始消费。这是一个长期运行的方法，随 ctx 取消而退出。
func (a *FulfillmentConsumerAdapter) Start(ctx context.Context) error {
	a.wg.Add(1)
	defer a.wg.Done()
	logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("✅ Fulfillment Consumer Adapter started.")
	for {
		if a.stopped {
			return nil
		}
		// 使用 FetchMessage 而不是 ReadMessage，提交时机由我们自己控制
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("🛑 Fulfillment Consumer Adapter shutting down.")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
			time.Sleep(1 * time.Second) // 避免快速失败循环
			continue
		}

		if err := a.handleMessage(ctx, msg); err != nil {
			return err
		}
	}
}

// handleMessage 处理一条消息，成功（或移交重试/死信成功）后提交 Offset
// 返回 error 只发生在"处理失败且移交也失败"时：这条消息既不能确认也不能丢弃，
// 而消费组的提交是高水位语义——跳过它继续提交后续消息会把它一并盖掉，
// 留下扣了计数器却没有订单、没有重试、没有死信的孤儿预约。
// 唯一安全的出路是停掉消费者，重启后从已提交位点重新投递。
func (a *FulfillmentConsumerAdapter) handleMessage(ctx context.Context, msg kafka.Message) error {
	propagator := otel.GetTextMapPropagator()
	headerCarrier := mq.KafkaHeaderCarrier(msg.Headers)
	msgCtx := propagator.Extract(ctx, &headerCarrier)

	processingErr := a.processMessage(msgCtx, msg)
	if processingErr != nil {
		fulfillmentEventsTotal.WithLabelValues("retried").Inc()
		if handErr := a.failureHandler.Handle(msgCtx, msg, processingErr); handErr != nil {
			logger.Ctx(msgCtx).Error().Err(handErr).
				Str("key", string(msg.Key)).
				Msg("🚨 Failure handover failed, stopping consumer to force redelivery.")
			return errors.Wrap(handErr, "failure handover failed")
		}
	} else {
		fulfillmentEventsTotal.WithLabelValues("committed").Inc()
	}

	if err := a.reader.CommitMessages(ctx, msg); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit messages")
	}
	return nil
}

// Stop 优雅地停止消费者。
func (a *FulfillmentConsumerAdapter) Stop(ctx context.Context) {
	a.stopped = true
	a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Msg("✅ Fulfillment Consumer Adapter stopped.")
}

// processMessage 反序列化消息并调用应用服务。
func (a *FulfillmentConsumerAdapter) processMessage(ctx context.Context, msg kafka.Message) error {
	var event domain.FulfillmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}
	return a.appSvc.HandleFulfillmentEvent(ctx, &event)
}
