// internal/service/reservation/application/fulfillment_service.go
package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockgate/internal/pkg/logger"
	"stockgate/internal/service/reservation/domain"
	"stockgate/internal/service/reservation/domain/port"
)

// FulfillmentService 把每个履约事件转化为恰好一条持久订单和对应的持久库存扣减
// 事务提交之前事件绝不能被确认，瞬时失败通过队列重投恢复
type FulfillmentService struct {
	repo   domain.StockRepository
	cache  port.ProductCache
	tracer trace.Tracer
}

func NewFulfillmentService(repo domain.StockRepository, cache port.ProductCache, tracer trace.Tracer) *FulfillmentService {
	return &FulfillmentService{repo: repo, cache: cache, tracer: tracer}
}

// HandleFulfillmentEvent 处理一条（可能重复投递的）履约事件
// 返回 nil 表示事件可以被确认：要么本次成功落库，要么它是一次重复投递
func (s *FulfillmentService) HandleFulfillmentEvent(ctx context.Context, event *domain.FulfillmentEvent) error {
	ctx, span := s.tracer.Start(ctx, "app.HandleFulfillmentEvent", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", event.EventID),
		attribute.Int64("product.id", int64(event.ProductID)),
		attribute.Int64("quantity", event.Quantity),
	)

	if event.EventID == "" || event.ProductID == 0 || event.Quantity <= 0 {
		// 结构坏掉的事件重试也不会成功，直接交给失败处理器走死信
		return errors.New("malformed fulfillment event")
	}

	orderNo := uuid.New().String()
	record, err := s.repo.ApplyFulfillment(ctx, event, orderNo)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			// 崩溃在"提交之后、确认之前"会导致重复投递
			// 幂等键保证不会生成第二条订单，这里安静地确认掉即可
			span.AddEvent("Duplicate delivery detected, skipping.")
			logger.Ctx(ctx).Warn().
				Str("event_id", event.EventID).
				Msg("Duplicate fulfillment event skipped.")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "fulfillment transaction failed")
		return err
	}

	// 提交成功后删除（而不是更新）缓存条目，强制下一个读者回源
	if err := s.cache.Delete(ctx, event.ProductID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint64("product_id", event.ProductID).Msg("cache invalidation failed after fulfillment")
	}

	logger.Ctx(ctx).Info().
		Str("event_id", event.EventID).
		Str("order_no", record.OrderNo).
		Uint64("product_id", event.ProductID).
		Int64("quantity", event.Quantity).
		Msg("✅ Fulfillment committed.")
	return nil
}
