// internal/service/reservation/application/intake_service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockgate/internal/pkg/logger"
	"stockgate/internal/service/reservation/domain"
	"stockgate/internal/service/reservation/domain/port"
)

// IntakeService 编排预约准入流程：
// 校验 → 计数器原子扣减 → 事件入队，失败路径上执行补偿
// 准入的并发正确性完全依赖计数器的单 Key 线性一致，这里不加任何锁
type IntakeService struct {
	counter  port.StockCounter
	producer port.FulfillmentProducer
	alerter  port.AlertProducer
	policy   port.AdmissionPolicy
	repo     domain.StockRepository
	cache    port.ProductCache
	tracer   trace.Tracer
}

func NewIntakeService(counter port.StockCounter, producer port.FulfillmentProducer, alerter port.AlertProducer,
	policy port.AdmissionPolicy, repo domain.StockRepository, cache port.ProductCache, tracer trace.Tracer) *IntakeService {
	return &IntakeService{
		counter:  counter,
		producer: producer,
		alerter:  alerter,
		policy:   policy,
		repo:     repo,
		cache:    cache,
		tracer:   tracer,
	}
}

// Reserve 执行一次预约准入
// 返回 Accepted 只代表"扣减成功、事件已可靠入队"，持久化由履约侧异步完成
func (s *IntakeService) Reserve(ctx context.Context, req *ReserveRequest) (*ReserveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", int64(req.ProductID)),
		attribute.Int64("reserve.quantity", req.Quantity),
	)

	// 1. 本地校验，任何失败都不触碰计数器
	if req.ProductID == 0 || req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	allowed, err := s.policy.Allow(ctx, req.ProductID, req.Quantity)
	if err != nil {
		return nil, errors.Wrap(err, "admission policy evaluation failed")
	}
	if !allowed {
		span.AddEvent("Rejected by admission policy.")
		return nil, domain.ErrInvalidQuantity
	}

	// 2. 计数器原子扣减，一次往返
	remaining, err := s.counter.DecrementAndGet(ctx, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownResource) {
			return nil, domain.ErrUnknownResource
		}
		return nil, errors.Wrap(err, "counter decrement failed")
	}

	// 3. 扣穿了，原子回加补偿后拒绝
	if remaining < 0 {
		if _, compErr := s.counter.IncrementAndGet(ctx, req.ProductID, req.Quantity); compErr != nil {
			// 补偿失败意味着计数器被永久扣低，必须告警并触发对账
			s.raiseAlert(ctx, domain.AlertCounterDrift, req.ProductID, req.Quantity, compErr.Error())
			return nil, errors.Wrap(domain.ErrDataConsistency, compErr.Error())
		}
		span.AddEvent("Insufficient stock, compensation applied.")
		return nil, domain.ErrInsufficientStock
	}

	// 4. 扣减成功，发布履约事件
	event := &domain.FulfillmentEvent{
		EventID:    uuid.New().String(),
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		EnqueuedAt: time.Now(),
	}
	if err := s.producer.Publish(ctx, event); err != nil {
		// 入队失败会留下"扣了库存但没有事件"的孤儿预约，
		// 先同步回加补偿；连补偿都失败时必须升级为告警，绝不静默
		span.RecordError(err)
		span.SetStatus(codes.Error, "fulfillment event publish failed")
		if _, compErr := s.counter.IncrementAndGet(ctx, req.ProductID, req.Quantity); compErr != nil {
			s.raiseAlert(ctx, domain.AlertOrphanedReservation, req.ProductID, req.Quantity, compErr.Error())
			return nil, errors.Wrap(domain.ErrDataConsistency, "orphaned reservation: publish and compensation both failed")
		}
		logger.Ctx(ctx).Error().Err(err).
			Uint64("product_id", req.ProductID).
			Msg("Event publish failed, reservation compensated.")
		return nil, errors.Wrap(err, "failed to enqueue fulfillment event")
	}

	span.AddEvent("Reservation accepted.")
	return &ReserveResponse{Status: "accepted", EventID: event.EventID}, nil
}

// Cancel 取消一个已履约的订单
// 先提交数据库事务（回加持久库存 + 删除订单行），成功后才回加计数器并失效缓存
func (s *IntakeService) Cancel(ctx context.Context, orderID uint64) error {
	ctx, span := s.tracer.Start(ctx, "app.Cancel")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", int64(orderID)))

	record, err := s.repo.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.ErrOrderNotFound
		}
		return errors.Wrap(err, "cancel transaction failed")
	}

	// 事务已提交，计数器补偿失败只能靠告警 + 对账恢复
	if _, err := s.counter.IncrementAndGet(ctx, record.ProductID, record.Quantity); err != nil {
		s.raiseAlert(ctx, domain.AlertCounterDrift, record.ProductID, record.Quantity, err.Error())
		return errors.Wrap(domain.ErrDataConsistency, "cancel committed but counter increment failed")
	}

	if err := s.cache.Delete(ctx, record.ProductID); err != nil {
		// 缓存失效失败不影响正确性，TTL 会兜底，记日志即可
		logger.Ctx(ctx).Warn().Err(err).Uint64("product_id", record.ProductID).Msg("cache invalidation failed after cancel")
	}

	span.AddEvent("Order cancelled.")
	return nil
}

// GetProduct 旁路缓存读取：先查缓存，未命中回源并带 TTL 写回
// 缓存永远不参与准入决策，只服务读放大
func (s *IntakeService) GetProduct(ctx context.Context, productID uint64) (*ProductView, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetProduct")
	defer span.End()

	if cached, err := s.cache.Get(ctx, productID); err == nil {
		span.SetAttributes(attribute.String("product.source", "cache"))
		return &ProductView{Source: "cache", Data: toProductData(cached)}, nil
	} else if !errors.Is(err, port.ErrCacheMiss) {
		logger.Ctx(ctx).Warn().Err(err).Msg("cache read failed, falling back to store")
	}

	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, product); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("cache populate failed")
	}
	span.SetAttributes(attribute.String("product.source", "store"))
	return &ProductView{Source: "store", Data: toProductData(product)}, nil
}

// CreateProduct 管理操作：创建商品并用初始库存播种计数器
func (s *IntakeService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductData, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateProduct")
	defer span.End()

	if req.Name == "" || req.Stock < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product := &domain.Product{Name: req.Name, Stock: req.Stock}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, errors.Wrap(err, "failed to create product")
	}
	if err := s.counter.Set(ctx, product.ID, product.Stock); err != nil {
		return nil, errors.Wrap(err, "product created but counter seeding failed, run reconciliation")
	}

	data := toProductData(product)
	return &data, nil
}

func (s *IntakeService) raiseAlert(ctx context.Context, reason string, productID uint64, quantity int64, detail string) {
	alert := &domain.StockAlert{
		Reason:    reason,
		ProductID: productID,
		Quantity:  quantity,
		Detail:    detail,
		At:        time.Now(),
	}
	logger.Ctx(ctx).Error().
		Str("reason", reason).
		Uint64("product_id", productID).
		Int64("quantity", quantity).
		Str("detail", detail).
		Msg("🚨 CRITICAL: stock consistency alert")
	if err := s.alerter.Alert(ctx, alert); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to publish consistency alert")
	}
}

func toProductData(p *domain.Product) ProductData {
	return ProductData{ID: p.ID, Name: p.Name, Stock: p.Stock}
}
