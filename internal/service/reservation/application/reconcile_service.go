// internal/service/reservation/application/reconcile_service.go
package application

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"

	"stockgate/internal/pkg/logger"
	"stockgate/internal/service/reservation/domain"
	"stockgate/internal/service/reservation/domain/port"
)

// ReconcileService 用持久层的权威库存覆写准入计数器
// 这是离线维护操作：与在线准入并发执行会把在途扣减覆盖掉，
// 调用方必须先拿到全局互斥（见 cmd/reconcile-job 的 ZooKeeper 锁）
type ReconcileService struct {
	repo    domain.StockRepository
	counter port.StockCounter
	tracer  trace.Tracer
}

func NewReconcileService(repo domain.StockRepository, counter port.StockCounter, tracer trace.Tracer) *ReconcileService {
	return &ReconcileService{repo: repo, counter: counter, tracer: tracer}
}

// ReconcileAll 遍历所有商品，把计数器重置为持久库存值
// 单个商品失败不中断整体，最后汇总返回
func (s *ReconcileService) ReconcileAll(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "app.ReconcileAll")
	defer span.End()

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list products for reconciliation")
	}

	var failed int
	for _, p := range products {
		if err := s.counter.Set(ctx, p.ID, p.Stock); err != nil {
			failed++
			logger.Ctx(ctx).Error().Err(err).
				Uint64("product_id", p.ID).
				Int64("stock", p.Stock).
				Msg("failed to reconcile counter")
			continue
		}
		logger.Ctx(ctx).Info().
			Uint64("product_id", p.ID).
			Int64("stock", p.Stock).
			Msg("counter reconciled")
	}

	if failed > 0 {
		return fmt.Errorf("reconciliation finished with %d/%d failures", failed, len(products))
	}
	logger.Ctx(ctx).Info().Int("count", len(products)).Msg("✅ Reconciliation completed.")
	return nil
}
