// internal/service/reservation/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockgate/internal/service/reservation/domain"
)

// GormStockRepository 是 domain.StockRepository 的 GORM/MySQL 实现
type GormStockRepository struct {
	db *gorm.DB
}

func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

func (r *GormStockRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	model := &ProductModel{Name: product.Name, Stock: product.Stock}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "failed to insert product")
	}
	product.ID = model.ID
	product.CreatedAt = model.CreatedAt
	product.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *GormStockRepository) FindProductByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownResource
		}
		return nil, errors.Wrap(err, "failed to query product")
	}
	return toDomainProduct(&model), nil
}

func (r *GormStockRepository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	products := make([]*domain.Product, 0, len(models))
	for i := range models {
		products = append(products, toDomainProduct(&models[i]))
	}
	return products, nil
}

// ApplyFulfillment 在一个事务内完成：幂等登记、持久库存扣减、订单写入
// 任何一步失败整个事务回滚，调用方通过队列重投恢复
func (r *GormStockRepository) ApplyFulfillment(ctx context.Context, event *domain.FulfillmentEvent, orderNo string) (*domain.OrderRecord, error) {
	var created OrderModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 幂等登记。重复投递会撞 event_id 唯一键
		dedup := &ProcessedEventModel{
			EventID:   event.EventID,
			ProductID: event.ProductID,
			Quantity:  event.Quantity,
		}
		if err := tx.Create(dedup).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateEvent
			}
			return errors.Wrap(err, "failed to register event")
		}

		// 2. 扣减持久库存。条件更新保证持久库存列也不会为负
		res := tx.Model(&ProductModel{}).
			Where("id = ? AND stock >= ?", event.ProductID, event.Quantity).
			Update("stock", gorm.Expr("stock - ?", event.Quantity))
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to decrement durable stock")
		}
		if res.RowsAffected == 0 {
			// 事件通过了准入却在持久层扣不动，说明两个存储已经分叉
			return errors.Wrapf(domain.ErrDataConsistency,
				"durable stock underflow for product %d", event.ProductID)
		}

		// 3. 写入订单
		created = OrderModel{
			OrderNo:   orderNo,
			ProductID: event.ProductID,
			Quantity:  event.Quantity,
		}
		if err := tx.Create(&created).Error; err != nil {
			return errors.Wrap(err, "failed to insert order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrder(&created), nil
}

// CancelOrder 在一个事务内回加持久库存并删除订单行
// 行锁让同一订单上的并发取消只有一个能看到未删除的行
func (r *GormStockRepository) CancelOrder(ctx context.Context, orderID uint64) (*domain.OrderRecord, error) {
	var cancelled OrderModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cancelled, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return errors.Wrap(err, "failed to lock order row")
		}

		if err := tx.Model(&ProductModel{}).
			Where("id = ?", cancelled.ProductID).
			Update("stock", gorm.Expr("stock + ?", cancelled.Quantity)).Error; err != nil {
			return errors.Wrap(err, "failed to restore durable stock")
		}

		if err := tx.Delete(&OrderModel{}, cancelled.ID).Error; err != nil {
			return errors.Wrap(err, "failed to delete order row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrder(&cancelled), nil
}
