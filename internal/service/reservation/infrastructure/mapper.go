// internal/service/reservation/infrastructure/mapper.go
package infrastructure

import "stockgate/internal/service/reservation/domain"

func toDomainProduct(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:        m.ID,
		Name:      m.Name,
		Stock:     m.Stock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toDomainOrder(m *OrderModel) *domain.OrderRecord {
	return &domain.OrderRecord{
		ID:        m.ID,
		OrderNo:   m.OrderNo,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
	}
}
