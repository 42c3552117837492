package application

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"stockgate/internal/service/reservation/domain"
	"stockgate/internal/service/reservation/domain/port"
)

// mockCounter 用互斥锁模拟计数器存储的单 Key 串行语义
type mockCounter struct {
	mu            sync.Mutex
	values        map[uint64]int64
	decrCalls     int
	incrCalls     int
	failIncrement bool
}

func newMockCounter(values map[uint64]int64) *mockCounter {
	if values == nil {
		values = make(map[uint64]int64)
	}
	return &mockCounter{values: values}
}

func (m *mockCounter) DecrementAndGet(_ context.Context, productID uint64, quantity int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrCalls++
	if _, ok := m.values[productID]; !ok {
		return 0, domain.ErrUnknownResource
	}
	m.values[productID] -= quantity
	return m.values[productID], nil
}

func (m *mockCounter) IncrementAndGet(_ context.Context, productID uint64, quantity int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrCalls++
	if m.failIncrement {
		return 0, errors.New("counter store unreachable")
	}
	m.values[productID] += quantity
	return m.values[productID], nil
}

func (m *mockCounter) Set(_ context.Context, productID uint64, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[productID] = value
	return nil
}

func (m *mockCounter) Get(_ context.Context, productID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[productID]
	if !ok {
		return 0, domain.ErrUnknownResource
	}
	return value, nil
}

type mockProducer struct {
	mu         sync.Mutex
	events     []*domain.FulfillmentEvent
	publishErr error
}

func (m *mockProducer) Publish(_ context.Context, event *domain.FulfillmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.events = append(m.events, event)
	return nil
}

type mockAlerter struct {
	mu     sync.Mutex
	alerts []*domain.StockAlert
}

func (m *mockAlerter) Alert(_ context.Context, alert *domain.StockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

type mockPolicy struct {
	deny bool
	err  error
}

func (m *mockPolicy) Allow(_ context.Context, _ uint64, _ int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return !m.deny, nil
}

// mockRepo 在内存中模拟持久层的事务语义（每个方法整体成功或整体失败）
type mockRepo struct {
	mu          sync.Mutex
	products    map[uint64]*domain.Product
	orders      map[uint64]*domain.OrderRecord
	processed   map[string]bool
	nextOrderID uint64
}

func newMockRepo(products ...*domain.Product) *mockRepo {
	repo := &mockRepo{
		products:  make(map[uint64]*domain.Product),
		orders:    make(map[uint64]*domain.OrderRecord),
		processed: make(map[string]bool),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (m *mockRepo) CreateProduct(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrderID++
	product.ID = m.nextOrderID
	m.products[product.ID] = product
	return nil
}

func (m *mockRepo) FindProductByID(_ context.Context, id uint64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrUnknownResource
	}
	copied := *p
	return &copied, nil
}

func (m *mockRepo) ListProducts(_ context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockRepo) ApplyFulfillment(_ context.Context, event *domain.FulfillmentEvent, orderNo string) (*domain.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed[event.EventID] {
		return nil, domain.ErrDuplicateEvent
	}
	p, ok := m.products[event.ProductID]
	if !ok || p.Stock < event.Quantity {
		return nil, errors.Wrapf(domain.ErrDataConsistency, "durable stock underflow for product %d", event.ProductID)
	}
	m.processed[event.EventID] = true
	p.Stock -= event.Quantity
	m.nextOrderID++
	record := &domain.OrderRecord{
		ID:        m.nextOrderID,
		OrderNo:   orderNo,
		ProductID: event.ProductID,
		Quantity:  event.Quantity,
	}
	m.orders[record.ID] = record
	return record, nil
}

func (m *mockRepo) CancelOrder(_ context.Context, orderID uint64) (*domain.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if p, ok := m.products[record.ProductID]; ok {
		p.Stock += record.Quantity
	}
	delete(m.orders, orderID)
	return record, nil
}

type mockCache struct {
	mu       sync.Mutex
	entries  map[uint64]*domain.Product
	getCalls int
	deletes  []uint64
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[uint64]*domain.Product)}
}

func (m *mockCache) Get(_ context.Context, productID uint64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	p, ok := m.entries[productID]
	if !ok {
		return nil, port.ErrCacheMiss
	}
	copied := *p
	return &copied, nil
}

func (m *mockCache) Set(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *product
	m.entries[product.ID] = &copied
	return nil
}

func (m *mockCache) Delete(_ context.Context, productID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, productID)
	m.deletes = append(m.deletes, productID)
	return nil
}
