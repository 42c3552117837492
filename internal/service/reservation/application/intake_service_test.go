package application

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockgate/internal/service/reservation/domain"
)

type intakeFixture struct {
	counter  *mockCounter
	producer *mockProducer
	alerter  *mockAlerter
	policy   *mockPolicy
	repo     *mockRepo
	cache    *mockCache
	service  *IntakeService
}

func newIntakeFixture(counterValues map[uint64]int64) *intakeFixture {
	f := &intakeFixture{
		counter:  newMockCounter(counterValues),
		producer: &mockProducer{},
		alerter:  &mockAlerter{},
		policy:   &mockPolicy{},
		repo:     newMockRepo(),
		cache:    newMockCache(),
	}
	f.service = NewIntakeService(f.counter, f.producer, f.alerter, f.policy, f.repo, f.cache, otel.Tracer("test"))
	return f
}

func TestReserve_InvalidQuantityNeverTouchesCounter(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{1: 10})

	for _, quantity := range []int64{0, -1, -100} {
		_, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 1, Quantity: quantity})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}

	assert.Equal(t, 0, f.counter.decrCalls)
	assert.Empty(t, f.producer.events)
}

func TestReserve_PolicyRejection(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{1: 10})
	f.policy.deny = true

	_, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 1, Quantity: 3})

	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 0, f.counter.decrCalls)
}

func TestReserve_UnknownResource(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{1: 10})

	_, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 999, Quantity: 1})

	assert.ErrorIs(t, err, domain.ErrUnknownResource)
	assert.Empty(t, f.producer.events)
}

func TestReserve_AcceptedDecrementsAndPublishes(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{7: 10})

	resp, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 7, Quantity: 3})

	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
	assert.NotEmpty(t, resp.EventID)

	remaining, err := f.counter.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), remaining)

	require.Len(t, f.producer.events, 1)
	event := f.producer.events[0]
	assert.Equal(t, resp.EventID, event.EventID)
	assert.Equal(t, uint64(7), event.ProductID)
	assert.Equal(t, int64(3), event.Quantity)
	assert.False(t, event.EnqueuedAt.IsZero())

	// 准入只读计数器，缓存与持久层都不参与决策
	assert.Equal(t, 0, f.cache.getCalls)
}

func TestReserve_InsufficientStockCompensates(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{7: 2})

	_, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 7, Quantity: 3})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, f.producer.events)

	// 扣穿后必须原子回加，计数器回到原值
	remaining, getErr := f.counter.Get(context.Background(), 7)
	require.NoError(t, getErr)
	assert.Equal(t, int64(2), remaining)
}

func TestReserve_PublishFailureCompensates(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{7: 5})
	f.producer.publishErr = errors.New("broker unreachable")

	_, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 7, Quantity: 2})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDataConsistency)

	remaining, getErr := f.counter.Get(context.Background(), 7)
	require.NoError(t, getErr)
	assert.Equal(t, int64(5), remaining)
	assert.Empty(t, f.alerter.alerts)
}

func TestReserve_OrphanedReservationRaisesAlert(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{7: 5})
	f.producer.publishErr = errors.New("broker unreachable")
	f.counter.failIncrement = true

	_, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 7, Quantity: 2})

	// 入队和补偿双双失败，绝不能静默吞掉
	assert.ErrorIs(t, err, domain.ErrDataConsistency)
	require.Len(t, f.alerter.alerts, 1)
	alert := f.alerter.alerts[0]
	assert.Equal(t, domain.AlertOrphanedReservation, alert.Reason)
	assert.Equal(t, uint64(7), alert.ProductID)
	assert.Equal(t, int64(2), alert.Quantity)
}

func TestReserve_ConcurrentNeverOversells(t *testing.T) {
	const (
		initial  = int64(20)
		quantity = int64(3)
		attempts = 10
	)
	f := newIntakeFixture(map[uint64]int64{1: initial})

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 1, Quantity: quantity})
			if err == nil && resp.Status == "accepted" {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 20/3 = 6 个名额，扣减和补偿都是原子操作，成功数是确定的
	assert.Equal(t, 6, accepted)
	remaining, err := f.counter.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, initial-int64(accepted)*quantity, remaining)
	assert.GreaterOrEqual(t, remaining, int64(0))
	assert.Len(t, f.producer.events, accepted)
}

func TestReserve_ConcurrentSingleWinner(t *testing.T) {
	// 初始库存 5，两个并发的 reserve(3)：恰好一个成功，计数器最终为 2
	f := newIntakeFixture(map[uint64]int64{1: 5})

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.service.Reserve(context.Background(), &ReserveRequest{ProductID: 1, Quantity: 3})
			results <- err
		}()
	}

	var accepted, insufficient int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, insufficient)
	remaining, err := f.counter.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

func TestCancel_RestoresCounterAndInvalidatesCache(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{7: 0})
	f.repo.products[7] = &domain.Product{ID: 7, Name: "widget", Stock: 6}
	f.repo.orders[1] = &domain.OrderRecord{ID: 1, OrderNo: "ord-1", ProductID: 7, Quantity: 4}

	err := f.service.Cancel(context.Background(), 1)

	require.NoError(t, err)
	remaining, getErr := f.counter.Get(context.Background(), 7)
	require.NoError(t, getErr)
	assert.Equal(t, int64(4), remaining)
	assert.Equal(t, int64(10), f.repo.products[7].Stock)
	assert.Equal(t, []uint64{7}, f.cache.deletes)

	// 第二次取消同一订单必须失败，且不再触碰计数器
	err = f.service.Cancel(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	remaining, getErr = f.counter.Get(context.Background(), 7)
	require.NoError(t, getErr)
	assert.Equal(t, int64(4), remaining)
}

func TestCancel_CounterFailureRaisesAlert(t *testing.T) {
	f := newIntakeFixture(map[uint64]int64{7: 0})
	f.repo.products[7] = &domain.Product{ID: 7, Stock: 6}
	f.repo.orders[1] = &domain.OrderRecord{ID: 1, OrderNo: "ord-1", ProductID: 7, Quantity: 4}
	f.counter.failIncrement = true

	err := f.service.Cancel(context.Background(), 1)

	assert.ErrorIs(t, err, domain.ErrDataConsistency)
	require.Len(t, f.alerter.alerts, 1)
	assert.Equal(t, domain.AlertCounterDrift, f.alerter.alerts[0].Reason)
}

func TestGetProduct_CacheAside(t *testing.T) {
	f := newIntakeFixture(nil)
	f.repo.products[7] = &domain.Product{ID: 7, Name: "widget", Stock: 6}

	// 第一次未命中，回源并写回缓存
	view, err := f.service.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "store", view.Source)
	assert.Equal(t, int64(6), view.Data.Stock)

	// 第二次命中缓存
	view, err = f.service.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "cache", view.Source)
	assert.Equal(t, "widget", view.Data.Name)
}

func TestGetProduct_UnknownResource(t *testing.T) {
	f := newIntakeFixture(nil)

	_, err := f.service.GetProduct(context.Background(), 42)

	assert.ErrorIs(t, err, domain.ErrUnknownResource)
}

func TestCreateProduct_SeedsCounter(t *testing.T) {
	f := newIntakeFixture(nil)

	data, err := f.service.CreateProduct(context.Background(), &CreateProductRequest{Name: "widget", Stock: 50})

	require.NoError(t, err)
	assert.NotZero(t, data.ID)
	value, getErr := f.counter.Get(context.Background(), data.ID)
	require.NoError(t, getErr)
	assert.Equal(t, int64(50), value)
}

func TestCreateProduct_RejectsInvalidInput(t *testing.T) {
	f := newIntakeFixture(nil)

	_, err := f.service.CreateProduct(context.Background(), &CreateProductRequest{Name: "", Stock: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.service.CreateProduct(context.Background(), &CreateProductRequest{Name: "widget", Stock: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
