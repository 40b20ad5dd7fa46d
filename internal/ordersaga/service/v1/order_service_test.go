// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package v1

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/lock"
	"github.com/innovationmech/ordersaga/pkg/saga/retry"
	"github.com/innovationmech/ordersaga/pkg/saga/steps"
	"github.com/innovationmech/ordersaga/pkg/saga/storage"
)

// memoryOrderRepository is an in-memory repository.OrderRepository for
// service-level tests.
type memoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*model.Order
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{orders: make(map[string]*model.Order)}
}

func (r *memoryOrderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = saga.OrderStatusPending.String()
	}
	stored := *order
	r.orders[order.ID] = &stored
	return nil
}

func (r *memoryOrderRepository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, saga.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *memoryOrderRepository) MarkProcessing(ctx context.Context, orderID string) error {
	return r.update(orderID, func(o *model.Order) {
		o.Status = saga.OrderStatusProcessing.String()
	})
}

func (r *memoryOrderRepository) MarkCompleted(ctx context.Context, orderID, trackingNumber string) error {
	return r.update(orderID, func(o *model.Order) {
		o.Status = saga.OrderStatusCompleted.String()
		o.TrackingNumber = trackingNumber
		o.ConfirmationNumber = "ORD-TEST1234"
	})
}

func (r *memoryOrderRepository) MarkFailed(ctx context.Context, orderID string) error {
	return r.update(orderID, func(o *model.Order) {
		o.Status = saga.OrderStatusFailed.String()
	})
}

func (r *memoryOrderRepository) update(orderID string, fn func(*model.Order)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return saga.ErrOrderNotFound
	}
	fn(order)
	return nil
}

type serviceEnv struct {
	orders *memoryOrderRepository
	inv    *steps.MemoryInventoryService
	pay    *steps.MemoryPaymentService
	shp    *steps.MemoryShippingService
	svc    OrderService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	env := &serviceEnv{
		orders: newMemoryOrderRepository(),
		inv:    steps.NewMemoryInventoryService(30 * time.Minute),
		pay:    steps.NewMemoryPaymentService(time.Hour),
		shp:    steps.NewMemoryShippingService(),
	}
	env.inv.SetStock("SKU-1", 100)

	store := storage.NewMemoryStorage()
	svc, err := NewOrderService(Config{
		Orders:        env.orders,
		Executions:    store,
		StepRecords:   store,
		RetryAttempts: store,
		Inventory:     env.inv,
		Payment:       env.pay,
		Shipping:      env.shp,
		Locker:        lock.NewMemoryLocker(),
		RetryPolicy:   retry.Policy{MaxAttempts: 3, Window: 24 * time.Hour},
	})
	require.NoError(t, err)
	env.svc = svc
	return env
}

func createRequest() *model.CreateOrderRequest {
	return &model.CreateOrderRequest{
		CustomerID:      "cust-1",
		PaymentMethodID: "pm-1",
		ShippingAddress: "1 Main St",
		Items:           []model.OrderItemRequest{{SKU: "SKU-1", Quantity: 1}},
		Total:           19.99,
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	env := newServiceEnv(t)

	resp, err := env.svc.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)
	assert.Equal(t, saga.OrderStatusCompleted.String(), resp.Status)
	assert.NotEmpty(t, resp.OrderID)
	assert.NotEmpty(t, resp.ConfirmationNumber)
	assert.Empty(t, resp.FailedStep)
}

func TestCreateOrderPaymentDeclined(t *testing.T) {
	env := newServiceEnv(t)
	env.pay.FailNext(saga.ErrCodePaymentDeclined, "card declined")

	resp, err := env.svc.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err, "a business failure is a response, not an error")
	assert.Equal(t, saga.OrderStatusFailed.String(), resp.Status)
	assert.Equal(t, steps.StepAuthorizePayment, resp.FailedStep)
	assert.Equal(t, saga.ErrCodePaymentDeclined, resp.FailureCode)
	assert.True(t, resp.Retryable)
	assert.Empty(t, resp.ConfirmationNumber)
}

func TestGetOrderStatusWithLedger(t *testing.T) {
	env := newServiceEnv(t)
	env.pay.FailNext(saga.ErrCodePaymentDeclined, "card declined")

	created, err := env.svc.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	status, err := env.svc.GetOrderStatus(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, saga.OrderStatusFailed.String(), status.Status)
	assert.Equal(t, saga.StatusCompensated.String(), status.ExecutionStatus)
	assert.Equal(t, steps.StepAuthorizePayment, status.FailedStep)
	require.Len(t, status.Steps, 2, "shipping never started, so it has no record")
	assert.Equal(t, saga.StepStatusCompensated.String(), status.Steps[0].Status)
	assert.Equal(t, saga.StepStatusFailed.String(), status.Steps[1].Status)
}

func TestGetOrderStatusUnknownOrder(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.svc.GetOrderStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, saga.ErrOrderNotFound)
}

func TestCheckRetryEligibilityNoExecution(t *testing.T) {
	env := newServiceEnv(t)
	require.NoError(t, env.orders.CreateOrder(context.Background(), &model.Order{
		ID:         "order-1",
		CustomerID: "cust-1",
		Items:      model.OrderItems{{SKU: "SKU-1", Quantity: 1}},
	}))

	elig, err := env.svc.CheckRetryEligibility(context.Background(), "order-1")
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	require.Len(t, elig.Blockers, 1)
	assert.Equal(t, "NO_EXECUTION", elig.Blockers[0].Code)
}

func TestRetryOrderUsesStoredOrder(t *testing.T) {
	env := newServiceEnv(t)
	env.pay.FailNext(saga.ErrCodePaymentDeclined, "card declined")

	created, err := env.svc.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)
	require.True(t, created.Retryable)

	resp, err := env.svc.RetryOrder(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, saga.OutcomeCompleted.String(), resp.Status)
	assert.Equal(t, []string{steps.StepReserveInventory}, resp.SkippedSteps,
		"the reservation is still within its TTL and is reused")
	assert.Equal(t, steps.StepAuthorizePayment, resp.ResumedFromStep)

	order, err := env.orders.GetOrderByID(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, saga.OrderStatusCompleted.String(), order.Status)
}

func TestRetryOrderUnknownOrder(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.svc.RetryOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, saga.ErrOrderNotFound)
}
