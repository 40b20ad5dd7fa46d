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

package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/executor"
	"github.com/innovationmech/ordersaga/pkg/saga/lock"
	"github.com/innovationmech/ordersaga/pkg/saga/steps"
	"github.com/innovationmech/ordersaga/pkg/saga/storage"
)

// fakeOrderStore tracks order status transitions in memory.
type fakeOrderStore struct {
	mu       sync.Mutex
	statuses map[string]string
	tracking map[string]string
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{statuses: make(map[string]string), tracking: make(map[string]string)}
}

func (f *fakeOrderStore) MarkProcessing(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderID] = saga.OrderStatusProcessing.String()
	return nil
}

func (f *fakeOrderStore) MarkCompleted(ctx context.Context, orderID, trackingNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderID] = saga.OrderStatusCompleted.String()
	f.tracking[orderID] = trackingNumber
	return nil
}

func (f *fakeOrderStore) MarkFailed(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderID] = saga.OrderStatusFailed.String()
	return nil
}

func (f *fakeOrderStore) status(orderID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[orderID]
}

// failingReleaseInventory wraps an inventory service so reservation release
// always fails, simulating an unreachable service during compensation.
type failingReleaseInventory struct {
	steps.InventoryService
}

func (f *failingReleaseInventory) ReleaseReservation(ctx context.Context, reservationID string) (*steps.ReleaseOutcome, error) {
	return nil, errors.New("inventory service unreachable")
}

type testEnv struct {
	store  *storage.MemoryStorage
	orders *fakeOrderStore
	inv    *steps.MemoryInventoryService
	pay    *steps.MemoryPaymentService
	shp    *steps.MemoryShippingService
	orch   *OrderSagaOrchestrator
}

func newTestEnv(t *testing.T, inventory steps.InventoryService) *testEnv {
	t.Helper()

	env := &testEnv{
		store:  storage.NewMemoryStorage(),
		orders: newFakeOrderStore(),
		inv:    steps.NewMemoryInventoryService(30 * time.Minute),
		pay:    steps.NewMemoryPaymentService(time.Hour),
		shp:    steps.NewMemoryShippingService(),
	}
	env.inv.SetStock("SKU-1", 100)
	if inventory == nil {
		inventory = env.inv
	}

	stepList := []saga.Step{
		steps.NewReserveInventoryStep(inventory),
		steps.NewAuthorizePaymentStep(env.pay),
		steps.NewArrangeShippingStep(env.shp),
	}
	exec, err := executor.NewStepExecutor(stepList, env.store, nil)
	require.NoError(t, err)

	compensator := NewCompensationOrchestrator(env.store, nil, nil)
	env.orch = NewOrderSagaOrchestrator(
		exec, compensator, env.store, env.orders, lock.NewMemoryLocker(), nil, nil)
	return env
}

func testOrder(id string) saga.OrderInfo {
	return saga.OrderInfo{
		OrderID:         id,
		CustomerID:      "cust-1",
		PaymentMethodID: "pm-1",
		ShippingAddress: "1 Main St",
		Items:           []saga.OrderItem{{SKU: "SKU-1", Quantity: 1}},
		Total:           19.99,
	}
}

func TestRunAllStepsSucceed(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := env.orch.Run(context.Background(), testOrder("order-1"))
	require.NoError(t, err)
	assert.Equal(t, saga.OutcomeCompleted, result.Outcome)
	assert.Empty(t, result.Compensation.Compensated, "a clean run makes zero compensation calls")
	assert.Equal(t, saga.OrderStatusCompleted.String(), env.orders.status("order-1"))

	exec, err := env.store.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusCompleted, exec.Status)
	assert.NotNil(t, exec.CompletedAt)
}

func TestRunPaymentDeclinedCompensatesInventory(t *testing.T) {
	env := newTestEnv(t, nil)
	env.pay.FailNext(saga.ErrCodePaymentDeclined, "card declined")

	result, err := env.orch.Run(context.Background(), testOrder("order-1"))
	require.NoError(t, err)
	assert.Equal(t, saga.OutcomeCompensated, result.Outcome)
	assert.Equal(t, steps.StepAuthorizePayment, result.FailedStep)
	assert.Equal(t, saga.ErrCodePaymentDeclined, result.FailureCode)
	assert.True(t, result.Retryable)
	assert.Equal(t, []string{steps.StepReserveInventory}, result.Compensation.Compensated)
	assert.Equal(t, saga.OrderStatusFailed.String(), env.orders.status("order-1"))

	exec, err := env.store.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusCompensated, exec.Status)
	assert.Equal(t, steps.StepAuthorizePayment, exec.FailedStep)
}

func TestRunShippingFailureCompensatesInReverseOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	env.shp.FailNext(saga.ErrCodeShippingUnavailable, "no carrier capacity")

	result, err := env.orch.Run(context.Background(), testOrder("order-1"))
	require.NoError(t, err)
	assert.Equal(t, saga.OutcomeCompensated, result.Outcome)
	assert.False(t, result.Retryable, "SHIPPING_UNAVAILABLE is not retryable")

	// Payment is reversed before inventory: exact reverse of completion.
	assert.Equal(t,
		[]string{steps.StepAuthorizePayment, steps.StepReserveInventory},
		result.Compensation.Compensated)
}

func TestRunFirstStepFailureNeedsNoCompensation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.inv.FailNext(saga.ErrCodeInsufficientStock, "out of stock")

	result, err := env.orch.Run(context.Background(), testOrder("order-1"))
	require.NoError(t, err)
	assert.Equal(t, saga.OutcomeFailed, result.Outcome)
	assert.Empty(t, result.Compensation.Compensated)
	assert.Empty(t, result.Compensation.Failed)
}

func TestRunPartialCompensation(t *testing.T) {
	inv := steps.NewMemoryInventoryService(30 * time.Minute)
	inv.SetStock("SKU-1", 100)
	env := newTestEnv(t, &failingReleaseInventory{InventoryService: inv})
	env.shp.FailNext(saga.ErrCodeShippingUnavailable, "no carrier capacity")

	result, err := env.orch.Run(context.Background(), testOrder("order-1"))
	require.NoError(t, err)
	assert.Equal(t, saga.OutcomePartiallyCompensated, result.Outcome)
	assert.False(t, result.Retryable, "partial compensation requires manual follow-up")

	// Payment was reversed, inventory was not; the summary says which.
	assert.Equal(t, []string{steps.StepAuthorizePayment}, result.Compensation.Compensated)
	assert.Equal(t, []string{steps.StepReserveInventory}, result.Compensation.Failed)

	exec, err := env.store.GetExecution(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusPartiallyCompensated, exec.Status)
}

func TestRunRejectsConcurrentExecutionForSameOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	locker := lock.NewMemoryLocker()
	env.orch.locker = locker

	_, err := locker.TryLock(context.Background(), "order-1")
	require.NoError(t, err)

	_, err = env.orch.Run(context.Background(), testOrder("order-1"))
	assert.ErrorIs(t, err, saga.ErrOrderLocked)
}

func TestCompensatedStepRecordIsImmutable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.pay.FailNext(saga.ErrCodePaymentDeclined, "card declined")

	result, err := env.orch.Run(context.Background(), testOrder("order-1"))
	require.NoError(t, err)

	records, err := env.store.ListStepRecords(context.Background(), result.ExecutionID)
	require.NoError(t, err)

	var compensated *saga.StepRecord
	for _, rec := range records {
		if rec.Status == saga.StepStatusCompensated {
			compensated = rec
		}
	}
	require.NotNil(t, compensated)

	compensated.ErrorMessage = "tampered"
	err = env.store.UpdateStepRecord(context.Background(), compensated)
	assert.ErrorIs(t, err, saga.ErrStepResultImmutable)
}
