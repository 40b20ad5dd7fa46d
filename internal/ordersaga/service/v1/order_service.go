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

// Package v1 implements the order service: it assembles the saga engine
// (steps, executor, orchestrators) over the configured repositories and
// exposes the operations the HTTP layer calls.
package v1

import (
	"context"
	"errors"
	"fmt"

	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	"github.com/innovationmech/ordersaga/internal/ordersaga/repository"
	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/executor"
	"github.com/innovationmech/ordersaga/pkg/saga/orchestrator"
	"github.com/innovationmech/ordersaga/pkg/saga/retry"
	"github.com/innovationmech/ordersaga/pkg/saga/steps"
)

// OrderService defines the interface for order saga operations.
type OrderService interface {
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResponse, error)
	GetOrderStatus(ctx context.Context, orderID string) (*model.OrderStatusResponse, error)
	CheckRetryEligibility(ctx context.Context, orderID string) (*retry.Eligibility, error)
	RetryOrder(ctx context.Context, orderID string) (*model.RetryOrderResponse, error)
}

// Config carries the dependencies the order service is assembled from.
type Config struct {
	Orders        repository.OrderRepository
	Executions    saga.ExecutionRepository
	StepRecords   saga.StepRecordRepository
	RetryAttempts saga.RetryAttemptRepository
	Inventory     steps.InventoryService
	Payment       steps.PaymentService
	Shipping      steps.ShippingService
	Locker        saga.OrderLocker
	Recorder      saga.EventRecorder
	Metrics       saga.MetricsCollector
	RetryPolicy   retry.Policy
	Validity      *retry.StepValidityChecker
}

type orderService struct {
	orders    repository.OrderRepository
	execs     saga.ExecutionRepository
	records   saga.StepRecordRepository
	sagaOrch  *orchestrator.OrderSagaOrchestrator
	retryOrch *retry.Orchestrator
}

// NewOrderService assembles the saga engine and returns the service.
func NewOrderService(cfg Config) (OrderService, error) {
	stepList := []saga.Step{
		steps.NewReserveInventoryStep(cfg.Inventory),
		steps.NewAuthorizePaymentStep(cfg.Payment),
		steps.NewArrangeShippingStep(cfg.Shipping),
	}
	exec, err := executor.NewStepExecutor(stepList, cfg.StepRecords, cfg.Recorder)
	if err != nil {
		return nil, fmt.Errorf("assemble step executor: %w", err)
	}

	compensator := orchestrator.NewCompensationOrchestrator(cfg.StepRecords, cfg.Recorder, cfg.Metrics)
	sagaOrch := orchestrator.NewOrderSagaOrchestrator(
		exec, compensator, cfg.Executions, cfg.Orders, cfg.Locker, cfg.Recorder, cfg.Metrics)

	validity := cfg.Validity
	if validity == nil {
		validity = retry.NewDefaultValidityChecker()
	}
	eligibility := retry.NewEligibilityChecker(cfg.Executions, cfg.RetryAttempts, cfg.RetryPolicy)
	retryOrch := retry.NewOrchestrator(
		sagaOrch, eligibility, validity, cfg.StepRecords, cfg.RetryAttempts,
		cfg.Locker, cfg.Recorder, cfg.Metrics)

	return &orderService{
		orders:    cfg.Orders,
		execs:     cfg.Executions,
		records:   cfg.StepRecords,
		sagaOrch:  sagaOrch,
		retryOrch: retryOrch,
	}, nil
}

// CreateOrder persists the order and runs a fresh saga for it synchronously.
func (s *orderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResponse, error) {
	items := make(model.OrderItems, len(req.Items))
	for i, it := range req.Items {
		items[i] = saga.OrderItem{SKU: it.SKU, Quantity: it.Quantity}
	}
	order := &model.Order{
		CustomerID:      req.CustomerID,
		Items:           items,
		Total:           req.Total,
		PaymentMethodID: req.PaymentMethodID,
		ShippingAddress: req.ShippingAddress,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	result, err := s.sagaOrch.Run(ctx, order.ToOrderInfo())
	if err != nil {
		return nil, err
	}

	// Reload for the status and confirmation number the saga wrote.
	stored, err := s.orders.GetOrderByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	resp := &model.CreateOrderResponse{
		OrderID:            stored.ID,
		Status:             stored.Status,
		ConfirmationNumber: stored.ConfirmationNumber,
		Retryable:          result.Retryable,
	}
	if !result.Completed() {
		resp.FailedStep = result.FailedStep
		resp.FailureCode = result.FailureCode
		resp.FailureReason = result.FailureReason
	}
	return resp, nil
}

// GetOrderStatus returns the order's status with the latest execution's
// per-step ledger.
func (s *orderService) GetOrderStatus(ctx context.Context, orderID string) (*model.OrderStatusResponse, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	resp := &model.OrderStatusResponse{
		OrderID: order.ID,
		Status:  order.Status,
	}

	exec, err := s.execs.GetLatestExecutionByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, saga.ErrExecutionNotFound) {
			return resp, nil
		}
		return nil, err
	}
	resp.ExecutionID = exec.ID
	resp.ExecutionStatus = exec.Status.String()
	resp.FailedStep = exec.FailedStep
	resp.FailureCode = exec.FailureCode
	if exec.CurrentStep >= 0 && exec.CurrentStep < len(exec.StepNames) {
		resp.CurrentStep = exec.StepNames[exec.CurrentStep]
	}

	records, err := s.records.ListStepRecords(ctx, exec.ID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		resp.Steps = append(resp.Steps, model.StepStatusDetail{
			StepName:     rec.StepName,
			StepOrder:    rec.StepOrder,
			Status:       rec.Status.String(),
			StartedAt:    rec.StartedAt,
			CompletedAt:  rec.CompletedAt,
			ErrorCode:    rec.ErrorCode,
			ErrorMessage: rec.ErrorMessage,
		})
	}
	return resp, nil
}

// CheckRetryEligibility answers whether the order can be retried. An order
// with no execution yet is reported as ineligible, not as an error.
func (s *orderService) CheckRetryEligibility(ctx context.Context, orderID string) (*retry.Eligibility, error) {
	if _, err := s.orders.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}

	elig, err := s.retryOrch.CheckEligibility(ctx, orderID)
	if err != nil {
		if errors.Is(err, saga.ErrExecutionNotFound) {
			return &retry.Eligibility{
				Eligible: false,
				Blockers: []retry.Blocker{{
					Code:   "NO_EXECUTION",
					Reason: "no saga execution exists for this order yet",
				}},
			}, nil
		}
		return nil, err
	}
	return &elig, nil
}

// RetryOrder resumes the order's failed saga using the order's current
// payment method and shipping address, so customer fixes take effect.
func (s *orderService) RetryOrder(ctx context.Context, orderID string) (*model.RetryOrderResponse, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	res, err := s.retryOrch.Retry(ctx, order.ToOrderInfo())
	if err != nil {
		return nil, err
	}

	resp := &model.RetryOrderResponse{
		Success:         res.Success,
		NewExecutionID:  res.NewExecutionID,
		ResumedFromStep: res.ResumedFromStep,
		SkippedSteps:    res.SkippedSteps,
		Status:          res.SagaResult.Outcome.String(),
	}
	if resp.SkippedSteps == nil {
		resp.SkippedSteps = []string{}
	}
	if !res.Success {
		resp.FailureCode = res.SagaResult.FailureCode
		resp.FailureReason = res.SagaResult.FailureReason
	}
	return resp, nil
}
