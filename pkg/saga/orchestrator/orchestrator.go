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

// Package orchestrator drives order sagas end to end: initialization,
// ordered step execution, finalization on success and reverse-order
// compensation on failure.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/executor"
	"github.com/innovationmech/ordersaga/pkg/saga/steps"
)

// OrderStateStore updates the business order record as the saga progresses.
// Implementations own the order table; the orchestrator owns the transitions.
type OrderStateStore interface {
	MarkProcessing(ctx context.Context, orderID string) error
	MarkCompleted(ctx context.Context, orderID, trackingNumber string) error
	MarkFailed(ctx context.Context, orderID string) error
}

// OrderSagaOrchestrator runs the order saga. It owns the per-order lock for
// fresh runs; resumed runs (retries) are started by the retry orchestrator,
// which already holds the lock.
type OrderSagaOrchestrator struct {
	executor    *executor.StepExecutor
	compensator *CompensationOrchestrator
	executions  saga.ExecutionRepository
	orders      OrderStateStore
	locker      saga.OrderLocker
	recorder    saga.EventRecorder
	metrics     saga.MetricsCollector
	logger      *zap.Logger
}

// NewOrderSagaOrchestrator creates an OrderSagaOrchestrator. recorder and
// metrics may be nil.
func NewOrderSagaOrchestrator(
	exec *executor.StepExecutor,
	compensator *CompensationOrchestrator,
	executions saga.ExecutionRepository,
	orders OrderStateStore,
	locker saga.OrderLocker,
	recorder saga.EventRecorder,
	metrics saga.MetricsCollector,
) *OrderSagaOrchestrator {
	return &OrderSagaOrchestrator{
		executor:    exec,
		compensator: compensator,
		executions:  executions,
		orders:      orders,
		locker:      locker,
		recorder:    recorder,
		metrics:     metrics,
		logger:      logger.GetLogger(),
	}
}

// Run drives a fresh saga for the order. It acquires the per-order lock for
// the duration of the run; a second concurrent run for the same order
// receives saga.ErrOrderLocked.
func (o *OrderSagaOrchestrator) Run(ctx context.Context, order saga.OrderInfo) (saga.SagaResult, error) {
	token, err := o.locker.TryLock(ctx, order.OrderID)
	if err != nil {
		return saga.SagaResult{}, err
	}
	defer func() {
		if uerr := o.locker.Unlock(ctx, order.OrderID, token); uerr != nil {
			o.logger.Warn("failed to release order lock",
				zap.String("order_id", order.OrderID), zap.Error(uerr))
		}
	}()

	return o.Resume(ctx, order, nil)
}

// Resume drives a saga for the order with an optional skip function that
// short-circuits steps whose prior results are still valid. The caller must
// already hold the order's lock; the retry orchestrator is the intended
// caller for non-nil skip.
func (o *OrderSagaOrchestrator) Resume(ctx context.Context, order saga.OrderInfo, skip executor.SkipFunc) (saga.SagaResult, error) {
	tracer := otel.Tracer("ordersaga")
	ctx, span := tracer.Start(ctx, "saga.run")
	span.SetAttributes(attribute.String("saga.order_id", order.OrderID))
	defer span.End()

	exec, sctx, err := o.initialize(ctx, order)
	if err != nil {
		return saga.SagaResult{}, err
	}
	span.SetAttributes(attribute.String("saga.execution_id", exec.ID))

	start := time.Now()
	if o.metrics != nil {
		o.metrics.SagaStarted(order.OrderID)
	}
	o.emit(ctx, saga.EventSagaStarted, exec, "", "")

	outcome, err := o.executor.Execute(ctx, sctx, exec, skip)
	if err != nil {
		// Persistence or a step contract broke mid-flight. Reverse whatever
		// completed so external resources are not leaked, then surface the
		// hard failure.
		o.logger.Error("saga execution aborted",
			zap.String("saga_id", exec.ID), zap.Error(err))
		o.failExecution(ctx, sctx, exec, saga.ErrCodeInternal, err.Error())
		return saga.SagaResult{}, fmt.Errorf("saga execution %s: %w", exec.ID, err)
	}

	if outcome.AllSucceeded {
		return o.finalize(ctx, sctx, exec, order, start, outcome)
	}
	return o.compensate(ctx, sctx, exec, order, outcome)
}

// initialize creates the execution record, marks the order processing, and
// seeds the saga context with the order projection.
func (o *OrderSagaOrchestrator) initialize(ctx context.Context, order saga.OrderInfo) (*saga.Execution, *saga.Context, error) {
	stepList := o.executor.Steps()
	names := make([]string, len(stepList))
	for i, s := range stepList {
		names[i] = s.Name()
	}

	exec := &saga.Execution{
		ID:        uuid.New().String(),
		OrderID:   order.OrderID,
		StepNames: names,
		Status:    saga.StatusProcessing,
		StartedAt: time.Now(),
	}
	if err := o.executions.CreateExecution(ctx, exec); err != nil {
		return nil, nil, fmt.Errorf("create saga execution: %w", err)
	}
	if err := o.orders.MarkProcessing(ctx, order.OrderID); err != nil {
		return nil, nil, fmt.Errorf("mark order processing: %w", err)
	}

	sctx := saga.NewContext(exec.ID, order.OrderID)
	saga.Put(sctx, steps.KeyOrder, order)

	o.logger.Info("saga execution started",
		zap.String("saga_id", exec.ID),
		zap.String("order_id", order.OrderID),
		zap.Strings("steps", names))
	return exec, sctx, nil
}

func (o *OrderSagaOrchestrator) finalize(ctx context.Context, sctx *saga.Context, exec *saga.Execution, order saga.OrderInfo, start time.Time, outcome saga.ExecutionOutcome) (saga.SagaResult, error) {
	now := time.Now()
	exec.Status = saga.StatusCompleted
	exec.CompletedAt = &now
	if err := o.executions.UpdateExecution(ctx, exec); err != nil {
		return saga.SagaResult{}, fmt.Errorf("finalize saga execution: %w", err)
	}

	tracking, _ := saga.Get(sctx, steps.KeyTrackingNumber)
	if err := o.orders.MarkCompleted(ctx, order.OrderID, tracking); err != nil {
		return saga.SagaResult{}, fmt.Errorf("mark order completed: %w", err)
	}

	if o.metrics != nil {
		o.metrics.SagaCompleted(order.OrderID, time.Since(start))
	}
	o.emit(ctx, saga.EventSagaCompleted, exec, "", "")
	o.logger.Info("saga execution completed",
		zap.String("saga_id", exec.ID),
		zap.String("order_id", order.OrderID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Strings("skipped_steps", outcome.SkippedSteps))

	return saga.SagaResult{Outcome: saga.OutcomeCompleted, ExecutionID: exec.ID}, nil
}

func (o *OrderSagaOrchestrator) compensate(ctx context.Context, sctx *saga.Context, exec *saga.Execution, order saga.OrderInfo, outcome saga.ExecutionOutcome) (saga.SagaResult, error) {
	exec.FailedStep = outcome.FailedStep
	exec.FailureCode = outcome.Failure.Code
	exec.FailureReason = outcome.Failure.Message
	exec.Status = saga.StatusCompensating
	if err := o.executions.UpdateExecution(ctx, exec); err != nil {
		return saga.SagaResult{}, fmt.Errorf("record saga failure: %w", err)
	}

	if o.metrics != nil {
		o.metrics.SagaFailed(order.OrderID, outcome.FailedStep, outcome.Failure.Code)
	}
	o.emit(ctx, saga.EventSagaFailed, exec, outcome.FailedStep, outcome.Failure.Message)

	summary, err := o.compensator.Compensate(ctx, sctx, exec, o.executor.Steps())
	if err != nil {
		return saga.SagaResult{}, fmt.Errorf("compensate saga execution %s: %w", exec.ID, err)
	}

	hadCompleted := len(sctx.CompletedSteps()) > 0
	now := time.Now()
	exec.CompletedAt = &now
	if summary.Partial() {
		exec.Status = saga.StatusPartiallyCompensated
	} else {
		exec.Status = saga.StatusCompensated
	}
	if uerr := o.executions.UpdateExecution(ctx, exec); uerr != nil {
		return saga.SagaResult{}, fmt.Errorf("finalize compensated execution: %w", uerr)
	}
	if uerr := o.orders.MarkFailed(ctx, order.OrderID); uerr != nil {
		return saga.SagaResult{}, fmt.Errorf("mark order failed: %w", uerr)
	}

	result := saga.SagaResult{
		ExecutionID:   exec.ID,
		FailedStep:    outcome.FailedStep,
		FailureCode:   outcome.Failure.Code,
		FailureReason: outcome.Failure.Message,
		Retryable:     outcome.Failure.Retryable,
		Compensation:  summary,
	}
	switch {
	case summary.Partial():
		result.Outcome = saga.OutcomePartiallyCompensated
		// Manual follow-up is required; automatic retry is never offered.
		result.Retryable = false
	case hadCompleted:
		result.Outcome = saga.OutcomeCompensated
	default:
		result.Outcome = saga.OutcomeFailed
	}

	o.logger.Warn("saga execution failed",
		zap.String("saga_id", exec.ID),
		zap.String("order_id", order.OrderID),
		zap.String("failed_step", outcome.FailedStep),
		zap.String("code", outcome.Failure.Code),
		zap.String("outcome", result.Outcome.String()))
	return result, nil
}

// failExecution is the infrastructure-failure path: compensate what
// completed and push the execution into a terminal compensated state.
func (o *OrderSagaOrchestrator) failExecution(ctx context.Context, sctx *saga.Context, exec *saga.Execution, code, message string) {
	stepName := ""
	if exec.CurrentStep >= 0 && exec.CurrentStep < len(exec.StepNames) {
		stepName = exec.StepNames[exec.CurrentStep]
	}
	outcome := saga.ExecutionFailed(stepName, exec.CurrentStep, saga.StepFailure(code, message, false), nil)
	order := saga.OrderInfo{OrderID: exec.OrderID}
	if info, ok := saga.Get(sctx, steps.KeyOrder); ok {
		order = info
	}
	if _, cerr := o.compensate(ctx, sctx, exec, order, outcome); cerr != nil {
		o.logger.Error("failed to compensate aborted execution",
			zap.String("saga_id", exec.ID), zap.Error(cerr))
	}
}

func (o *OrderSagaOrchestrator) emit(ctx context.Context, typ saga.EventType, exec *saga.Execution, stepName, errMsg string) {
	if o.recorder == nil {
		return
	}
	event := saga.Event{
		ID:          uuid.New().String(),
		Type:        typ,
		OrderID:     exec.OrderID,
		ExecutionID: exec.ID,
		StepName:    stepName,
		Timestamp:   time.Now(),
		Error:       errMsg,
	}
	if err := o.recorder.RecordEvent(ctx, event); err != nil {
		o.logger.Warn("event recorder failed",
			zap.String("event_type", string(typ)), zap.Error(err))
	}
}
