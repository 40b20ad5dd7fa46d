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

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/executor"
	"github.com/innovationmech/ordersaga/pkg/saga/orchestrator"
)

// Result describes a completed retry attempt.
type Result struct {
	Success         bool            `json:"success"`
	NewExecutionID  string          `json:"new_execution_id"`
	ResumedFromStep string          `json:"resumed_from_step"`
	SkippedSteps    []string        `json:"skipped_steps"`
	SagaResult      saga.SagaResult `json:"saga_result"`
}

// Orchestrator resumes failed sagas. It holds the per-order lock for the
// entire attempt (eligibility check, resume-point computation and the new
// execution) so two concurrent retries for one order cannot both proceed.
type Orchestrator struct {
	saga        *orchestrator.OrderSagaOrchestrator
	eligibility *EligibilityChecker
	validity    *StepValidityChecker
	records     saga.StepRecordRepository
	retries     saga.RetryAttemptRepository
	locker      saga.OrderLocker
	recorder    saga.EventRecorder
	metrics     saga.MetricsCollector
	logger      *zap.Logger
}

// NewOrchestrator creates a retry Orchestrator. recorder and metrics may be
// nil.
func NewOrchestrator(
	sagaOrch *orchestrator.OrderSagaOrchestrator,
	eligibility *EligibilityChecker,
	validity *StepValidityChecker,
	records saga.StepRecordRepository,
	retries saga.RetryAttemptRepository,
	locker saga.OrderLocker,
	recorder saga.EventRecorder,
	metrics saga.MetricsCollector,
) *Orchestrator {
	return &Orchestrator{
		saga:        sagaOrch,
		eligibility: eligibility,
		validity:    validity,
		records:     records,
		retries:     retries,
		locker:      locker,
		recorder:    recorder,
		metrics:     metrics,
		logger:      logger.GetLogger(),
	}
}

// CheckEligibility evaluates whether the order can be retried, without
// acquiring the lock or starting anything.
func (o *Orchestrator) CheckEligibility(ctx context.Context, orderID string) (Eligibility, error) {
	elig, _, err := o.eligibility.Check(ctx, orderID)
	return elig, err
}

// Retry resumes the order's failed saga. It returns saga.ErrOrderLocked when
// another execution holds the order, an *IneligibleError when policy rejects
// the retry, and otherwise the retry's outcome.
func (o *Orchestrator) Retry(ctx context.Context, order saga.OrderInfo) (*Result, error) {
	token, err := o.locker.TryLock(ctx, order.OrderID)
	if err != nil {
		if errors.Is(err, saga.ErrOrderLocked) {
			o.emitRejected(ctx, order.OrderID, "retry already in progress")
		}
		return nil, err
	}
	defer func() {
		if uerr := o.locker.Unlock(ctx, order.OrderID, token); uerr != nil {
			o.logger.Warn("failed to release order lock",
				zap.String("order_id", order.OrderID), zap.Error(uerr))
		}
	}()

	elig, original, err := o.eligibility.Check(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		o.emitRejected(ctx, order.OrderID, (&IneligibleError{Eligibility: elig}).Error())
		return nil, &IneligibleError{Eligibility: elig}
	}

	plan, err := o.buildResumePlan(ctx, original)
	if err != nil {
		return nil, err
	}

	attempts, err := o.retries.ListRetryAttempts(ctx, order.OrderID)
	if err != nil {
		return nil, fmt.Errorf("list retry attempts for order %s: %w", order.OrderID, err)
	}
	attempt := &saga.RetryAttempt{
		ID:                  uuid.New().String(),
		OrderID:             order.OrderID,
		OriginalExecutionID: original.ID,
		AttemptNumber:       len(attempts) + 1,
		ResumedFromStep:     plan.resumedFrom,
		SkippedSteps:        plan.skipped,
		Outcome:             "in_progress",
		CreatedAt:           time.Now(),
	}
	if err := o.retries.CreateRetryAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create retry attempt: %w", err)
	}

	if o.metrics != nil {
		o.metrics.RetryInitiated(order.OrderID, attempt.AttemptNumber)
	}
	o.emit(ctx, saga.EventRetryInitiated, order.OrderID, original.ID, plan.resumedFrom, "")
	o.logger.Info("retry initiated",
		zap.String("order_id", order.OrderID),
		zap.String("original_execution", original.ID),
		zap.Int("attempt", attempt.AttemptNumber),
		zap.String("resumed_from", plan.resumedFrom),
		zap.Strings("skipped", plan.skipped))

	result, err := o.saga.Resume(ctx, order, plan.skipFunc)
	if err != nil {
		attempt.Outcome = "aborted"
		if uerr := o.retries.UpdateRetryAttempt(ctx, attempt); uerr != nil {
			o.logger.Error("failed to record aborted retry attempt", zap.Error(uerr))
		}
		return nil, err
	}

	attempt.RetryExecutionID = result.ExecutionID
	attempt.Outcome = result.Outcome.String()
	if uerr := o.retries.UpdateRetryAttempt(ctx, attempt); uerr != nil {
		o.logger.Error("failed to close retry attempt", zap.Error(uerr))
	}
	o.emit(ctx, saga.EventRetryCompleted, order.OrderID, result.ExecutionID, plan.resumedFrom, "")

	return &Result{
		Success:         result.Completed(),
		NewExecutionID:  result.ExecutionID,
		ResumedFromStep: plan.resumedFrom,
		SkippedSteps:    plan.skipped,
		SagaResult:      result,
	}, nil
}

// resumePlan is the precomputed skip decision set for one retry attempt.
type resumePlan struct {
	skipFunc    executor.SkipFunc
	skipped     []string
	resumedFrom string
}

// buildResumePlan consults the validity checker over the original
// execution's step records. A step whose prior result is still valid is
// skipped and its recorded data flows into the new context; everything else,
// including steps the original attempt never reached, re-executes. The
// resume point is the first step that must run.
func (o *Orchestrator) buildResumePlan(ctx context.Context, original *saga.Execution) (*resumePlan, error) {
	records, err := o.records.ListStepRecords(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("list step records for execution %s: %w", original.ID, err)
	}

	byStep := make(map[string]*saga.StepRecord, len(records))
	for _, rec := range records {
		switch rec.Status {
		case saga.StepStatusCompleted, saga.StepStatusCompensated, saga.StepStatusSkipped:
			byStep[rec.StepName] = rec
		}
	}

	now := time.Now()
	decisions := make(map[string]executor.SkipDecision, len(original.StepNames))
	plan := &resumePlan{}
	for _, name := range original.StepNames {
		rec := byStep[name]
		if o.validity.StillValid(name, rec, now) {
			decisions[name] = executor.SkipDecision{Skip: true, Data: rec.Data}
			plan.skipped = append(plan.skipped, name)
			continue
		}
		if plan.resumedFrom == "" {
			plan.resumedFrom = name
		}
	}

	plan.skipFunc = func(step saga.Step) executor.SkipDecision {
		return decisions[step.Name()]
	}
	return plan, nil
}

func (o *Orchestrator) emit(ctx context.Context, typ saga.EventType, orderID, executionID, stepName, errMsg string) {
	if o.recorder == nil {
		return
	}
	event := saga.Event{
		ID:          uuid.New().String(),
		Type:        typ,
		OrderID:     orderID,
		ExecutionID: executionID,
		StepName:    stepName,
		Timestamp:   time.Now(),
		Error:       errMsg,
	}
	if err := o.recorder.RecordEvent(ctx, event); err != nil {
		o.logger.Warn("event recorder failed",
			zap.String("event_type", string(typ)), zap.Error(err))
	}
}

func (o *Orchestrator) emitRejected(ctx context.Context, orderID, reason string) {
	o.emit(ctx, saga.EventRetryRejected, orderID, "", "", reason)
}
