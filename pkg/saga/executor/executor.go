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

// Package executor drives an ordered list of saga steps, persisting each
// step's outcome before the next step begins and stopping at the first
// failure.
package executor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
)

// SkipDecision tells the executor what to do with a step before executing it.
// When Skip is true the step is not executed; Data (the output of the step's
// prior run) is restored into the saga context so later steps and
// compensation see it.
type SkipDecision struct {
	Skip bool
	Data map[string]any
}

// SkipFunc decides per step whether to skip execution. The zero decision
// (execute the step) is returned for nil SkipFunc.
type SkipFunc func(step saga.Step) SkipDecision

// StepExecutor runs steps in order with durable per-step bookkeeping. It is
// deliberately ignorant of compensation and retry policy; it only reports
// what happened through the ExecutionOutcome.
type StepExecutor struct {
	steps    []saga.Step
	records  saga.StepRecordRepository
	recorder saga.EventRecorder
	logger   *zap.Logger
}

// NewStepExecutor creates a StepExecutor over the given steps. Steps are
// sorted by Order; orders must be contiguous from zero and names unique, or
// ErrInvalidStepOrder is returned.
func NewStepExecutor(steps []saga.Step, records saga.StepRecordRepository, recorder saga.EventRecorder) (*StepExecutor, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps registered", saga.ErrInvalidStepOrder)
	}

	sorted := make([]saga.Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order() < sorted[j].Order() })

	names := make(map[string]bool, len(sorted))
	for i, s := range sorted {
		if s.Order() != i {
			return nil, fmt.Errorf("%w: step %q has order %d, want %d", saga.ErrInvalidStepOrder, s.Name(), s.Order(), i)
		}
		if names[s.Name()] {
			return nil, fmt.Errorf("%w: duplicate step name %q", saga.ErrInvalidStepOrder, s.Name())
		}
		names[s.Name()] = true
	}

	return &StepExecutor{
		steps:    sorted,
		records:  records,
		recorder: recorder,
		logger:   logger.GetLogger(),
	}, nil
}

// Steps returns the executor's steps in execution order.
func (e *StepExecutor) Steps() []saga.Step {
	out := make([]saga.Step, len(e.steps))
	copy(out, e.steps)
	return out
}

// Execute runs the steps in order for the given execution. Each step's record
// is persisted before the next step starts. The first failing step stops
// execution; the remaining steps are never attempted. A non-nil error means
// persistence or a step contract broke, not that a step's business action
// failed.
func (e *StepExecutor) Execute(ctx context.Context, sctx *saga.Context, exec *saga.Execution, skip SkipFunc) (saga.ExecutionOutcome, error) {
	var skipped []string

	for i, step := range e.steps {
		exec.CurrentStep = i

		if skip != nil {
			if d := skip(step); d.Skip {
				if err := e.recordSkipped(ctx, sctx, exec, step, d.Data); err != nil {
					return saga.ExecutionOutcome{}, err
				}
				skipped = append(skipped, step.Name())
				continue
			}
		}

		result, err := e.executeStep(ctx, sctx, exec, step)
		if err != nil {
			return saga.ExecutionOutcome{}, err
		}
		if !result.Succeeded() {
			return saga.ExecutionFailed(step.Name(), i, result, skipped), nil
		}
	}

	return saga.AllStepsSucceeded(skipped), nil
}

func (e *StepExecutor) executeStep(ctx context.Context, sctx *saga.Context, exec *saga.Execution, step saga.Step) (saga.StepResult, error) {
	now := time.Now()
	rec := &saga.StepRecord{
		ID:          uuid.New().String(),
		ExecutionID: exec.ID,
		StepName:    step.Name(),
		StepOrder:   step.Order(),
		Status:      saga.StepStatusInProgress,
		StartedAt:   &now,
	}
	if err := e.records.CreateStepRecord(ctx, rec); err != nil {
		return saga.StepResult{}, fmt.Errorf("create step record for %q: %w", step.Name(), err)
	}

	e.emit(ctx, saga.EventStepStarted, sctx, exec, step.Name(), "")
	e.logger.Info("executing saga step",
		zap.String("saga_id", exec.ID),
		zap.String("order_id", sctx.OrderID()),
		zap.String("step", step.Name()))

	result, err := step.Execute(ctx, sctx)
	done := time.Now()
	rec.CompletedAt = &done

	if err != nil {
		rec.Status = saga.StepStatusFailed
		rec.ErrorCode = saga.ErrCodeInternal
		rec.ErrorMessage = err.Error()
		if uerr := e.records.UpdateStepRecord(ctx, rec); uerr != nil {
			e.logger.Error("failed to persist step failure",
				zap.String("step", step.Name()), zap.Error(uerr))
		}
		e.emit(ctx, saga.EventStepFailed, sctx, exec, step.Name(), err.Error())
		return saga.StepResult{}, fmt.Errorf("step %q execution: %w", step.Name(), err)
	}

	if result.Succeeded() {
		rec.Status = saga.StepStatusCompleted
		rec.Data = result.Data
		if err := e.records.UpdateStepRecord(ctx, rec); err != nil {
			return saga.StepResult{}, fmt.Errorf("persist step result for %q: %w", step.Name(), err)
		}
		sctx.MarkStepCompleted(step.Name())
		e.emit(ctx, saga.EventStepCompleted, sctx, exec, step.Name(), "")
		e.logger.Info("saga step completed",
			zap.String("saga_id", exec.ID),
			zap.String("step", step.Name()))
		return result, nil
	}

	rec.Status = saga.StepStatusFailed
	rec.ErrorCode = result.Code
	rec.ErrorMessage = result.Message
	if err := e.records.UpdateStepRecord(ctx, rec); err != nil {
		return saga.StepResult{}, fmt.Errorf("persist step result for %q: %w", step.Name(), err)
	}
	e.emit(ctx, saga.EventStepFailed, sctx, exec, step.Name(), result.Message)
	e.logger.Warn("saga step failed",
		zap.String("saga_id", exec.ID),
		zap.String("step", step.Name()),
		zap.String("code", result.Code),
		zap.Bool("retryable", result.Retryable))
	return result, nil
}

// recordSkipped persists a skipped record and restores the prior run's data
// into the context. The step is marked completed so a later failure still
// compensates its live resource.
func (e *StepExecutor) recordSkipped(ctx context.Context, sctx *saga.Context, exec *saga.Execution, step saga.Step, data map[string]any) error {
	now := time.Now()
	rec := &saga.StepRecord{
		ID:          uuid.New().String(),
		ExecutionID: exec.ID,
		StepName:    step.Name(),
		StepOrder:   step.Order(),
		Status:      saga.StepStatusSkipped,
		StartedAt:   &now,
		CompletedAt: &now,
		Data:        data,
	}
	if err := e.records.CreateStepRecord(ctx, rec); err != nil {
		return fmt.Errorf("create skipped record for %q: %w", step.Name(), err)
	}

	if data != nil {
		sctx.Restore(data)
	}
	sctx.MarkStepCompleted(step.Name())

	e.emit(ctx, saga.EventStepSkipped, sctx, exec, step.Name(), "")
	e.logger.Info("saga step skipped, prior result still valid",
		zap.String("saga_id", exec.ID),
		zap.String("step", step.Name()))
	return nil
}

func (e *StepExecutor) emit(ctx context.Context, typ saga.EventType, sctx *saga.Context, exec *saga.Execution, stepName, errMsg string) {
	if e.recorder == nil {
		return
	}
	event := saga.Event{
		ID:          uuid.New().String(),
		Type:        typ,
		OrderID:     sctx.OrderID(),
		ExecutionID: exec.ID,
		StepName:    stepName,
		Timestamp:   time.Now(),
		Error:       errMsg,
	}
	if err := e.recorder.RecordEvent(ctx, event); err != nil {
		e.logger.Warn("event recorder failed",
			zap.String("event_type", string(typ)), zap.Error(err))
	}
}
