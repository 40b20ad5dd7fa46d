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
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
)

// CompensationOrchestrator reverses the completed steps of a failed
// execution in the exact reverse of their completion order. It is fail-open:
// a step whose reversal fails is recorded in the summary and never stops the
// remaining reversals.
type CompensationOrchestrator struct {
	records  saga.StepRecordRepository
	recorder saga.EventRecorder
	metrics  saga.MetricsCollector
	logger   *zap.Logger
}

// NewCompensationOrchestrator creates a CompensationOrchestrator. recorder
// and metrics may be nil.
func NewCompensationOrchestrator(records saga.StepRecordRepository, recorder saga.EventRecorder, metrics saga.MetricsCollector) *CompensationOrchestrator {
	return &CompensationOrchestrator{
		records:  records,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.GetLogger(),
	}
}

// Compensate reverses the context's completed steps using the given step
// set. It returns a summary of which steps were compensated, which failed to
// compensate, and which were skipped as non-compensatable. The returned
// error reports persistence problems only; compensation failures live in the
// summary.
func (c *CompensationOrchestrator) Compensate(ctx context.Context, sctx *saga.Context, exec *saga.Execution, steps []saga.Step) (saga.CompensationSummary, error) {
	tracer := otel.Tracer("ordersaga")
	ctx, span := tracer.Start(ctx, "saga.compensate")
	span.SetAttributes(
		attribute.String("saga.execution_id", exec.ID),
		attribute.String("saga.order_id", sctx.OrderID()),
	)
	defer span.End()

	byName := make(map[string]saga.Step, len(steps))
	for _, s := range steps {
		byName[s.Name()] = s
	}

	completed := sctx.CompletedSteps()
	c.emit(ctx, saga.EventCompensationStarted, sctx, exec, "", "")
	c.logger.Info("compensating saga execution",
		zap.String("saga_id", exec.ID),
		zap.String("order_id", sctx.OrderID()),
		zap.Strings("completed_steps", completed))

	var summary saga.CompensationSummary
	for i := len(completed) - 1; i >= 0; i-- {
		name := completed[i]
		step, ok := byName[name]
		if !ok {
			// A completed step with no registered counterpart is a contract
			// violation; record it as failed rather than losing the resource.
			c.logger.Error("no step registered for completed step name",
				zap.String("saga_id", exec.ID), zap.String("step", name))
			summary.Failed = append(summary.Failed, name)
			continue
		}
		if !step.Compensatable() {
			summary.Skipped = append(summary.Skipped, name)
			continue
		}

		c.compensateStep(ctx, sctx, exec, step, &summary)
	}

	c.emit(ctx, saga.EventCompensationCompleted, sctx, exec, "", "")
	if c.metrics != nil {
		c.metrics.SagaCompensated(sctx.OrderID(), summary.Partial())
	}
	span.SetAttributes(attribute.Bool("saga.compensation_partial", summary.Partial()))
	return summary, nil
}

func (c *CompensationOrchestrator) compensateStep(ctx context.Context, sctx *saga.Context, exec *saga.Execution, step saga.Step, summary *saga.CompensationSummary) {
	rec := c.findRecord(ctx, exec.ID, step.Name())
	if rec != nil {
		rec.Status = saga.StepStatusCompensating
		if err := c.records.UpdateStepRecord(ctx, rec); err != nil {
			c.logger.Error("failed to mark step compensating",
				zap.String("step", step.Name()), zap.Error(err))
		}
	}

	result, err := step.Compensate(ctx, sctx)
	if err != nil {
		result = saga.CompensationFailure(err.Error())
	}

	if result.Succeeded {
		if rec != nil {
			rec.Status = saga.StepStatusCompensated
			now := time.Now()
			rec.CompletedAt = &now
			if uerr := c.records.UpdateStepRecord(ctx, rec); uerr != nil {
				c.logger.Error("failed to mark step compensated",
					zap.String("step", step.Name()), zap.Error(uerr))
			}
		}
		summary.Compensated = append(summary.Compensated, step.Name())
		c.emit(ctx, saga.EventStepCompensated, sctx, exec, step.Name(), "")
		c.logger.Info("step compensated",
			zap.String("saga_id", exec.ID),
			zap.String("step", step.Name()),
			zap.Bool("already_compensated", result.AlreadyCompensated))
		return
	}

	if rec != nil {
		rec.ErrorMessage = result.Message
		if uerr := c.records.UpdateStepRecord(ctx, rec); uerr != nil {
			c.logger.Error("failed to record compensation failure",
				zap.String("step", step.Name()), zap.Error(uerr))
		}
	}
	summary.Failed = append(summary.Failed, step.Name())
	c.emit(ctx, saga.EventCompensationStepFailed, sctx, exec, step.Name(), result.Message)
	if c.metrics != nil {
		c.metrics.CompensationStepFailed(sctx.OrderID(), step.Name())
	}
	c.logger.Error("step compensation failed",
		zap.String("saga_id", exec.ID),
		zap.String("step", step.Name()),
		zap.String("reason", result.Message))
}

// findRecord locates the execution's most recent record for a step. The
// record may be missing when persistence failed earlier; compensation still
// proceeds so the external resource is not leaked.
func (c *CompensationOrchestrator) findRecord(ctx context.Context, executionID, stepName string) *saga.StepRecord {
	records, err := c.records.ListStepRecords(ctx, executionID)
	if err != nil {
		c.logger.Error("failed to list step records for compensation",
			zap.String("execution_id", executionID), zap.Error(err))
		return nil
	}
	for _, rec := range records {
		if rec.StepName == stepName {
			return rec
		}
	}
	return nil
}

func (c *CompensationOrchestrator) emit(ctx context.Context, typ saga.EventType, sctx *saga.Context, exec *saga.Execution, stepName, errMsg string) {
	if c.recorder == nil {
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
	if err := c.recorder.RecordEvent(ctx, event); err != nil {
		c.logger.Warn("event recorder failed",
			zap.String("event_type", string(typ)), zap.Error(err))
	}
}
