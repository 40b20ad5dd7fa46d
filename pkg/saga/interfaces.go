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

package saga

import (
	"context"
	"time"
)

// Step is a single unit of work in a saga with a forward action and a
// compensating action. Implementations must be safe for reuse across
// executions; all per-execution state lives in the Context.
type Step interface {
	// Name returns the step's stable, unique name.
	Name() string

	// Order returns the step's position in the saga (0-based, contiguous).
	Order() int

	// Execute performs the forward action, reading inputs from and writing
	// outputs to sctx. A non-nil error signals an infrastructure or contract
	// failure; business failures are reported through the StepResult.
	Execute(ctx context.Context, sctx *Context) (StepResult, error)

	// Compensate reverses a previously successful Execute. It must be
	// idempotent: reversing an already-reversed resource reports success
	// with AlreadyCompensated set.
	Compensate(ctx context.Context, sctx *Context) (CompensationResult, error)

	// Compensatable reports whether the step has a meaningful compensation.
	// Non-compensatable steps are skipped (not failed) during compensation.
	Compensatable() bool
}

// ExecutionRepository persists saga executions.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	// GetLatestExecutionByOrder returns the most recently started execution
	// for the order, or ErrExecutionNotFound.
	GetLatestExecutionByOrder(ctx context.Context, orderID string) (*Execution, error)
	// UpdateExecution persists status/progress changes. Implementations must
	// reject updates to terminal executions with ErrExecutionTerminal.
	UpdateExecution(ctx context.Context, exec *Execution) error
}

// StepRecordRepository persists per-step outcomes.
type StepRecordRepository interface {
	CreateStepRecord(ctx context.Context, rec *StepRecord) error
	// UpdateStepRecord persists step status changes. Implementations must
	// reject updates to compensated records with ErrStepResultImmutable.
	UpdateStepRecord(ctx context.Context, rec *StepRecord) error
	// ListStepRecords returns the execution's step records ordered by
	// StepOrder ascending.
	ListStepRecords(ctx context.Context, executionID string) ([]*StepRecord, error)
}

// RetryAttemptRepository persists customer-initiated retry attempts.
type RetryAttemptRepository interface {
	CreateRetryAttempt(ctx context.Context, attempt *RetryAttempt) error
	UpdateRetryAttempt(ctx context.Context, attempt *RetryAttempt) error
	// ListRetryAttempts returns the order's retry attempts ordered by
	// CreatedAt ascending.
	ListRetryAttempts(ctx context.Context, orderID string) ([]*RetryAttempt, error)
	// CountRetryAttemptsSince returns the number of attempts for the order
	// created at or after the cutoff.
	CountRetryAttemptsSince(ctx context.Context, orderID string, since time.Time) (int, error)
}

// OrderLocker provides mutual exclusion per order so at most one saga
// execution (original or retry) runs for an order at a time.
type OrderLocker interface {
	// TryLock acquires the order's lock without blocking. It returns
	// ErrOrderLocked when another execution holds it. On success the
	// returned token must be passed to Unlock.
	TryLock(ctx context.Context, orderID string) (token string, err error)

	// Unlock releases the order's lock. The token must match the one
	// returned by TryLock; a stale token is a no-op.
	Unlock(ctx context.Context, orderID, token string) error
}

// EventRecorder observes saga lifecycle transitions. Recorders are
// best-effort: implementations must never block the saga for long and their
// errors are logged, not propagated.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event Event) error
}

// MetricsCollector observes saga outcomes for monitoring. Like EventRecorder
// it is a passive observer and must not fail the saga.
type MetricsCollector interface {
	SagaStarted(orderID string)
	SagaCompleted(orderID string, duration time.Duration)
	SagaFailed(orderID, stepName, code string)
	SagaCompensated(orderID string, partial bool)
	RetryInitiated(orderID string, attemptNumber int)
	CompensationStepFailed(orderID, stepName string)
}
