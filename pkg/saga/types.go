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

// Package saga provides the core types and contracts for orchestrating a
// multi-step order transaction across independent external services, with
// compensation of completed steps on failure and resumable retries.
package saga

import (
	"time"
)

// Status represents the overall state of a saga execution.
type Status int

const (
	// StatusPending indicates the execution is created but not yet started.
	StatusPending Status = iota

	// StatusProcessing indicates the execution is currently running steps.
	StatusProcessing

	// StatusCompleted indicates all steps completed successfully.
	StatusCompleted

	// StatusCompensating indicates completed steps are being reversed.
	StatusCompensating

	// StatusCompensated indicates all completed steps were reversed.
	StatusCompensated

	// StatusPartiallyCompensated indicates at least one completed step could
	// not be reversed. This state requires operator intervention and is never
	// retried automatically.
	StatusPartiallyCompensated
)

// String returns the string representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusCompensating:
		return "compensating"
	case StatusCompensated:
		return "compensated"
	case StatusPartiallyCompensated:
		return "partially_compensated"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if no further transition is possible from the state.
// A terminal execution is immutable.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCompensated || s == StatusPartiallyCompensated
}

// StepStatus represents the execution state of an individual step within one
// execution.
type StepStatus int

const (
	// StepStatusPending indicates the step record was created but the step has
	// not started executing.
	StepStatusPending StepStatus = iota

	// StepStatusInProgress indicates the step is currently executing.
	StepStatusInProgress

	// StepStatusCompleted indicates the step completed successfully.
	StepStatusCompleted

	// StepStatusFailed indicates the step failed.
	StepStatusFailed

	// StepStatusCompensating indicates the step's compensation is executing.
	StepStatusCompensating

	// StepStatusCompensated indicates the step's compensation completed.
	// A compensated step result is immutable.
	StepStatusCompensated

	// StepStatusSkipped indicates the step was not executed because its prior
	// result was still valid (retry resume path).
	StepStatusSkipped
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	switch s {
	case StepStatusPending:
		return "pending"
	case StepStatusInProgress:
		return "in_progress"
	case StepStatusCompleted:
		return "completed"
	case StepStatusFailed:
		return "failed"
	case StepStatusCompensating:
		return "compensating"
	case StepStatusCompensated:
		return "compensated"
	case StepStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// OrderStatus represents the business status of the order being processed.
type OrderStatus int

const (
	// OrderStatusPending indicates the order was accepted but not processed.
	OrderStatusPending OrderStatus = iota

	// OrderStatusProcessing indicates a saga execution owns the order.
	OrderStatusProcessing

	// OrderStatusCompleted indicates the order transaction succeeded.
	OrderStatusCompleted

	// OrderStatusFailed indicates the last execution for the order failed and
	// was compensated (fully or partially).
	OrderStatusFailed
)

// String returns the string representation of the OrderStatus.
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusProcessing:
		return "processing"
	case OrderStatusCompleted:
		return "completed"
	case OrderStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Execution represents one attempt (original or retry) to run the saga for an
// order. An execution is immutable once its status is terminal; a retry always
// creates a new execution and never mutates the original.
type Execution struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	StepNames     []string   `json:"step_names"`
	CurrentStep   int        `json:"current_step"`
	Status        Status     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedStep    string     `json:"failed_step,omitempty"`
	FailureCode   string     `json:"failure_code,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// StepRecord is the durable outcome of one step within one execution. Records
// are persisted in increasing step order before the next step begins, so a
// crash mid-execution leaves an inspectable ledger of exactly which steps
// completed.
type StepRecord struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	StepName     string         `json:"step_name"`
	StepOrder    int            `json:"step_order"`
	Status       StepStatus     `json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// RetryAttempt records one customer-initiated retry, referencing both the
// original and the new execution.
type RetryAttempt struct {
	ID                  string    `json:"id"`
	OrderID             string    `json:"order_id"`
	OriginalExecutionID string    `json:"original_execution_id"`
	RetryExecutionID    string    `json:"retry_execution_id"`
	AttemptNumber       int       `json:"attempt_number"`
	ResumedFromStep     string    `json:"resumed_from_step"`
	SkippedSteps        []string  `json:"skipped_steps,omitempty"`
	Outcome             string    `json:"outcome"`
	CreatedAt           time.Time `json:"created_at"`
}

// OrderInfo carries the order attributes the saga needs to build step
// requests. It is a read-only projection of the order record.
type OrderInfo struct {
	OrderID         string      `json:"order_id"`
	CustomerID      string      `json:"customer_id"`
	PaymentMethodID string      `json:"payment_method_id"`
	ShippingAddress string      `json:"shipping_address"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
}

// OrderItem is a single line item on an order.
type OrderItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// stepResultOutcome tags the StepResult variant.
type stepResultOutcome int

const (
	stepResultSuccess stepResultOutcome = iota
	stepResultFailure
)

// StepResult is the sealed outcome of a step execution: either success with
// data produced by the step, or a typed failure. Construct values only through
// StepSuccess and StepFailure.
type StepResult struct {
	outcome   stepResultOutcome
	Data      map[string]any
	Code      string
	Message   string
	Retryable bool
}

// StepSuccess returns a successful StepResult carrying the data the step
// produced (identifiers needed for compensation and for later steps).
func StepSuccess(data map[string]any) StepResult {
	return StepResult{outcome: stepResultSuccess, Data: data}
}

// StepFailure returns a failed StepResult with a stable error code, a
// human-readable message, and a retryability flag.
func StepFailure(code, message string, retryable bool) StepResult {
	return StepResult{outcome: stepResultFailure, Code: code, Message: message, Retryable: retryable}
}

// Succeeded reports whether the result is the success variant.
func (r StepResult) Succeeded() bool {
	return r.outcome == stepResultSuccess
}

// CompensationResult is the sealed outcome of one step compensation.
// AlreadyCompensated reports that the underlying resource was found already
// released/voided/cancelled, which counts as success.
type CompensationResult struct {
	Succeeded          bool
	AlreadyCompensated bool
	Message            string
}

// CompensationSuccess returns a successful CompensationResult.
func CompensationSuccess(alreadyCompensated bool) CompensationResult {
	return CompensationResult{Succeeded: true, AlreadyCompensated: alreadyCompensated}
}

// CompensationFailure returns a failed CompensationResult.
func CompensationFailure(message string) CompensationResult {
	return CompensationResult{Succeeded: false, Message: message}
}

// ExecutionOutcome is the sealed result of driving a step list: either all
// steps succeeded, or execution stopped at the first failing step.
type ExecutionOutcome struct {
	AllSucceeded bool
	FailedStep   string
	FailedIndex  int
	Failure      StepResult
	SkippedSteps []string
}

// AllStepsSucceeded returns the success variant of ExecutionOutcome.
func AllStepsSucceeded(skipped []string) ExecutionOutcome {
	return ExecutionOutcome{AllSucceeded: true, FailedIndex: -1, SkippedSteps: skipped}
}

// ExecutionFailed returns the failure variant of ExecutionOutcome.
func ExecutionFailed(stepName string, index int, failure StepResult, skipped []string) ExecutionOutcome {
	return ExecutionOutcome{
		AllSucceeded: false,
		FailedStep:   stepName,
		FailedIndex:  index,
		Failure:      failure,
		SkippedSteps: skipped,
	}
}

// CompensationSummary aggregates the outcome of reversing an execution's
// completed steps. Compensation is fail-open: a failed reversal never stops
// the remaining reversals, it only degrades the summary.
type CompensationSummary struct {
	Compensated []string `json:"compensated"`
	Failed      []string `json:"failed"`
	Skipped     []string `json:"skipped"`
}

// Partial reports whether at least one reversal failed.
func (s CompensationSummary) Partial() bool {
	return len(s.Failed) > 0
}

// SagaOutcome enumerates the well-defined terminal outcomes a caller can
// receive for a saga execution.
type SagaOutcome int

const (
	// OutcomeCompleted indicates all steps succeeded.
	OutcomeCompleted SagaOutcome = iota

	// OutcomeCompensated indicates a step failed and all prior completed
	// steps were reversed.
	OutcomeCompensated

	// OutcomeFailed indicates the first step failed, so nothing needed to be
	// reversed.
	OutcomeFailed

	// OutcomePartiallyCompensated indicates a step failed and at least one
	// reversal also failed; manual follow-up is required.
	OutcomePartiallyCompensated
)

// String returns the string representation of the SagaOutcome.
func (o SagaOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCompensated:
		return "compensated"
	case OutcomeFailed:
		return "failed"
	case OutcomePartiallyCompensated:
		return "partially_compensated"
	default:
		return "unknown"
	}
}

// SagaResult is what the orchestrator returns to the caller: one of the four
// terminal outcomes plus the failure detail when the saga did not complete.
type SagaResult struct {
	Outcome       SagaOutcome         `json:"outcome"`
	ExecutionID   string              `json:"execution_id"`
	FailedStep    string              `json:"failed_step,omitempty"`
	FailureCode   string              `json:"failure_code,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty"`
	Retryable     bool                `json:"retryable"`
	Compensation  CompensationSummary `json:"compensation"`
}

// Completed reports whether the saga reached OutcomeCompleted.
func (r SagaResult) Completed() bool {
	return r.Outcome == OutcomeCompleted
}

// EventType identifies a saga lifecycle transition observed by recorders.
type EventType string

const (
	// Saga lifecycle events
	EventSagaStarted     EventType = "saga.started"
	EventSagaCompleted   EventType = "saga.completed"
	EventSagaFailed      EventType = "saga.failed"
	EventStepStarted     EventType = "saga.step.started"
	EventStepCompleted   EventType = "saga.step.completed"
	EventStepFailed      EventType = "saga.step.failed"
	EventStepSkipped     EventType = "saga.step.skipped"
	EventStepCompensated EventType = "saga.step.compensated"

	// Compensation events
	EventCompensationStarted    EventType = "compensation.started"
	EventCompensationCompleted  EventType = "compensation.completed"
	EventCompensationStepFailed EventType = "compensation.step.failed"

	// Retry events
	EventRetryInitiated EventType = "retry.initiated"
	EventRetryCompleted EventType = "retry.completed"
	EventRetryRejected  EventType = "retry.rejected"
)

// Event is a lifecycle notification emitted at every state transition. Events
// are a best-effort side channel: failure to record one never aborts the saga.
type Event struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	OrderID     string         `json:"order_id"`
	ExecutionID string         `json:"execution_id,omitempty"`
	StepName    string         `json:"step_name,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Error       string         `json:"error,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}
