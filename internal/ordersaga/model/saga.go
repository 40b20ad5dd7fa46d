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

package model

import (
	"time"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// sagaStatusNames maps persisted status strings back to saga.Status values.
var sagaStatusNames = map[string]saga.Status{
	saga.StatusPending.String():              saga.StatusPending,
	saga.StatusProcessing.String():           saga.StatusProcessing,
	saga.StatusCompleted.String():            saga.StatusCompleted,
	saga.StatusCompensating.String():         saga.StatusCompensating,
	saga.StatusCompensated.String():          saga.StatusCompensated,
	saga.StatusPartiallyCompensated.String(): saga.StatusPartiallyCompensated,
}

// stepStatusNames maps persisted step status strings back to saga.StepStatus.
var stepStatusNames = map[string]saga.StepStatus{
	saga.StepStatusPending.String():      saga.StepStatusPending,
	saga.StepStatusInProgress.String():   saga.StepStatusInProgress,
	saga.StepStatusCompleted.String():    saga.StepStatusCompleted,
	saga.StepStatusFailed.String():       saga.StepStatusFailed,
	saga.StepStatusCompensating.String(): saga.StepStatusCompensating,
	saga.StepStatusCompensated.String():  saga.StepStatusCompensated,
	saga.StepStatusSkipped.String():      saga.StepStatusSkipped,
}

// SagaExecution is the persisted form of one saga attempt.
type SagaExecution struct {
	ID            string     `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID       string     `gorm:"type:char(36);not null;index" json:"order_id"`
	StepNames     []string   `gorm:"serializer:json;not null" json:"step_names"`
	CurrentStep   int        `gorm:"not null;default:0" json:"current_step"`
	Status        string     `gorm:"type:varchar(32);not null;index" json:"status"`
	StartedAt     time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedStep    string     `gorm:"type:varchar(64)" json:"failed_step,omitempty"`
	FailureCode   string     `gorm:"type:varchar(64)" json:"failure_code,omitempty"`
	FailureReason string     `gorm:"type:varchar(512)" json:"failure_reason,omitempty"`
}

// TableName returns the table name for the SagaExecution model.
func (SagaExecution) TableName() string {
	return "saga_executions"
}

// NewSagaExecution converts a saga.Execution into its persisted form.
func NewSagaExecution(exec *saga.Execution) *SagaExecution {
	return &SagaExecution{
		ID:            exec.ID,
		OrderID:       exec.OrderID,
		StepNames:     exec.StepNames,
		CurrentStep:   exec.CurrentStep,
		Status:        exec.Status.String(),
		StartedAt:     exec.StartedAt,
		CompletedAt:   exec.CompletedAt,
		FailedStep:    exec.FailedStep,
		FailureCode:   exec.FailureCode,
		FailureReason: exec.FailureReason,
	}
}

// ToExecution converts the persisted form back into a saga.Execution.
func (m *SagaExecution) ToExecution() *saga.Execution {
	return &saga.Execution{
		ID:            m.ID,
		OrderID:       m.OrderID,
		StepNames:     m.StepNames,
		CurrentStep:   m.CurrentStep,
		Status:        sagaStatusNames[m.Status],
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
		FailedStep:    m.FailedStep,
		FailureCode:   m.FailureCode,
		FailureReason: m.FailureReason,
	}
}

// SagaStepResult is the persisted outcome of one step within one execution.
type SagaStepResult struct {
	ID           string         `gorm:"type:char(36);primaryKey" json:"id"`
	ExecutionID  string         `gorm:"type:char(36);not null;index" json:"execution_id"`
	StepName     string         `gorm:"type:varchar(64);not null" json:"step_name"`
	StepOrder    int            `gorm:"not null" json:"step_order"`
	Status       string         `gorm:"type:varchar(32);not null" json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Data         map[string]any `gorm:"serializer:json" json:"data,omitempty"`
	ErrorCode    string         `gorm:"type:varchar(64)" json:"error_code,omitempty"`
	ErrorMessage string         `gorm:"type:varchar(512)" json:"error_message,omitempty"`
}

// TableName returns the table name for the SagaStepResult model.
func (SagaStepResult) TableName() string {
	return "saga_step_results"
}

// NewSagaStepResult converts a saga.StepRecord into its persisted form.
func NewSagaStepResult(rec *saga.StepRecord) *SagaStepResult {
	return &SagaStepResult{
		ID:           rec.ID,
		ExecutionID:  rec.ExecutionID,
		StepName:     rec.StepName,
		StepOrder:    rec.StepOrder,
		Status:       rec.Status.String(),
		StartedAt:    rec.StartedAt,
		CompletedAt:  rec.CompletedAt,
		Data:         rec.Data,
		ErrorCode:    rec.ErrorCode,
		ErrorMessage: rec.ErrorMessage,
	}
}

// ToStepRecord converts the persisted form back into a saga.StepRecord.
func (m *SagaStepResult) ToStepRecord() *saga.StepRecord {
	return &saga.StepRecord{
		ID:           m.ID,
		ExecutionID:  m.ExecutionID,
		StepName:     m.StepName,
		StepOrder:    m.StepOrder,
		Status:       stepStatusNames[m.Status],
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		Data:         m.Data,
		ErrorCode:    m.ErrorCode,
		ErrorMessage: m.ErrorMessage,
	}
}

// RetryAttempt is the persisted record of one customer-initiated retry.
type RetryAttempt struct {
	ID                  string    `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID             string    `gorm:"type:char(36);not null;index" json:"order_id"`
	OriginalExecutionID string    `gorm:"type:char(36);not null" json:"original_execution_id"`
	RetryExecutionID    string    `gorm:"type:char(36)" json:"retry_execution_id"`
	AttemptNumber       int       `gorm:"not null" json:"attempt_number"`
	ResumedFromStep     string    `gorm:"type:varchar(64)" json:"resumed_from_step"`
	SkippedSteps        []string  `gorm:"serializer:json" json:"skipped_steps,omitempty"`
	Outcome             string    `gorm:"type:varchar(32);not null" json:"outcome"`
	CreatedAt           time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName returns the table name for the RetryAttempt model.
func (RetryAttempt) TableName() string {
	return "retry_attempts"
}

// NewRetryAttempt converts a saga.RetryAttempt into its persisted form.
func NewRetryAttempt(attempt *saga.RetryAttempt) *RetryAttempt {
	return &RetryAttempt{
		ID:                  attempt.ID,
		OrderID:             attempt.OrderID,
		OriginalExecutionID: attempt.OriginalExecutionID,
		RetryExecutionID:    attempt.RetryExecutionID,
		AttemptNumber:       attempt.AttemptNumber,
		ResumedFromStep:     attempt.ResumedFromStep,
		SkippedSteps:        attempt.SkippedSteps,
		Outcome:             attempt.Outcome,
		CreatedAt:           attempt.CreatedAt,
	}
}

// ToRetryAttempt converts the persisted form back into a saga.RetryAttempt.
func (m *RetryAttempt) ToRetryAttempt() *saga.RetryAttempt {
	return &saga.RetryAttempt{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		OriginalExecutionID: m.OriginalExecutionID,
		RetryExecutionID:    m.RetryExecutionID,
		AttemptNumber:       m.AttemptNumber,
		ResumedFromStep:     m.ResumedFromStep,
		SkippedSteps:        m.SkippedSteps,
		Outcome:             m.Outcome,
		CreatedAt:           m.CreatedAt,
	}
}
