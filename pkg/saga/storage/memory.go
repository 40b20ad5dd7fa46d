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

// Package storage provides an in-memory implementation of the saga
// persistence contracts, used in development wiring and tests.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// MemoryStorage implements saga.ExecutionRepository,
// saga.StepRecordRepository and saga.RetryAttemptRepository with
// RWMutex-guarded maps. All reads and writes deep-copy records so callers
// never share state with the store.
type MemoryStorage struct {
	mu         sync.RWMutex
	executions map[string]*saga.Execution
	steps      map[string][]*saga.StepRecord // keyed by execution ID
	retries    map[string][]*saga.RetryAttempt
	closed     bool
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		executions: make(map[string]*saga.Execution),
		steps:      make(map[string][]*saga.StepRecord),
		retries:    make(map[string][]*saga.RetryAttempt),
	}
}

// Close marks the storage closed. Later operations fail with
// saga.ErrStorageClosed.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStorage) checkClosed() error {
	if m.closed {
		return saga.ErrStorageClosed
	}
	return nil
}

// CreateExecution implements saga.ExecutionRepository.
func (m *MemoryStorage) CreateExecution(ctx context.Context, exec *saga.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkClosed(); err != nil {
		return err
	}
	if _, exists := m.executions[exec.ID]; exists {
		return fmt.Errorf("execution %s already exists", exec.ID)
	}
	m.executions[exec.ID] = copyExecution(exec)
	return nil
}

// GetExecution implements saga.ExecutionRepository.
func (m *MemoryStorage) GetExecution(ctx context.Context, id string) (*saga.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkClosed(); err != nil {
		return nil, err
	}
	exec, ok := m.executions[id]
	if !ok {
		return nil, saga.ErrExecutionNotFound
	}
	return copyExecution(exec), nil
}

// GetLatestExecutionByOrder implements saga.ExecutionRepository.
func (m *MemoryStorage) GetLatestExecutionByOrder(ctx context.Context, orderID string) (*saga.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkClosed(); err != nil {
		return nil, err
	}

	var latest *saga.Execution
	for _, exec := range m.executions {
		if exec.OrderID != orderID {
			continue
		}
		if latest == nil || exec.StartedAt.After(latest.StartedAt) {
			latest = exec
		}
	}
	if latest == nil {
		return nil, saga.ErrExecutionNotFound
	}
	return copyExecution(latest), nil
}

// UpdateExecution implements saga.ExecutionRepository. Terminal executions
// are immutable.
func (m *MemoryStorage) UpdateExecution(ctx context.Context, exec *saga.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkClosed(); err != nil {
		return err
	}
	current, ok := m.executions[exec.ID]
	if !ok {
		return saga.ErrExecutionNotFound
	}
	if current.Status.IsTerminal() {
		return saga.ErrExecutionTerminal
	}
	m.executions[exec.ID] = copyExecution(exec)
	return nil
}

// CreateStepRecord implements saga.StepRecordRepository.
func (m *MemoryStorage) CreateStepRecord(ctx context.Context, rec *saga.StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkClosed(); err != nil {
		return err
	}
	m.steps[rec.ExecutionID] = append(m.steps[rec.ExecutionID], copyStepRecord(rec))
	return nil
}

// UpdateStepRecord implements saga.StepRecordRepository. Compensated records
// are immutable.
func (m *MemoryStorage) UpdateStepRecord(ctx context.Context, rec *saga.StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkClosed(); err != nil {
		return err
	}
	records := m.steps[rec.ExecutionID]
	for i, r := range records {
		if r.ID != rec.ID {
			continue
		}
		if r.Status == saga.StepStatusCompensated {
			return saga.ErrStepResultImmutable
		}
		records[i] = copyStepRecord(rec)
		return nil
	}
	return fmt.Errorf("step record %s not found", rec.ID)
}

// ListStepRecords implements saga.StepRecordRepository, ordered by StepOrder.
func (m *MemoryStorage) ListStepRecords(ctx context.Context, executionID string) ([]*saga.StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkClosed(); err != nil {
		return nil, err
	}

	records := m.steps[executionID]
	out := make([]*saga.StepRecord, 0, len(records))
	for _, r := range records {
		out = append(out, copyStepRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

// CreateRetryAttempt implements saga.RetryAttemptRepository.
func (m *MemoryStorage) CreateRetryAttempt(ctx context.Context, attempt *saga.RetryAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkClosed(); err != nil {
		return err
	}
	m.retries[attempt.OrderID] = append(m.retries[attempt.OrderID], copyRetryAttempt(attempt))
	return nil
}

// UpdateRetryAttempt implements saga.RetryAttemptRepository.
func (m *MemoryStorage) UpdateRetryAttempt(ctx context.Context, attempt *saga.RetryAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkClosed(); err != nil {
		return err
	}
	attempts := m.retries[attempt.OrderID]
	for i, a := range attempts {
		if a.ID == attempt.ID {
			attempts[i] = copyRetryAttempt(attempt)
			return nil
		}
	}
	return fmt.Errorf("retry attempt %s not found", attempt.ID)
}

// ListRetryAttempts implements saga.RetryAttemptRepository, ordered by
// CreatedAt.
func (m *MemoryStorage) ListRetryAttempts(ctx context.Context, orderID string) ([]*saga.RetryAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkClosed(); err != nil {
		return nil, err
	}

	attempts := m.retries[orderID]
	out := make([]*saga.RetryAttempt, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, copyRetryAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CountRetryAttemptsSince implements saga.RetryAttemptRepository.
func (m *MemoryStorage) CountRetryAttemptsSince(ctx context.Context, orderID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkClosed(); err != nil {
		return 0, err
	}

	count := 0
	for _, a := range m.retries[orderID] {
		if !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func copyExecution(exec *saga.Execution) *saga.Execution {
	out := *exec
	out.StepNames = append([]string(nil), exec.StepNames...)
	if exec.CompletedAt != nil {
		t := *exec.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func copyStepRecord(rec *saga.StepRecord) *saga.StepRecord {
	out := *rec
	if rec.StartedAt != nil {
		t := *rec.StartedAt
		out.StartedAt = &t
	}
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		out.CompletedAt = &t
	}
	if rec.Data != nil {
		out.Data = make(map[string]any, len(rec.Data))
		for k, v := range rec.Data {
			out.Data[k] = v
		}
	}
	return &out
}

func copyRetryAttempt(attempt *saga.RetryAttempt) *saga.RetryAttempt {
	out := *attempt
	out.SkippedSteps = append([]string(nil), attempt.SkippedSteps...)
	return &out
}
