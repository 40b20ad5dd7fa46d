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

package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	"github.com/innovationmech/ordersaga/pkg/saga"
)

type executionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository creates a gorm-backed saga.ExecutionRepository.
func NewExecutionRepository(db *gorm.DB) saga.ExecutionRepository {
	return &executionRepository{db: db}
}

// CreateExecution persists a new saga execution.
func (r *executionRepository) CreateExecution(ctx context.Context, exec *saga.Execution) error {
	if err := r.db.WithContext(ctx).Create(model.NewSagaExecution(exec)).Error; err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by its identifier.
func (r *executionRepository) GetExecution(ctx context.Context, id string) (*saga.Execution, error) {
	var m model.SagaExecution
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, saga.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("get execution %s: %w", id, err)
	}
	return m.ToExecution(), nil
}

// GetLatestExecutionByOrder retrieves the most recently started execution
// for the order.
func (r *executionRepository) GetLatestExecutionByOrder(ctx context.Context, orderID string) (*saga.Execution, error) {
	var m model.SagaExecution
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("started_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, saga.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("get latest execution for order %s: %w", orderID, err)
	}
	return m.ToExecution(), nil
}

// UpdateExecution persists changes to an execution. Terminal executions are
// immutable.
func (r *executionRepository) UpdateExecution(ctx context.Context, exec *saga.Execution) error {
	current, err := r.GetExecution(ctx, exec.ID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return saga.ErrExecutionTerminal
	}
	if err := r.db.WithContext(ctx).Save(model.NewSagaExecution(exec)).Error; err != nil {
		return fmt.Errorf("update execution %s: %w", exec.ID, err)
	}
	return nil
}
