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

type stepResultRepository struct {
	db *gorm.DB
}

// NewStepResultRepository creates a gorm-backed saga.StepRecordRepository.
func NewStepResultRepository(db *gorm.DB) saga.StepRecordRepository {
	return &stepResultRepository{db: db}
}

// CreateStepRecord persists a new step result.
func (r *stepResultRepository) CreateStepRecord(ctx context.Context, rec *saga.StepRecord) error {
	if err := r.db.WithContext(ctx).Create(model.NewSagaStepResult(rec)).Error; err != nil {
		return fmt.Errorf("create step result: %w", err)
	}
	return nil
}

// UpdateStepRecord persists changes to a step result. Compensated results
// are immutable.
func (r *stepResultRepository) UpdateStepRecord(ctx context.Context, rec *saga.StepRecord) error {
	var current model.SagaStepResult
	if err := r.db.WithContext(ctx).First(&current, "id = ?", rec.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("step result %s not found", rec.ID)
		}
		return fmt.Errorf("get step result %s: %w", rec.ID, err)
	}
	if current.Status == saga.StepStatusCompensated.String() {
		return saga.ErrStepResultImmutable
	}
	if err := r.db.WithContext(ctx).Save(model.NewSagaStepResult(rec)).Error; err != nil {
		return fmt.Errorf("update step result %s: %w", rec.ID, err)
	}
	return nil
}

// ListStepRecords returns the execution's step results ordered by step
// order.
func (r *stepResultRepository) ListStepRecords(ctx context.Context, executionID string) ([]*saga.StepRecord, error) {
	var rows []model.SagaStepResult
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("step_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list step results for execution %s: %w", executionID, err)
	}

	out := make([]*saga.StepRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToStepRecord()
	}
	return out, nil
}
