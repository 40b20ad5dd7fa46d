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
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	"github.com/innovationmech/ordersaga/pkg/saga"
)

type retryAttemptRepository struct {
	db *gorm.DB
}

// NewRetryAttemptRepository creates a gorm-backed saga.RetryAttemptRepository.
func NewRetryAttemptRepository(db *gorm.DB) saga.RetryAttemptRepository {
	return &retryAttemptRepository{db: db}
}

// CreateRetryAttempt persists a new retry attempt.
func (r *retryAttemptRepository) CreateRetryAttempt(ctx context.Context, attempt *saga.RetryAttempt) error {
	if err := r.db.WithContext(ctx).Create(model.NewRetryAttempt(attempt)).Error; err != nil {
		return fmt.Errorf("create retry attempt: %w", err)
	}
	return nil
}

// UpdateRetryAttempt persists changes to a retry attempt.
func (r *retryAttemptRepository) UpdateRetryAttempt(ctx context.Context, attempt *saga.RetryAttempt) error {
	if err := r.db.WithContext(ctx).Save(model.NewRetryAttempt(attempt)).Error; err != nil {
		return fmt.Errorf("update retry attempt %s: %w", attempt.ID, err)
	}
	return nil
}

// ListRetryAttempts returns the order's retry attempts ordered by creation
// time.
func (r *retryAttemptRepository) ListRetryAttempts(ctx context.Context, orderID string) ([]*saga.RetryAttempt, error) {
	var rows []model.RetryAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list retry attempts for order %s: %w", orderID, err)
	}

	out := make([]*saga.RetryAttempt, len(rows))
	for i := range rows {
		out[i] = rows[i].ToRetryAttempt()
	}
	return out, nil
}

// CountRetryAttemptsSince counts the order's retry attempts created at or
// after the cutoff.
func (r *retryAttemptRepository) CountRetryAttemptsSince(ctx context.Context, orderID string, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RetryAttempt{}).
		Where("order_id = ? AND created_at >= ?", orderID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count retry attempts for order %s: %w", orderID, err)
	}
	return int(count), nil
}
