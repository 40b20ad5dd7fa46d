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

// Package repository provides the gorm-backed persistence layer for orders
// and saga records.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	"github.com/innovationmech/ordersaga/pkg/saga"
)

// OrderRepository defines the interface for order data access. It also
// satisfies the orchestrator's order state store contract.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	MarkProcessing(ctx context.Context, orderID string) error
	MarkCompleted(ctx context.Context, orderID, trackingNumber string) error
	MarkFailed(ctx context.Context, orderID string) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateOrder creates a new order in PENDING status.
func (r *orderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	if order.Status == "" {
		order.Status = saga.OrderStatusPending.String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// GetOrderByID retrieves an order by its identifier.
func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, saga.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &order, nil
}

// MarkProcessing transitions the order to PROCESSING.
func (r *orderRepository) MarkProcessing(ctx context.Context, orderID string) error {
	return r.updateStatus(ctx, orderID, map[string]any{
		"status": saga.OrderStatusProcessing.String(),
	})
}

// MarkCompleted transitions the order to COMPLETED, recording the tracking
// number and a confirmation number.
func (r *orderRepository) MarkCompleted(ctx context.Context, orderID, trackingNumber string) error {
	confirmation := "ORD-" + strings.ToUpper(uuid.New().String()[:8])
	return r.updateStatus(ctx, orderID, map[string]any{
		"status":              saga.OrderStatusCompleted.String(),
		"tracking_number":     trackingNumber,
		"confirmation_number": confirmation,
	})
}

// MarkFailed transitions the order to FAILED.
func (r *orderRepository) MarkFailed(ctx context.Context, orderID string) error {
	return r.updateStatus(ctx, orderID, map[string]any{
		"status": saga.OrderStatusFailed.String(),
	})
}

func (r *orderRepository) updateStatus(ctx context.Context, orderID string, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update order %s: %w", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return saga.ErrOrderNotFound
	}
	return nil
}
