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

// Package model defines the ordersaga database models and the HTTP
// request/response types.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// OrderItems is the JSON-serialized line item list on an order.
type OrderItems []saga.OrderItem

// Order is the business transaction being processed. Its status is mutated
// only by the saga orchestrator and retry path.
type Order struct {
	ID                 string     `gorm:"type:char(36);primaryKey" json:"id"`
	CustomerID         string     `gorm:"type:char(36);not null;index" json:"customer_id"`
	Items              OrderItems `gorm:"serializer:json;not null" json:"items"`
	Total              float64    `gorm:"not null" json:"total"`
	PaymentMethodID    string     `gorm:"type:varchar(64);not null" json:"payment_method_id"`
	ShippingAddress    string     `gorm:"type:varchar(512);not null" json:"shipping_address"`
	Status             string     `gorm:"type:varchar(32);not null;default:pending" json:"status"`
	ConfirmationNumber string     `gorm:"type:varchar(64)" json:"confirmation_number,omitempty"`
	TrackingNumber     string     `gorm:"type:varchar(64)" json:"tracking_number,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName returns the table name for the Order model.
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// ToOrderInfo projects the order into the read-only shape the saga consumes.
func (o *Order) ToOrderInfo() saga.OrderInfo {
	return saga.OrderInfo{
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		PaymentMethodID: o.PaymentMethodID,
		ShippingAddress: o.ShippingAddress,
		Items:           o.Items,
		Total:           o.Total,
	}
}
