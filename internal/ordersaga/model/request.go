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
)

// OrderItemRequest is one line item in a create-order request.
type OrderItemRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	CustomerID      string             `json:"customer_id" binding:"required"`
	PaymentMethodID string             `json:"payment_method_id" binding:"required"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Total           float64            `json:"total" binding:"required,gt=0"`
}

// CreateOrderResponse is the result of starting a saga for a new order.
type CreateOrderResponse struct {
	OrderID            string `json:"order_id"`
	Status             string `json:"status"`
	ConfirmationNumber string `json:"confirmation_number,omitempty"`
	FailedStep         string `json:"failed_step,omitempty"`
	FailureCode        string `json:"failure_code,omitempty"`
	FailureReason      string `json:"failure_reason,omitempty"`
	Retryable          bool   `json:"retryable"`
}

// StepStatusDetail is one row of the per-step ledger in a status response.
type StepStatusDetail struct {
	StepName     string     `json:"step_name"`
	StepOrder    int        `json:"step_order"`
	Status       string     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// OrderStatusResponse is the payload for GET /orders/{id}/status.
type OrderStatusResponse struct {
	OrderID         string             `json:"order_id"`
	Status          string             `json:"status"`
	ExecutionID     string             `json:"execution_id,omitempty"`
	ExecutionStatus string             `json:"execution_status,omitempty"`
	CurrentStep     string             `json:"current_step,omitempty"`
	FailedStep      string             `json:"failed_step,omitempty"`
	FailureCode     string             `json:"failure_code,omitempty"`
	Steps           []StepStatusDetail `json:"steps,omitempty"`
}

// RetryOrderResponse is the payload for POST /orders/{id}/retry.
type RetryOrderResponse struct {
	Success         bool     `json:"success"`
	NewExecutionID  string   `json:"new_execution_id"`
	ResumedFromStep string   `json:"resumed_from_step"`
	SkippedSteps    []string `json:"skipped_steps"`
	Status          string   `json:"status"`
	FailureCode     string   `json:"failure_code,omitempty"`
	FailureReason   string   `json:"failure_reason,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
