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

package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/retry"
)

type fakeOrderService struct {
	createResp *model.CreateOrderResponse
	createErr  error
	statusResp *model.OrderStatusResponse
	statusErr  error
	eligResp   *retry.Eligibility
	eligErr    error
	retryResp  *model.RetryOrderResponse
	retryErr   error
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.CreateOrderResponse, error) {
	return f.createResp, f.createErr
}

func (f *fakeOrderService) GetOrderStatus(ctx context.Context, orderID string) (*model.OrderStatusResponse, error) {
	return f.statusResp, f.statusErr
}

func (f *fakeOrderService) CheckRetryEligibility(ctx context.Context, orderID string) (*retry.Eligibility, error) {
	return f.eligResp, f.eligErr
}

func (f *fakeOrderService) RetryOrder(ctx context.Context, orderID string) (*model.RetryOrderResponse, error) {
	return f.retryResp, f.retryErr
}

func newTestRouter(svc *fakeOrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewOrderHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func validCreateBody() string {
	return `{
		"customer_id": "cust-1",
		"payment_method_id": "pm-1",
		"shipping_address": "1 Main St",
		"items": [{"sku": "SKU-1", "quantity": 2}],
		"total": 42.50
	}`
}

func TestCreateOrderReturns201(t *testing.T) {
	svc := &fakeOrderService{createResp: &model.CreateOrderResponse{
		OrderID:            "order-1",
		Status:             "completed",
		ConfirmationNumber: "ORD-ABCD1234",
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(validCreateBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp model.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, "ORD-ABCD1234", resp.ConfirmationNumber)
}

func TestCreateOrderRejectsInvalidPayload(t *testing.T) {
	router := newTestRouter(&fakeOrderService{})

	tests := []struct {
		name string
		body string
	}{
		{"missing customer", `{"payment_method_id":"pm-1","shipping_address":"a","items":[{"sku":"s","quantity":1}],"total":1}`},
		{"empty items", `{"customer_id":"c","payment_method_id":"pm-1","shipping_address":"a","items":[],"total":1}`},
		{"zero total", `{"customer_id":"c","payment_method_id":"pm-1","shipping_address":"a","items":[{"sku":"s","quantity":1}],"total":0}`},
		{"not json", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetOrderStatusNotFound(t *testing.T) {
	router := newTestRouter(&fakeOrderService{statusErr: saga.ErrOrderNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/order-9/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderStatusReturnsLedger(t *testing.T) {
	svc := &fakeOrderService{statusResp: &model.OrderStatusResponse{
		OrderID:         "order-1",
		Status:          "failed",
		ExecutionStatus: "compensated",
		FailedStep:      "authorize_payment",
		FailureCode:     saga.ErrCodePaymentDeclined,
		Steps: []model.StepStatusDetail{
			{StepName: "reserve_inventory", StepOrder: 0, Status: "compensated"},
			{StepName: "authorize_payment", StepOrder: 1, Status: "failed", ErrorCode: saga.ErrCodePaymentDeclined},
		},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/order-1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp model.OrderStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Steps, 2)
	assert.Equal(t, "authorize_payment", resp.FailedStep)
}

func TestGetRetryEligibility(t *testing.T) {
	svc := &fakeOrderService{eligResp: &retry.Eligibility{
		Eligible:        true,
		FailedStep:      "authorize_payment",
		FailureCode:     saga.ErrCodePaymentDeclined,
		RequiredActions: []string{"update payment method"},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/order-1/retry-eligibility", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp retry.Eligibility
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Eligible)
	assert.Equal(t, []string{"update payment method"}, resp.RequiredActions)
}

func TestRetryOrderStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		svc      *fakeOrderService
		wantCode int
	}{
		{
			name:     "success",
			svc:      &fakeOrderService{retryResp: &model.RetryOrderResponse{Success: true, Status: "completed"}},
			wantCode: http.StatusOK,
		},
		{
			name:     "order not found",
			svc:      &fakeOrderService{retryErr: saga.ErrOrderNotFound},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "retry already in progress",
			svc:      &fakeOrderService{retryErr: saga.ErrOrderLocked},
			wantCode: http.StatusConflict,
		},
		{
			name: "ineligible",
			svc: &fakeOrderService{retryErr: &retry.IneligibleError{Eligibility: retry.Eligibility{
				Blockers: []retry.Blocker{{Code: retry.BlockerRetryLimitExceeded, Reason: "limit reached"}},
			}}},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "no execution",
			svc:      &fakeOrderService{retryErr: saga.ErrExecutionNotFound},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "internal error",
			svc:      &fakeOrderService{retryErr: assert.AnError},
			wantCode: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/order-1/retry", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRetryIneligibleBodyCarriesBlockers(t *testing.T) {
	svc := &fakeOrderService{retryErr: &retry.IneligibleError{Eligibility: retry.Eligibility{
		Blockers:    []retry.Blocker{{Code: retry.BlockerNonRetryableFailure, Reason: "failure code SHIPPING_UNAVAILABLE is not retryable"}},
		FailedStep:  "arrange_shipping",
		FailureCode: saga.ErrCodeShippingUnavailable,
	}}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/order-1/retry", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp retry.Eligibility
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Blockers, 1)
	assert.Equal(t, retry.BlockerNonRetryableFailure, resp.Blockers[0].Code)
	assert.Equal(t, "arrange_shipping", resp.FailedStep)
}
