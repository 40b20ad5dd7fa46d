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

// Package v1 provides the HTTP handlers for the order saga REST surface.
package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	servicev1 "github.com/innovationmech/ordersaga/internal/ordersaga/service/v1"
	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/retry"
)

// OrderHandler handles order saga HTTP requests.
type OrderHandler struct {
	service servicev1.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service servicev1.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// CreateOrder starts a new saga for an order.
// @Summary Create an order
// @Description Creates an order and synchronously runs the order saga
// @Tags orders
// @Accept json
// @Produce json
// @Param order body model.CreateOrderRequest true "Order details"
// @Success 201 {object} model.CreateOrderResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		logger.GetLogger().Error("create order failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to process order"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetOrderStatus returns an order's status and per-step ledger.
// @Summary Get order status
// @Description Returns the order status, the latest saga execution and its step ledger
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} model.OrderStatusResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /orders/{id}/status [get]
func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	resp, err := h.service.GetOrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, saga.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "order not found"})
			return
		}
		logger.GetLogger().Error("get order status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to load order status"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetRetryEligibility reports whether a failed order can be retried.
// @Summary Check retry eligibility
// @Description Returns whether the order can be retried, with blockers and required customer actions
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} retry.Eligibility
// @Failure 404 {object} model.ErrorResponse
// @Router /orders/{id}/retry-eligibility [get]
func (h *OrderHandler) GetRetryEligibility(c *gin.Context) {
	elig, err := h.service.CheckRetryEligibility(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, saga.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "order not found"})
			return
		}
		logger.GetLogger().Error("retry eligibility check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to check retry eligibility"})
		return
	}
	c.JSON(http.StatusOK, elig)
}

// RetryOrder resumes a failed order saga.
// @Summary Retry a failed order
// @Description Resumes the order's failed saga, skipping steps whose prior results are still valid
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} model.RetryOrderResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 422 {object} retry.Eligibility
// @Router /orders/{id}/retry [post]
func (h *OrderHandler) RetryOrder(c *gin.Context) {
	resp, err := h.service.RetryOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		var ineligible *retry.IneligibleError
		switch {
		case errors.Is(err, saga.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "order not found"})
		case errors.Is(err, saga.ErrOrderLocked):
			c.JSON(http.StatusConflict, model.ErrorResponse{Error: "retry already in progress"})
		case errors.As(err, &ineligible):
			c.JSON(http.StatusUnprocessableEntity, ineligible.Eligibility)
		case errors.Is(err, saga.ErrExecutionNotFound):
			c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: "no saga execution exists for this order"})
		default:
			logger.GetLogger().Error("retry order failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "failed to retry order"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers the order saga routes on the router group.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id/status", h.GetOrderStatus)
		orders.GET("/:id/retry-eligibility", h.GetRetryEligibility)
		orders.POST("/:id/retry", h.RetryOrder)
	}
}
