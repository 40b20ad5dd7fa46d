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

package steps

import (
	"context"
	"time"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// Service contracts for the three external systems the saga coordinates.
// Implementations signal business rejections by returning a *saga.SagaError
// (the step translates its code into a typed step failure); any other error
// is treated as an infrastructure failure.

// ReservationRequest asks the inventory service to hold stock for an order.
type ReservationRequest struct {
	OrderID string
	Items   []saga.OrderItem
}

// Reservation is a successful stock hold. The hold expires at ExpiresAt
// unless the order completes first.
type Reservation struct {
	ReservationID string
	ExpiresAt     time.Time
}

// ReleaseOutcome reports a compensation call's effect. AlreadyReleased means
// the resource was gone before the call, which still counts as success.
type ReleaseOutcome struct {
	AlreadyReleased bool
}

// InventoryService reserves and releases stock.
type InventoryService interface {
	ReserveStock(ctx context.Context, req ReservationRequest) (*Reservation, error)
	// ReleaseReservation is idempotent: releasing an unknown or already
	// released reservation returns AlreadyReleased, not an error.
	ReleaseReservation(ctx context.Context, reservationID string) (*ReleaseOutcome, error)
}

// AuthorizationRequest asks the payment service to authorize a charge.
type AuthorizationRequest struct {
	OrderID         string
	CustomerID      string
	PaymentMethodID string
	Amount          float64
}

// Authorization is a successful payment hold, valid until ExpiresAt.
type Authorization struct {
	AuthorizationID string
	ExpiresAt       time.Time
}

// PaymentService authorizes and voids payment holds.
type PaymentService interface {
	AuthorizePayment(ctx context.Context, req AuthorizationRequest) (*Authorization, error)
	// VoidAuthorization is idempotent in the same way ReleaseReservation is.
	VoidAuthorization(ctx context.Context, authorizationID string) (*ReleaseOutcome, error)
}

// ShipmentRequest asks the shipping service to arrange delivery.
type ShipmentRequest struct {
	OrderID         string
	ShippingAddress string
	Items           []saga.OrderItem
}

// Shipment is a successfully arranged delivery.
type Shipment struct {
	ShipmentID     string
	TrackingNumber string
}

// ShippingService arranges and cancels shipments.
type ShippingService interface {
	ArrangeShipping(ctx context.Context, req ShipmentRequest) (*Shipment, error)
	// CancelShipment is idempotent in the same way ReleaseReservation is.
	CancelShipment(ctx context.Context, shipmentID string) (*ReleaseOutcome, error)
}
