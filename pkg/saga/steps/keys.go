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

// Package steps provides the order saga's concrete steps (reserve inventory,
// authorize payment, arrange shipping), the external service contracts they
// call, and in-memory service implementations for development and tests.
package steps

import (
	"github.com/innovationmech/ordersaga/pkg/saga"
)

// Step names. Also used as resume points and in step validity rules.
const (
	StepReserveInventory = "reserve_inventory"
	StepAuthorizePayment = "authorize_payment"
	StepArrangeShipping  = "arrange_shipping"
)

// Typed context keys shared between steps and their compensations. All
// values are strings (identifiers and RFC3339 timestamps) so persisted step
// data survives a JSON round-trip unchanged.
var (
	// KeyOrder carries the order projection the steps build requests from.
	KeyOrder = saga.NewKey[saga.OrderInfo]("order")

	// KeyReservationID is the inventory reservation identifier.
	KeyReservationID = saga.NewKey[string]("reservation_id")

	// KeyReservationExpiry is the reservation expiry, RFC3339.
	KeyReservationExpiry = saga.NewKey[string]("reservation_expires_at")

	// KeyAuthorizationID is the payment authorization identifier.
	KeyAuthorizationID = saga.NewKey[string]("authorization_id")

	// KeyAuthorizationExpiry is the authorization expiry, RFC3339.
	KeyAuthorizationExpiry = saga.NewKey[string]("authorization_expires_at")

	// KeyShipmentID is the shipment identifier.
	KeyShipmentID = saga.NewKey[string]("shipment_id")

	// KeyTrackingNumber is the carrier tracking number.
	KeyTrackingNumber = saga.NewKey[string]("tracking_number")
)
