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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// In-memory service implementations backing development wiring and tests.
// Each keeps RWMutex-guarded state and supports one-shot failure injection
// through FailNext.

type injectedFailure struct {
	code    string
	message string
}

// failureInjector is embedded by the in-memory services to simulate business
// rejections and outages.
type failureInjector struct {
	mu   sync.Mutex
	next *injectedFailure
}

// FailNext makes the next service call fail with the given code. One-shot:
// the call after the failed one behaves normally again.
func (f *failureInjector) FailNext(code, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = &injectedFailure{code: code, message: message}
}

// take consumes a pending injected failure, if any.
func (f *failureInjector) take() *saga.SagaError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next == nil {
		return nil
	}
	inj := f.next
	f.next = nil
	if saga.IsRetryableCode(inj.code) && (inj.code == saga.ErrCodeTimeout || inj.code == saga.ErrCodeServiceUnavailable) {
		return saga.NewTransientError(inj.code, inj.message, nil)
	}
	return saga.NewBusinessError(inj.code, inj.message)
}

type memoryReservation struct {
	items     []saga.OrderItem
	expiresAt time.Time
	released  bool
}

// MemoryInventoryService is an in-memory InventoryService with per-SKU stock
// levels and TTL-bound reservations.
type MemoryInventoryService struct {
	failureInjector
	mu           sync.RWMutex
	stock        map[string]int
	reservations map[string]*memoryReservation
	ttl          time.Duration
}

// NewMemoryInventoryService creates a MemoryInventoryService whose
// reservations expire after ttl.
func NewMemoryInventoryService(ttl time.Duration) *MemoryInventoryService {
	return &MemoryInventoryService{
		stock:        make(map[string]int),
		reservations: make(map[string]*memoryReservation),
		ttl:          ttl,
	}
}

// SetStock sets the available quantity for a SKU.
func (s *MemoryInventoryService) SetStock(sku string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[sku] = qty
}

// ReserveStock implements InventoryService.
func (s *MemoryInventoryService) ReserveStock(ctx context.Context, req ReservationRequest) (*Reservation, error) {
	if err := s.take(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range req.Items {
		if s.stock[item.SKU] < item.Quantity {
			return nil, saga.NewBusinessError(saga.ErrCodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %s", item.SKU))
		}
	}
	for _, item := range req.Items {
		s.stock[item.SKU] -= item.Quantity
	}

	id := uuid.New().String()
	res := &memoryReservation{items: req.Items, expiresAt: time.Now().Add(s.ttl)}
	s.reservations[id] = res
	return &Reservation{ReservationID: id, ExpiresAt: res.expiresAt}, nil
}

// ReleaseReservation implements InventoryService. Stock is returned only on
// the first release; later calls are reported as already released.
func (s *MemoryInventoryService) ReleaseReservation(ctx context.Context, reservationID string) (*ReleaseOutcome, error) {
	if err := s.take(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[reservationID]
	if !ok || res.released {
		return &ReleaseOutcome{AlreadyReleased: true}, nil
	}
	res.released = true
	for _, item := range res.items {
		s.stock[item.SKU] += item.Quantity
	}
	return &ReleaseOutcome{}, nil
}

type memoryAuthorization struct {
	amount    float64
	expiresAt time.Time
	voided    bool
}

// MemoryPaymentService is an in-memory PaymentService with TTL-bound
// authorizations.
type MemoryPaymentService struct {
	failureInjector
	mu             sync.RWMutex
	authorizations map[string]*memoryAuthorization
	ttl            time.Duration
}

// NewMemoryPaymentService creates a MemoryPaymentService whose authorizations
// expire after ttl.
func NewMemoryPaymentService(ttl time.Duration) *MemoryPaymentService {
	return &MemoryPaymentService{
		authorizations: make(map[string]*memoryAuthorization),
		ttl:            ttl,
	}
}

// AuthorizePayment implements PaymentService.
func (s *MemoryPaymentService) AuthorizePayment(ctx context.Context, req AuthorizationRequest) (*Authorization, error) {
	if err := s.take(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, saga.NewValidationError("authorization amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	auth := &memoryAuthorization{amount: req.Amount, expiresAt: time.Now().Add(s.ttl)}
	s.authorizations[id] = auth
	return &Authorization{AuthorizationID: id, ExpiresAt: auth.expiresAt}, nil
}

// VoidAuthorization implements PaymentService.
func (s *MemoryPaymentService) VoidAuthorization(ctx context.Context, authorizationID string) (*ReleaseOutcome, error) {
	if err := s.take(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	auth, ok := s.authorizations[authorizationID]
	if !ok || auth.voided {
		return &ReleaseOutcome{AlreadyReleased: true}, nil
	}
	auth.voided = true
	return &ReleaseOutcome{}, nil
}

type memoryShipment struct {
	cancelled bool
}

// MemoryShippingService is an in-memory ShippingService.
type MemoryShippingService struct {
	failureInjector
	mu        sync.RWMutex
	shipments map[string]*memoryShipment
}

// NewMemoryShippingService creates a MemoryShippingService.
func NewMemoryShippingService() *MemoryShippingService {
	return &MemoryShippingService{shipments: make(map[string]*memoryShipment)}
}

// ArrangeShipping implements ShippingService.
func (s *MemoryShippingService) ArrangeShipping(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	if err := s.take(); err != nil {
		return nil, err
	}
	if req.ShippingAddress == "" {
		return nil, saga.NewBusinessError(saga.ErrCodeInvalidAddress, "shipping address is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.shipments[id] = &memoryShipment{}
	return &Shipment{
		ShipmentID:     id,
		TrackingNumber: fmt.Sprintf("TRK-%s", id[:8]),
	}, nil
}

// CancelShipment implements ShippingService.
func (s *MemoryShippingService) CancelShipment(ctx context.Context, shipmentID string) (*ReleaseOutcome, error) {
	if err := s.take(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shp, ok := s.shipments[shipmentID]
	if !ok || shp.cancelled {
		return &ReleaseOutcome{AlreadyReleased: true}, nil
	}
	shp.cancelled = true
	return &ReleaseOutcome{}, nil
}
