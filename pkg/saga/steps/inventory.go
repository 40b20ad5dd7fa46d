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

// reserveInventoryStep holds stock for the order's items. Compensation
// releases the hold.
type reserveInventoryStep struct {
	svc InventoryService
}

// NewReserveInventoryStep creates the inventory reservation step, wrapped
// with the standard runner behavior.
func NewReserveInventoryStep(svc InventoryService) saga.Step {
	return Wrap(&reserveInventoryStep{svc: svc}, requireOrder)
}

func (s *reserveInventoryStep) Name() string        { return StepReserveInventory }
func (s *reserveInventoryStep) Order() int          { return 0 }
func (s *reserveInventoryStep) Compensatable() bool { return true }

func (s *reserveInventoryStep) Execute(ctx context.Context, sctx *saga.Context) (saga.StepResult, error) {
	order, _ := saga.Get(sctx, KeyOrder)

	res, err := s.svc.ReserveStock(ctx, ReservationRequest{
		OrderID: order.OrderID,
		Items:   order.Items,
	})
	if err != nil {
		return saga.StepResult{}, err
	}

	expiry := res.ExpiresAt.UTC().Format(time.RFC3339)
	saga.Put(sctx, KeyReservationID, res.ReservationID)
	saga.Put(sctx, KeyReservationExpiry, expiry)

	return saga.StepSuccess(map[string]any{
		KeyReservationID.Name():     res.ReservationID,
		KeyReservationExpiry.Name(): expiry,
	}), nil
}

func (s *reserveInventoryStep) Compensate(ctx context.Context, sctx *saga.Context) (saga.CompensationResult, error) {
	id, ok := saga.Get(sctx, KeyReservationID)
	if !ok || id == "" {
		// No reservation was recorded, nothing to release.
		return saga.CompensationSuccess(true), nil
	}

	out, err := s.svc.ReleaseReservation(ctx, id)
	if err != nil {
		return saga.CompensationFailure(err.Error()), nil
	}
	return saga.CompensationSuccess(out.AlreadyReleased), nil
}
