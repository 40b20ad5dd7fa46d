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

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// arrangeShippingStep books delivery for the order. Compensation cancels the
// shipment.
type arrangeShippingStep struct {
	svc ShippingService
}

// NewArrangeShippingStep creates the shipping arrangement step, wrapped with
// the standard runner behavior.
func NewArrangeShippingStep(svc ShippingService) saga.Step {
	return Wrap(&arrangeShippingStep{svc: svc}, requireOrder)
}

func (s *arrangeShippingStep) Name() string        { return StepArrangeShipping }
func (s *arrangeShippingStep) Order() int          { return 2 }
func (s *arrangeShippingStep) Compensatable() bool { return true }

func (s *arrangeShippingStep) Execute(ctx context.Context, sctx *saga.Context) (saga.StepResult, error) {
	order, _ := saga.Get(sctx, KeyOrder)

	shp, err := s.svc.ArrangeShipping(ctx, ShipmentRequest{
		OrderID:         order.OrderID,
		ShippingAddress: order.ShippingAddress,
		Items:           order.Items,
	})
	if err != nil {
		return saga.StepResult{}, err
	}

	saga.Put(sctx, KeyShipmentID, shp.ShipmentID)
	saga.Put(sctx, KeyTrackingNumber, shp.TrackingNumber)

	return saga.StepSuccess(map[string]any{
		KeyShipmentID.Name():     shp.ShipmentID,
		KeyTrackingNumber.Name(): shp.TrackingNumber,
	}), nil
}

func (s *arrangeShippingStep) Compensate(ctx context.Context, sctx *saga.Context) (saga.CompensationResult, error) {
	id, ok := saga.Get(sctx, KeyShipmentID)
	if !ok || id == "" {
		return saga.CompensationSuccess(true), nil
	}

	out, err := s.svc.CancelShipment(ctx, id)
	if err != nil {
		return saga.CompensationFailure(err.Error()), nil
	}
	return saga.CompensationSuccess(out.AlreadyReleased), nil
}
