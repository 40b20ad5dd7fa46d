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

// authorizePaymentStep places a hold on the customer's payment method for
// the order total. Compensation voids the hold.
type authorizePaymentStep struct {
	svc PaymentService
}

// NewAuthorizePaymentStep creates the payment authorization step, wrapped
// with the standard runner behavior.
func NewAuthorizePaymentStep(svc PaymentService) saga.Step {
	return Wrap(&authorizePaymentStep{svc: svc}, requireOrder)
}

func (s *authorizePaymentStep) Name() string        { return StepAuthorizePayment }
func (s *authorizePaymentStep) Order() int          { return 1 }
func (s *authorizePaymentStep) Compensatable() bool { return true }

func (s *authorizePaymentStep) Execute(ctx context.Context, sctx *saga.Context) (saga.StepResult, error) {
	order, _ := saga.Get(sctx, KeyOrder)

	auth, err := s.svc.AuthorizePayment(ctx, AuthorizationRequest{
		OrderID:         order.OrderID,
		CustomerID:      order.CustomerID,
		PaymentMethodID: order.PaymentMethodID,
		Amount:          order.Total,
	})
	if err != nil {
		return saga.StepResult{}, err
	}

	expiry := auth.ExpiresAt.UTC().Format(time.RFC3339)
	saga.Put(sctx, KeyAuthorizationID, auth.AuthorizationID)
	saga.Put(sctx, KeyAuthorizationExpiry, expiry)

	return saga.StepSuccess(map[string]any{
		KeyAuthorizationID.Name():     auth.AuthorizationID,
		KeyAuthorizationExpiry.Name(): expiry,
	}), nil
}

func (s *authorizePaymentStep) Compensate(ctx context.Context, sctx *saga.Context) (saga.CompensationResult, error) {
	id, ok := saga.Get(sctx, KeyAuthorizationID)
	if !ok || id == "" {
		return saga.CompensationSuccess(true), nil
	}

	out, err := s.svc.VoidAuthorization(ctx, id)
	if err != nil {
		return saga.CompensationFailure(err.Error()), nil
	}
	return saga.CompensationSuccess(out.AlreadyReleased), nil
}
