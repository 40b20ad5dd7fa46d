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

// Package retry resumes failed sagas: it decides whether an order may be
// retried, which of the original execution's step results are still valid,
// and drives a new execution that skips the valid ones.
package retry

import (
	"time"

	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/steps"
)

// ValidityRule decides whether a step's prior result is still usable by a
// retry. now is passed in so rules stay deterministic under test.
type ValidityRule func(rec *saga.StepRecord, now time.Time) bool

// StepValidityChecker holds the per-step validity rules. Steps without a
// registered rule are never considered valid and always re-execute; an
// invalid or absent result is a re-execution signal, not an error.
type StepValidityChecker struct {
	rules map[string]ValidityRule
}

// NewStepValidityChecker creates an empty checker.
func NewStepValidityChecker() *StepValidityChecker {
	return &StepValidityChecker{rules: make(map[string]ValidityRule)}
}

// Register sets the validity rule for a step name, replacing any prior rule.
func (c *StepValidityChecker) Register(stepName string, rule ValidityRule) {
	c.rules[stepName] = rule
}

// StillValid reports whether the step's recorded result can be reused.
func (c *StepValidityChecker) StillValid(stepName string, rec *saga.StepRecord, now time.Time) bool {
	if rec == nil || len(rec.Data) == 0 {
		return false
	}
	rule, ok := c.rules[stepName]
	if !ok {
		return false
	}
	return rule(rec, now)
}

// ExpiryRule returns a rule that holds while the RFC3339 timestamp stored
// under dataKey lies in the future. Missing or malformed data fails the rule.
func ExpiryRule(dataKey string) ValidityRule {
	return func(rec *saga.StepRecord, now time.Time) bool {
		raw, ok := rec.Data[dataKey]
		if !ok {
			return false
		}
		str, ok := raw.(string)
		if !ok {
			return false
		}
		expiry, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return false
		}
		return now.Before(expiry)
	}
}

// NewDefaultValidityChecker returns the checker for the order saga:
// inventory reservations and payment authorizations stay valid until their
// recorded TTL expires; arranged shipments are always re-executed.
func NewDefaultValidityChecker() *StepValidityChecker {
	c := NewStepValidityChecker()
	c.Register(steps.StepReserveInventory, ExpiryRule(steps.KeyReservationExpiry.Name()))
	c.Register(steps.StepAuthorizePayment, ExpiryRule(steps.KeyAuthorizationExpiry.Name()))
	return c
}
