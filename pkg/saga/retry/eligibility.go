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

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// Blocker codes returned by eligibility checks.
const (
	BlockerExecutionInProgress = "EXECUTION_IN_PROGRESS"
	BlockerOrderCompleted      = "ORDER_COMPLETED"
	BlockerManualIntervention  = "MANUAL_INTERVENTION_REQUIRED"
	BlockerNonRetryableFailure = "NON_RETRYABLE_FAILURE"
	BlockerRetryLimitExceeded  = "RETRY_LIMIT_EXCEEDED"
)

// Policy bounds customer-initiated retries: at most MaxAttempts within
// Window, counted per order.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Blocker is one reason an order cannot be retried.
type Blocker struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Eligibility is the structured answer to "can this order be retried".
// RequiredActions lists what the customer must change before a retry can
// succeed (for example updating the payment method after a decline).
type Eligibility struct {
	Eligible        bool      `json:"eligible"`
	Blockers        []Blocker `json:"blockers"`
	RequiredActions []string  `json:"required_actions"`
	FailedStep      string    `json:"failed_step,omitempty"`
	FailureCode     string    `json:"failure_code,omitempty"`
}

// IneligibleError carries the full eligibility verdict when a retry is
// rejected. It unwraps to saga.ErrRetryNotEligible.
type IneligibleError struct {
	Eligibility Eligibility
}

// Error implements the error interface.
func (e *IneligibleError) Error() string {
	if len(e.Eligibility.Blockers) > 0 {
		return fmt.Sprintf("retry not eligible: %s", e.Eligibility.Blockers[0].Reason)
	}
	return "retry not eligible"
}

// Unwrap lets errors.Is match saga.ErrRetryNotEligible.
func (e *IneligibleError) Unwrap() error {
	return saga.ErrRetryNotEligible
}

// EligibilityChecker evaluates the retry policy against an order's latest
// execution and retry history.
type EligibilityChecker struct {
	executions saga.ExecutionRepository
	retries    saga.RetryAttemptRepository
	policy     Policy
}

// NewEligibilityChecker creates an EligibilityChecker.
func NewEligibilityChecker(executions saga.ExecutionRepository, retries saga.RetryAttemptRepository, policy Policy) *EligibilityChecker {
	return &EligibilityChecker{executions: executions, retries: retries, policy: policy}
}

// Check evaluates the order's retry eligibility and returns the verdict plus
// the latest execution. A missing execution is reported through
// saga.ErrExecutionNotFound; every policy violation lands in the verdict's
// blockers, never in the error.
func (c *EligibilityChecker) Check(ctx context.Context, orderID string) (Eligibility, *saga.Execution, error) {
	latest, err := c.executions.GetLatestExecutionByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, saga.ErrExecutionNotFound) {
			return Eligibility{}, nil, err
		}
		return Eligibility{}, nil, fmt.Errorf("load latest execution for order %s: %w", orderID, err)
	}

	elig := Eligibility{
		FailedStep:  latest.FailedStep,
		FailureCode: latest.FailureCode,
	}

	switch latest.Status {
	case saga.StatusCompleted:
		elig.Blockers = append(elig.Blockers, Blocker{
			Code:   BlockerOrderCompleted,
			Reason: "order already completed successfully",
		})
	case saga.StatusPartiallyCompensated:
		elig.Blockers = append(elig.Blockers, Blocker{
			Code:   BlockerManualIntervention,
			Reason: "last execution was only partially compensated and requires manual follow-up",
		})
	case saga.StatusCompensated:
		// The only retryable terminal state; fall through to code checks.
	default:
		elig.Blockers = append(elig.Blockers, Blocker{
			Code:   BlockerExecutionInProgress,
			Reason: fmt.Sprintf("execution %s is still %s", latest.ID, latest.Status),
		})
	}

	if latest.Status == saga.StatusCompensated && !saga.IsRetryableCode(latest.FailureCode) {
		elig.Blockers = append(elig.Blockers, Blocker{
			Code:   BlockerNonRetryableFailure,
			Reason: fmt.Sprintf("failure code %s is not retryable", latest.FailureCode),
		})
	}

	since := time.Now().Add(-c.policy.Window)
	count, err := c.retries.CountRetryAttemptsSince(ctx, orderID, since)
	if err != nil {
		return Eligibility{}, nil, fmt.Errorf("count retry attempts for order %s: %w", orderID, err)
	}
	if count >= c.policy.MaxAttempts {
		elig.Blockers = append(elig.Blockers, Blocker{
			Code: BlockerRetryLimitExceeded,
			Reason: fmt.Sprintf("%d retry attempts within the last %s, limit is %d",
				count, c.policy.Window, c.policy.MaxAttempts),
		})
	}

	if action := saga.RequiredAction(latest.FailureCode); action != "" {
		elig.RequiredActions = append(elig.RequiredActions, action)
	}

	elig.Eligible = len(elig.Blockers) == 0
	return elig, latest, nil
}
