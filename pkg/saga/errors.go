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

package saga

import (
	"errors"
	"fmt"
)

// Stable error codes produced by steps and surfaced to clients. Codes, not
// messages, drive retryability decisions and HTTP status mapping.
const (
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodePaymentDeclined     = "PAYMENT_DECLINED"
	ErrCodeFraudDetected       = "FRAUD_DETECTED"
	ErrCodeAccountSuspended    = "ACCOUNT_SUSPENDED"
	ErrCodeShippingUnavailable = "SHIPPING_UNAVAILABLE"
	ErrCodeInvalidAddress      = "INVALID_ADDRESS"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeValidationError     = "VALIDATION_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ErrorType classifies a SagaError by the subsystem that produced it.
type ErrorType int

const (
	// ErrorTypeValidation indicates invalid input to a step or operation.
	ErrorTypeValidation ErrorType = iota

	// ErrorTypeBusiness indicates a business rejection from an external
	// service (declined payment, out of stock).
	ErrorTypeBusiness

	// ErrorTypeTransient indicates a temporary infrastructure condition
	// (timeout, service unavailable) that a retry may resolve.
	ErrorTypeTransient

	// ErrorTypeSystem indicates an internal contract or persistence failure.
	ErrorTypeSystem
)

// String returns the string representation of the ErrorType.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeBusiness:
		return "business"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeSystem:
		return "system"
	default:
		return "unknown"
	}
}

// SagaError is the structured error produced by saga operations. It carries a
// stable code, a classification, and a retryability flag so callers never
// parse messages.
type SagaError struct {
	Code      string
	Message   string
	Type      ErrorType
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *SagaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *SagaError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a non-retryable validation SagaError.
func NewValidationError(message string) *SagaError {
	return &SagaError{Code: ErrCodeValidationError, Message: message, Type: ErrorTypeValidation, Retryable: false}
}

// NewBusinessError creates a business SagaError with the given code. The
// retryable flag follows the code's classification.
func NewBusinessError(code, message string) *SagaError {
	return &SagaError{Code: code, Message: message, Type: ErrorTypeBusiness, Retryable: IsRetryableCode(code)}
}

// NewTransientError creates a retryable transient SagaError.
func NewTransientError(code, message string, cause error) *SagaError {
	return &SagaError{Code: code, Message: message, Type: ErrorTypeTransient, Retryable: true, Cause: cause}
}

// NewSystemError creates a non-retryable internal SagaError.
func NewSystemError(message string, cause error) *SagaError {
	return &SagaError{Code: ErrCodeInternal, Message: message, Type: ErrorTypeSystem, Retryable: false, Cause: cause}
}

// retryableCodes is the closed set of failure codes a customer-initiated
// retry may resolve. Fraud and suspension rejections are deliberate business
// decisions and are never retried.
var retryableCodes = map[string]bool{
	ErrCodePaymentDeclined:    true,
	ErrCodeInvalidAddress:     true,
	ErrCodeTimeout:            true,
	ErrCodeServiceUnavailable: true,
}

// IsRetryableCode reports whether a failure with the given code is eligible
// for customer-initiated retry.
func IsRetryableCode(code string) bool {
	return retryableCodes[code]
}

// requiredActions maps failure codes to the customer action that must happen
// before a retry can succeed.
var requiredActions = map[string]string{
	ErrCodePaymentDeclined: "update payment method",
	ErrCodeInvalidAddress:  "update shipping address",
}

// RequiredAction returns the customer action associated with a failure code,
// or the empty string when no action is needed before retrying.
func RequiredAction(code string) string {
	return requiredActions[code]
}

// Sentinel errors for contract violations and state conflicts. These are
// infrastructure errors, distinct from business step failures.
var (
	// ErrExecutionNotFound indicates the requested saga execution does not exist.
	ErrExecutionNotFound = errors.New("saga execution not found")

	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrExecutionTerminal indicates a mutation was attempted on an execution
	// in a terminal state.
	ErrExecutionTerminal = errors.New("saga execution is in a terminal state")

	// ErrStepResultImmutable indicates a mutation was attempted on a
	// compensated step result.
	ErrStepResultImmutable = errors.New("compensated step result is immutable")

	// ErrOrderLocked indicates another saga execution currently owns the order.
	ErrOrderLocked = errors.New("order is locked by another execution")

	// ErrRetryNotEligible indicates the order's last execution cannot be retried.
	ErrRetryNotEligible = errors.New("order is not eligible for retry")

	// ErrStorageClosed indicates an operation on a closed storage.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidStepOrder indicates steps were registered with non-contiguous
	// or duplicate order values.
	ErrInvalidStepOrder = errors.New("invalid step order")
)
