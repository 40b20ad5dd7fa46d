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
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
)

// ValidateFunc checks the saga context before a wrapped step executes.
// Returning an error produces a VALIDATION_ERROR step failure without
// invoking the step.
type ValidateFunc func(sctx *saga.Context) error

// runner decorates a saga.Step with context validation, panic recovery, error
// translation and timing logs, so the concrete steps stay plain business
// logic. Cross-cutting behavior composes around the step instead of living in
// a shared base type.
type runner struct {
	inner    saga.Step
	validate ValidateFunc
	logger   *zap.Logger
}

// Wrap returns the step decorated with the standard cross-cutting behavior.
// validate may be nil.
func Wrap(step saga.Step, validate ValidateFunc) saga.Step {
	return &runner{inner: step, validate: validate, logger: logger.GetLogger()}
}

// Name implements saga.Step.
func (r *runner) Name() string { return r.inner.Name() }

// Order implements saga.Step.
func (r *runner) Order() int { return r.inner.Order() }

// Compensatable implements saga.Step.
func (r *runner) Compensatable() bool { return r.inner.Compensatable() }

// Execute implements saga.Step.
func (r *runner) Execute(ctx context.Context, sctx *saga.Context) (result saga.StepResult, err error) {
	if r.validate != nil {
		if verr := r.validate(sctx); verr != nil {
			return saga.StepFailure(saga.ErrCodeValidationError, verr.Error(), false), nil
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("saga step panicked",
				zap.String("step", r.inner.Name()),
				zap.Any("panic", rec))
			result = saga.StepResult{}
			err = saga.NewSystemError("step panicked", nil)
		}
	}()

	start := time.Now()
	result, err = r.inner.Execute(ctx, sctx)
	if err != nil {
		// Business rejections arrive as *saga.SagaError; translate them into
		// a typed failure so the saga can decide about retry. Everything else
		// propagates as an infrastructure error.
		var serr *saga.SagaError
		if errors.As(err, &serr) && serr.Type != saga.ErrorTypeSystem {
			return saga.StepFailure(serr.Code, serr.Message, serr.Retryable), nil
		}
		return saga.StepResult{}, err
	}

	r.logger.Debug("step action finished",
		zap.String("step", r.inner.Name()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("succeeded", result.Succeeded()))
	return result, nil
}

// Compensate implements saga.Step.
func (r *runner) Compensate(ctx context.Context, sctx *saga.Context) (result saga.CompensationResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("saga compensation panicked",
				zap.String("step", r.inner.Name()),
				zap.Any("panic", rec))
			result = saga.CompensationFailure("compensation panicked")
			err = nil
		}
	}()
	return r.inner.Compensate(ctx, sctx)
}

// requireOrder is the validation shared by all three steps: the order
// projection must be present in the context.
func requireOrder(sctx *saga.Context) error {
	if _, ok := saga.Get(sctx, KeyOrder); !ok {
		return errors.New("order data missing from saga context")
	}
	return nil
}
