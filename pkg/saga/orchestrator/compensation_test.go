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

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/storage"
)

type scriptedStep struct {
	name          string
	order         int
	compensatable bool
	result        saga.CompensationResult
	err           error
	callLog       *[]string // shared across steps to observe call order
}

func (s *scriptedStep) Name() string        { return s.name }
func (s *scriptedStep) Order() int          { return s.order }
func (s *scriptedStep) Compensatable() bool { return s.compensatable }

func (s *scriptedStep) Execute(ctx context.Context, sctx *saga.Context) (saga.StepResult, error) {
	return saga.StepSuccess(nil), nil
}

func (s *scriptedStep) Compensate(ctx context.Context, sctx *saga.Context) (saga.CompensationResult, error) {
	if s.callLog != nil {
		*s.callLog = append(*s.callLog, s.name)
	}
	return s.result, s.err
}

func compensationFixture(t *testing.T, names ...string) (*storage.MemoryStorage, *saga.Context, *saga.Execution) {
	t.Helper()
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	exec := &saga.Execution{
		ID:        "exec-1",
		OrderID:   "order-1",
		StepNames: names,
		Status:    saga.StatusCompensating,
		StartedAt: time.Now(),
	}
	require.NoError(t, store.CreateExecution(ctx, exec))

	sctx := saga.NewContext(exec.ID, exec.OrderID)
	for i, name := range names {
		now := time.Now()
		require.NoError(t, store.CreateStepRecord(ctx, &saga.StepRecord{
			ID:          name,
			ExecutionID: exec.ID,
			StepName:    name,
			StepOrder:   i,
			Status:      saga.StepStatusCompleted,
			StartedAt:   &now,
			CompletedAt: &now,
		}))
		sctx.MarkStepCompleted(name)
	}
	return store, sctx, exec
}

func TestCompensateSkipsNonCompensatableSteps(t *testing.T) {
	store, sctx, exec := compensationFixture(t, "a", "b")
	var calls []string
	steps := []saga.Step{
		&scriptedStep{name: "a", order: 0, compensatable: true, result: saga.CompensationSuccess(false), callLog: &calls},
		&scriptedStep{name: "b", order: 1, compensatable: false, callLog: &calls},
	}

	summary, err := NewCompensationOrchestrator(store, nil, nil).
		Compensate(context.Background(), sctx, exec, steps)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, summary.Compensated)
	assert.Equal(t, []string{"b"}, summary.Skipped)
	assert.False(t, summary.Partial(), "skipped steps do not make the summary partial")
	assert.Equal(t, []string{"a"}, calls, "a non-compensatable step is never invoked")
}

func TestCompensateFailOpenContinuesPastFailure(t *testing.T) {
	store, sctx, exec := compensationFixture(t, "a", "b", "c")
	var calls []string
	steps := []saga.Step{
		&scriptedStep{name: "a", order: 0, compensatable: true, result: saga.CompensationSuccess(false), callLog: &calls},
		&scriptedStep{name: "b", order: 1, compensatable: true, result: saga.CompensationFailure("service down"), callLog: &calls},
		&scriptedStep{name: "c", order: 2, compensatable: true, result: saga.CompensationSuccess(false), callLog: &calls},
	}

	summary, err := NewCompensationOrchestrator(store, nil, nil).
		Compensate(context.Background(), sctx, exec, steps)
	require.NoError(t, err)

	// Reverse order, and b's failure does not stop a from being reversed.
	assert.Equal(t, []string{"c", "b", "a"}, calls)
	assert.Equal(t, []string{"c", "a"}, summary.Compensated)
	assert.Equal(t, []string{"b"}, summary.Failed)
	assert.True(t, summary.Partial())

	// The failed step's record keeps the failure message and stays out of
	// the compensated state.
	records, rerr := store.ListStepRecords(context.Background(), exec.ID)
	require.NoError(t, rerr)
	for _, rec := range records {
		if rec.StepName == "b" {
			assert.Equal(t, saga.StepStatusCompensating, rec.Status)
			assert.Equal(t, "service down", rec.ErrorMessage)
		}
	}
}

func TestCompensateUnregisteredStepCountsAsFailed(t *testing.T) {
	store, sctx, exec := compensationFixture(t, "a", "ghost")
	steps := []saga.Step{
		&scriptedStep{name: "a", order: 0, compensatable: true, result: saga.CompensationSuccess(false)},
	}

	summary, err := NewCompensationOrchestrator(store, nil, nil).
		Compensate(context.Background(), sctx, exec, steps)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, summary.Compensated)
	assert.Equal(t, []string{"ghost"}, summary.Failed)
	assert.True(t, summary.Partial())
}

func TestCompensateErrorBecomesFailure(t *testing.T) {
	store, sctx, exec := compensationFixture(t, "a")
	steps := []saga.Step{
		&scriptedStep{name: "a", order: 0, compensatable: true, err: assert.AnError},
	}

	summary, err := NewCompensationOrchestrator(store, nil, nil).
		Compensate(context.Background(), sctx, exec, steps)
	require.NoError(t, err, "a compensation error is folded into the summary")
	assert.Equal(t, []string{"a"}, summary.Failed)
}
