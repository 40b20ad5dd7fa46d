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

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

type capturingRecorder struct {
	events []saga.Event
	err    error
}

func (r *capturingRecorder) RecordEvent(ctx context.Context, event saga.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func TestMultiRecorderFansOut(t *testing.T) {
	first := &capturingRecorder{}
	second := &capturingRecorder{}
	multi := NewMultiRecorder(first, nil, second)

	event := saga.Event{
		ID:        "evt-1",
		Type:      saga.EventSagaStarted,
		OrderID:   "order-1",
		Timestamp: time.Now(),
	}
	require.NoError(t, multi.RecordEvent(context.Background(), event))

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, "evt-1", second.events[0].ID)
}

func TestMultiRecorderToleratesFailingRecorder(t *testing.T) {
	broken := &capturingRecorder{err: errors.New("broker down")}
	healthy := &capturingRecorder{}
	multi := NewMultiRecorder(broken, healthy)

	event := saga.Event{ID: "evt-1", Type: saga.EventSagaFailed, OrderID: "order-1"}
	require.NoError(t, multi.RecordEvent(context.Background(), event),
		"observer failures never propagate")
	assert.Len(t, healthy.events, 1)
}

func TestPrometheusMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.SagaStarted("order-1")
	m.SagaStarted("order-2")
	m.SagaCompleted("order-1", 2*time.Second)
	m.SagaFailed("order-2", "authorize_payment", saga.ErrCodePaymentDeclined)
	m.SagaCompensated("order-2", false)
	m.SagaCompensated("order-3", true)
	m.RetryInitiated("order-2", 1)
	m.CompensationStepFailed("order-3", "reserve_inventory")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.started))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completed))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.failed.WithLabelValues("authorize_payment", saga.ErrCodePaymentDeclined)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensated.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensated.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.compensationFailed.WithLabelValues("reserve_inventory")))

	// Started twice, one completed, one failed: nothing is active.
	assert.Equal(t, 0.0, testutil.ToFloat64(m.active))
}
