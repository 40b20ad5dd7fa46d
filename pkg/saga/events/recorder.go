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

// Package events provides best-effort observers of the saga lifecycle: a
// structured-log recorder, message broker publishers (NATS, Kafka, RabbitMQ)
// and a Prometheus metrics collector. Observers never fail the saga; their
// errors are logged and dropped.
package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
)

// ZapRecorder logs every saga event through the global zap logger.
type ZapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder creates a ZapRecorder.
func NewZapRecorder() *ZapRecorder {
	return &ZapRecorder{logger: logger.GetLogger()}
}

// RecordEvent implements saga.EventRecorder.
func (r *ZapRecorder) RecordEvent(ctx context.Context, event saga.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("order_id", event.OrderID),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.ExecutionID != "" {
		fields = append(fields, zap.String("execution_id", event.ExecutionID))
	}
	if event.StepName != "" {
		fields = append(fields, zap.String("step", event.StepName))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
		r.logger.Warn("saga event", fields...)
		return nil
	}
	r.logger.Info("saga event", fields...)
	return nil
}

// MultiRecorder fans an event out to several recorders. A recorder's failure
// is logged and does not stop delivery to the others.
type MultiRecorder struct {
	recorders []saga.EventRecorder
	logger    *zap.Logger
}

// NewMultiRecorder creates a MultiRecorder over the given recorders. Nil
// entries are skipped.
func NewMultiRecorder(recorders ...saga.EventRecorder) *MultiRecorder {
	out := make([]saga.EventRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return &MultiRecorder{recorders: out, logger: logger.GetLogger()}
}

// RecordEvent implements saga.EventRecorder.
func (m *MultiRecorder) RecordEvent(ctx context.Context, event saga.Event) error {
	for _, r := range m.recorders {
		if err := r.RecordEvent(ctx, event); err != nil {
			m.logger.Warn("event recorder failed",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
	return nil
}
