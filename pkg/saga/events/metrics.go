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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements saga.MetricsCollector with Prometheus
// counters, a duration histogram and an active-saga gauge.
type PrometheusMetrics struct {
	started            prometheus.Counter
	completed          prometheus.Counter
	failed             *prometheus.CounterVec
	compensated        *prometheus.CounterVec
	retries            prometheus.Counter
	compensationFailed *prometheus.CounterVec
	duration           prometheus.Histogram
	active             prometheus.Gauge
}

// NewPrometheusMetrics creates the collector and registers its metrics with
// the given registerer (prometheus.DefaultRegisterer is the usual choice).
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordersaga",
			Name:      "sagas_started_total",
			Help:      "Total number of saga executions started.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordersaga",
			Name:      "sagas_completed_total",
			Help:      "Total number of saga executions that completed successfully.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordersaga",
			Name:      "sagas_failed_total",
			Help:      "Total number of saga executions that failed, by step and error code.",
		}, []string{"step", "code"}),
		compensated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordersaga",
			Name:      "sagas_compensated_total",
			Help:      "Total number of compensated saga executions, by completeness.",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordersaga",
			Name:      "retries_initiated_total",
			Help:      "Total number of customer-initiated retries.",
		}),
		compensationFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordersaga",
			Name:      "compensation_steps_failed_total",
			Help:      "Total number of compensation steps that failed, by step.",
		}, []string{"step"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ordersaga",
			Name:      "saga_duration_seconds",
			Help:      "Duration of completed saga executions.",
			Buckets:   prometheus.DefBuckets,
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ordersaga",
			Name:      "sagas_active",
			Help:      "Number of saga executions currently running.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.started, m.completed, m.failed, m.compensated,
			m.retries, m.compensationFailed, m.duration, m.active)
	}
	return m
}

// SagaStarted implements saga.MetricsCollector.
func (m *PrometheusMetrics) SagaStarted(orderID string) {
	m.started.Inc()
	m.active.Inc()
}

// SagaCompleted implements saga.MetricsCollector.
func (m *PrometheusMetrics) SagaCompleted(orderID string, duration time.Duration) {
	m.completed.Inc()
	m.duration.Observe(duration.Seconds())
	m.active.Dec()
}

// SagaFailed implements saga.MetricsCollector.
func (m *PrometheusMetrics) SagaFailed(orderID, stepName, code string) {
	m.failed.WithLabelValues(stepName, code).Inc()
	m.active.Dec()
}

// SagaCompensated implements saga.MetricsCollector.
func (m *PrometheusMetrics) SagaCompensated(orderID string, partial bool) {
	result := "full"
	if partial {
		result = "partial"
	}
	m.compensated.WithLabelValues(result).Inc()
}

// RetryInitiated implements saga.MetricsCollector.
func (m *PrometheusMetrics) RetryInitiated(orderID string, attemptNumber int) {
	m.retries.Inc()
}

// CompensationStepFailed implements saga.MetricsCollector.
func (m *PrometheusMetrics) CompensationStepFailed(orderID, stepName string) {
	m.compensationFailed.WithLabelValues(stepName).Inc()
}

// NoopMetrics is a saga.MetricsCollector that records nothing. Used when
// metrics are disabled.
type NoopMetrics struct{}

// NewNoopMetrics creates a NoopMetrics.
func NewNoopMetrics() *NoopMetrics { return &NoopMetrics{} }

func (*NoopMetrics) SagaStarted(string)                    {}
func (*NoopMetrics) SagaCompleted(string, time.Duration)   {}
func (*NoopMetrics) SagaFailed(string, string, string)     {}
func (*NoopMetrics) SagaCompensated(string, bool)          {}
func (*NoopMetrics) RetryInitiated(string, int)            {}
func (*NoopMetrics) CompensationStepFailed(string, string) {}
