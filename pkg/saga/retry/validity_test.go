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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/steps"
)

func record(data map[string]any) *saga.StepRecord {
	return &saga.StepRecord{
		StepName: steps.StepReserveInventory,
		Status:   saga.StepStatusCompleted,
		Data:     data,
	}
}

func TestExpiryRule(t *testing.T) {
	now := time.Now()
	rule := ExpiryRule("expires_at")

	tests := []struct {
		name string
		data map[string]any
		want bool
	}{
		{"future expiry", map[string]any{"expires_at": now.Add(time.Hour).Format(time.RFC3339)}, true},
		{"past expiry", map[string]any{"expires_at": now.Add(-time.Hour).Format(time.RFC3339)}, false},
		{"missing key", map[string]any{"other": "x"}, false},
		{"malformed timestamp", map[string]any{"expires_at": "not-a-time"}, false},
		{"non-string value", map[string]any{"expires_at": 42}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule(record(tt.data), now))
		})
	}
}

func TestStillValidRequiresRecordAndRule(t *testing.T) {
	checker := NewDefaultValidityChecker()
	now := time.Now()
	valid := map[string]any{
		steps.KeyReservationExpiry.Name(): now.Add(time.Hour).Format(time.RFC3339),
	}

	assert.False(t, checker.StillValid(steps.StepReserveInventory, nil, now),
		"a step the original run never reached always re-executes")
	assert.False(t, checker.StillValid(steps.StepReserveInventory, record(nil), now),
		"a record without data cannot be reused")
	assert.True(t, checker.StillValid(steps.StepReserveInventory, record(valid), now))

	// Shipping has no rule registered: arranged shipments always re-execute.
	shipped := &saga.StepRecord{
		StepName: steps.StepArrangeShipping,
		Status:   saga.StepStatusCompleted,
		Data:     map[string]any{steps.KeyShipmentID.Name(): "shp-1"},
	}
	assert.False(t, checker.StillValid(steps.StepArrangeShipping, shipped, now))
}
