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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextPutGet(t *testing.T) {
	sctx := NewContext("exec-1", "order-1")
	key := NewKey[string]("reservation_id")

	_, ok := Get(sctx, key)
	assert.False(t, ok, "expected no value before Put")

	Put(sctx, key, "res-42")
	got, ok := Get(sctx, key)
	assert.True(t, ok)
	assert.Equal(t, "res-42", got)
}

func TestContextTypedKeysDoNotCollide(t *testing.T) {
	sctx := NewContext("exec-1", "order-1")
	strKey := NewKey[string]("amount")
	intKey := NewKey[int]("amount")

	Put(sctx, strKey, "12.50")

	// Same name, different type: the read reports absence instead of
	// returning a misinterpreted value.
	_, ok := Get(sctx, intKey)
	assert.False(t, ok)

	got, ok := Get(sctx, strKey)
	assert.True(t, ok)
	assert.Equal(t, "12.50", got)
}

func TestContextCompletedSteps(t *testing.T) {
	sctx := NewContext("exec-1", "order-1")

	sctx.MarkStepCompleted("reserve_inventory")
	sctx.MarkStepCompleted("authorize_payment")
	sctx.MarkStepCompleted("reserve_inventory") // duplicate is a no-op

	assert.Equal(t, []string{"reserve_inventory", "authorize_payment"}, sctx.CompletedSteps())
	assert.True(t, sctx.IsStepCompleted("authorize_payment"))
	assert.False(t, sctx.IsStepCompleted("arrange_shipping"))
}

func TestContextSnapshotRestore(t *testing.T) {
	src := NewContext("exec-1", "order-1")
	key := NewKey[string]("reservation_id")
	Put(src, key, "res-1")

	dst := NewContext("exec-2", "order-1")
	dst.Restore(src.Snapshot())

	got, ok := Get(dst, key)
	assert.True(t, ok)
	assert.Equal(t, "res-1", got)
}

func TestContextConcurrentAccess(t *testing.T) {
	sctx := NewContext("exec-1", "order-1")
	key := NewKey[int]("counter")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			Put(sctx, key, n)
			sctx.MarkStepCompleted(fmt.Sprintf("step-%d", n))
		}(i)
		go func() {
			defer wg.Done()
			Get(sctx, key)
			sctx.CompletedSteps()
		}()
	}
	wg.Wait()

	assert.Len(t, sctx.CompletedSteps(), 50)
}
