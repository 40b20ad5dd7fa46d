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

package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

func TestMemoryLockerExclusion(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	token, err := locker.TryLock(ctx, "order-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = locker.TryLock(ctx, "order-1")
	assert.ErrorIs(t, err, saga.ErrOrderLocked)

	// A different order is independent.
	_, err = locker.TryLock(ctx, "order-2")
	assert.NoError(t, err)

	require.NoError(t, locker.Unlock(ctx, "order-1", token))
	_, err = locker.TryLock(ctx, "order-1")
	assert.NoError(t, err)
}

func TestMemoryLockerStaleTokenDoesNotUnlock(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	token, err := locker.TryLock(ctx, "order-1")
	require.NoError(t, err)

	// Unlocking with the wrong token leaves the lock held.
	require.NoError(t, locker.Unlock(ctx, "order-1", "stale-token"))
	_, err = locker.TryLock(ctx, "order-1")
	assert.ErrorIs(t, err, saga.ErrOrderLocked)

	require.NoError(t, locker.Unlock(ctx, "order-1", token))
}

func TestMemoryLockerConcurrentAcquisition(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := locker.TryLock(ctx, "order-1"); err == nil {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load(), "exactly one goroutine wins the lock")
}
