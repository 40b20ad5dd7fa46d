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

// Package lock provides per-order mutual exclusion so at most one saga
// execution runs for an order at a time. Two implementations are provided:
// an in-process locker for single-node deployments and tests, and a
// Redis-backed locker for multi-node deployments.
package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// MemoryLocker is an in-process saga.OrderLocker.
type MemoryLocker struct {
	mu     sync.Mutex
	tokens map[string]string // orderID -> token
}

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{tokens: make(map[string]string)}
}

// TryLock implements saga.OrderLocker.
func (l *MemoryLocker) TryLock(ctx context.Context, orderID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.tokens[orderID]; held {
		return "", saga.ErrOrderLocked
	}
	token := uuid.New().String()
	l.tokens[orderID] = token
	return token, nil
}

// Unlock implements saga.OrderLocker. A stale or mismatched token is a no-op.
func (l *MemoryLocker) Unlock(ctx context.Context, orderID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tokens[orderID] == token {
		delete(l.tokens, orderID)
	}
	return nil
}
