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
	"sync"
)

// Key is a typed token for storing and retrieving a value of type T in a
// Context. Two keys with the same name but different types never collide on
// type: a Get through the wrong-typed key reports absence rather than
// returning a misinterpreted value.
type Key[T any] struct {
	name string
}

// NewKey creates a typed context key with the given name. Keys are intended
// to be package-level variables shared between the step that writes a value
// and the steps (or compensations) that read it.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's name.
func (k Key[T]) Name() string {
	return k.name
}

// Context is the thread-safe scratch space shared by the steps of one saga
// execution. It carries typed key/value data produced by steps, plus the set
// of steps marked completed for compensation purposes.
type Context struct {
	mu          sync.RWMutex
	sagaID      string
	orderID     string
	values      map[string]any
	completed   []string
	completedAt map[string]bool
}

// NewContext creates a Context for the given saga execution and order.
func NewContext(sagaID, orderID string) *Context {
	return &Context{
		sagaID:      sagaID,
		orderID:     orderID,
		values:      make(map[string]any),
		completedAt: make(map[string]bool),
	}
}

// SagaID returns the owning execution's identifier.
func (c *Context) SagaID() string {
	return c.sagaID
}

// OrderID returns the order being processed.
func (c *Context) OrderID() string {
	return c.orderID
}

// Put stores a value under a typed key.
func Put[T any](c *Context, key Key[T], value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key.name] = value
}

// Get retrieves the value stored under a typed key. The second return value
// reports whether a value of the key's type was present.
func Get[T any](c *Context, key Key[T]) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	raw, ok := c.values[key.name]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// MarkStepCompleted records that a step finished successfully. Completed
// steps are what compensation walks in reverse order. Marking the same step
// twice is a no-op.
func (c *Context) MarkStepCompleted(stepName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completedAt[stepName] {
		return
	}
	c.completedAt[stepName] = true
	c.completed = append(c.completed, stepName)
}

// CompletedSteps returns the completed step names in completion order. The
// returned slice is a copy.
func (c *Context) CompletedSteps() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.completed))
	copy(out, c.completed)
	return out
}

// IsStepCompleted reports whether the named step was marked completed.
func (c *Context) IsStepCompleted(stepName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completedAt[stepName]
}

// Snapshot returns a copy of all stored values keyed by key name. Used to
// persist the context alongside step results.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Restore merges previously persisted values into the context. Used when a
// retry execution adopts data produced by skipped steps of the original
// execution. Existing entries are overwritten.
func (c *Context) Restore(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range values {
		c.values[k] = v
	}
}
