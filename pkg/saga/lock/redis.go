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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// releaseScript deletes the lock key only when the caller still owns it, so
// a lock that expired and was re-acquired by another node is never released
// by the stale owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a saga.OrderLocker backed by Redis SET NX with a TTL. The
// TTL bounds how long a crashed node can hold an order hostage.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a RedisLocker with the given lock TTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) key(orderID string) string {
	return "ordersaga:lock:" + orderID
}

// TryLock implements saga.OrderLocker.
func (l *RedisLocker) TryLock(ctx context.Context, orderID string) (string, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, l.key(orderID), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire order lock: %w", err)
	}
	if !ok {
		return "", saga.ErrOrderLocked
	}
	return token, nil
}

// Unlock implements saga.OrderLocker.
func (l *RedisLocker) Unlock(ctx context.Context, orderID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(orderID)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release order lock: %w", err)
	}
	return nil
}
