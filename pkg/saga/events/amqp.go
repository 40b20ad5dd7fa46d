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
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/innovationmech/ordersaga/pkg/saga"
)

// AMQPPublisher publishes saga events to a RabbitMQ topic exchange using the
// event type as the routing key.
type AMQPPublisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher creates an AMQPPublisher and declares the topic exchange.
func NewAMQPPublisher(channel *amqp.Channel, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = "ordersaga.events"
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{channel: channel, exchange: exchange}, nil
}

// RecordEvent implements saga.EventRecorder.
func (p *AMQPPublisher) RecordEvent(ctx context.Context, event saga.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal saga event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.ID,
		Timestamp:   event.Timestamp,
		Body:        payload,
	}
	if err := p.channel.Publish(p.exchange, string(event.Type), false, false, pub); err != nil {
		return fmt.Errorf("publish saga event to %s: %w", p.exchange, err)
	}
	return nil
}
