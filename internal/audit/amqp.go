package audit

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher pushes system events onto a broker queue so downstream
// consumers (digest mailers, analytics) can react without querying the
// primary database. Publishing is best-effort; callers discard errors.
type AMQPPublisher struct {
	url   string
	queue string
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher targets the given broker URL and queue.
func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	if queue == "" {
		queue = "portal.events"
	}
	return &AMQPPublisher{url: url, queue: queue}
}

// Publish sends one event as a persistent JSON message. A fresh connection
// per publish keeps the publisher stateless; event volume here is low.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
