package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

const notificationsExchange = "booking.notifications"

// Publisher fans processed notifications out to the topic exchange.
// Delivery to end users (poll, push, email) is downstream of this exchange.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(notificationsExchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, notificationsExchange, key, false, false, msg)
}
