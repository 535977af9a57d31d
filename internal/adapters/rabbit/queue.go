package rabbit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tixmill/event-booking/internal/domain"
)

// IntentQueueName is the durable queue carrying booking/cancellation
// intents. Messages survive broker restarts (durable queue, persistent
// delivery mode) and are redelivered until acked.
const IntentQueueName = "booking.intents.q"

// IntentQueue is the enqueue side of the booking intent channel.
type IntentQueue struct {
	ch *amqp.Channel
}

func NewIntentQueue(conn *amqp.Connection) (*IntentQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(IntentQueueName, true, false, false, false, nil); err != nil {
		return nil, err
	}
	// Publisher confirms: Enqueue does not return until the broker has
	// taken responsibility for the message.
	if err := ch.Confirm(false); err != nil {
		return nil, err
	}
	return &IntentQueue{ch: ch}, nil
}

func (q *IntentQueue) Enqueue(ctx context.Context, intent domain.Intent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	confirm, err := q.ch.PublishWithDeferredConfirmWithContext(ctx, "", IntentQueueName, false, false, amqp.Publishing{
		MessageId:    uuid.New().String(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return err
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("intent enqueue nacked by broker")
	}
	return nil
}
