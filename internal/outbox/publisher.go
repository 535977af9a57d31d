package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tixmill/event-booking/internal/adapters/pg"
	"github.com/tixmill/event-booking/internal/adapters/rabbit"
	"github.com/tixmill/event-booking/internal/observability"
)

// Publisher drains the notification outbox into the broker. At-least-once:
// a crash between Publish and MarkPublished republishes the row, and
// downstream consumers dedupe on the message id.
type Publisher struct {
	store     *pg.Store
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(store *pg.Store, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{store: store, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			records, err := p.store.GetUnpublishedOutbox(ctx, 50)
			if err != nil {
				p.logger.WithError(err).Error("failed to fetch unpublished notifications")
				continue
			}
			if len(records) > 0 {
				observability.OutboxLag.Set(time.Since(records[0].CreatedAt).Seconds())
			} else {
				observability.OutboxLag.Set(0)
			}
			for _, rec := range records {
				msg := amqp.Publishing{
					MessageId:   rec.DedupeKey,
					ContentType: "application/json",
					Body:        rec.Payload,
				}
				if err := p.rabbitPub.Publish(ctx, "notification.created", msg); err != nil {
					p.logger.WithError(err).Warn("failed to publish notification")
					continue
				}
				if err := p.store.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
					p.logger.WithError(err).Error("failed to mark notification published")
				}
			}
		}
	}
}
