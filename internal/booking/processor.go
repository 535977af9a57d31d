package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tixmill/event-booking/internal/adapters/mongo"
	"github.com/tixmill/event-booking/internal/adapters/pg"
	"github.com/tixmill/event-booking/internal/adapters/rabbit"
	"github.com/tixmill/event-booking/internal/domain"
	"github.com/tixmill/event-booking/internal/observability"
)

// Outcome labels for metrics and the audit trail.
const (
	OutcomeTicketIssued   = "ticket_issued"
	OutcomeWaitlisted     = "waitlisted"
	OutcomeAlreadyBooked  = "already_booked"
	OutcomeAlreadyWaiting = "already_waiting"
	OutcomeCancelled      = "cancelled"
	OutcomePromoted       = "cancelled_promoted"
	OutcomeNoTicket       = "no_ticket"
	OutcomeNotFound       = "not_found"
	OutcomeInvalid        = "invalid"
)

// Processor is the serialized consumer of the booking intent queue. The
// consumer channel has prefetch 1 and Run drains it from a single
// goroutine, so at most one transition is in flight per deployment.
// Deliveries are acked only after the store transaction commits.
type Processor struct {
	store    *pg.Store
	consumer *rabbit.Consumer
	audit    *mongo.AuditLogger
	logger   observability.Logger
}

func NewProcessor(store *pg.Store, consumer *rabbit.Consumer, audit *mongo.AuditLogger, logger observability.Logger) *Processor {
	return &Processor{store: store, consumer: consumer, audit: audit, logger: logger}
}

func (p *Processor) Run(ctx context.Context) error {
	deliveries, err := p.consumer.Consume(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("booking processor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("intent delivery channel closed")
			}
			p.handle(ctx, d)
		}
	}
}

func (p *Processor) handle(ctx context.Context, d amqp.Delivery) {
	tracer := otel.Tracer("booking")
	ctx, span := tracer.Start(ctx, "process intent")
	defer span.End()

	var intent domain.Intent
	if err := json.Unmarshal(d.Body, &intent); err != nil {
		// Poison message: no valid intent to retry or notify about.
		p.logger.WithError(err).Error("discarding undecodable intent")
		observability.IntentsProcessed.WithLabelValues("unknown", OutcomeInvalid).Inc()
		d.Ack(false)
		return
	}

	span.SetAttributes(
		attribute.String("intent.action", intent.Action.String()),
		attribute.String("intent.event_id", intent.EventID.String()),
	)

	log := p.logger.
		WithField("action", intent.Action.String()).
		WithField("user_id", intent.UserID.String()).
		WithField("event_id", intent.EventID.String())

	start := time.Now()
	outcome, err := p.Apply(ctx, intent)
	observability.IntentTxDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		observability.IntentsProcessed.WithLabelValues(intent.Action.String(), outcome).Inc()
		log.WithField("outcome", outcome).Info("intent processed")
		p.recordAudit(ctx, intent, outcome, nil)
		d.Ack(false)

	case errors.Is(err, domain.ErrNotFound):
		// Fatal for this intent: nothing was mutated and there is nobody
		// to notify. Logged and discarded, never retried.
		observability.IntentsProcessed.WithLabelValues(intent.Action.String(), OutcomeNotFound).Inc()
		log.WithError(err).Warn("intent references missing event or user")
		p.recordAudit(ctx, intent, OutcomeNotFound, err)
		d.Ack(false)

	case errors.Is(err, domain.ErrConflict):
		// Constraint safety net fired; retrying would fail the same way.
		observability.IntentsProcessed.WithLabelValues(intent.Action.String(), OutcomeInvalid).Inc()
		log.WithError(err).Error("intent violated a store constraint")
		p.recordAudit(ctx, intent, OutcomeInvalid, err)
		d.Ack(false)

	default:
		// Transient store failure: requeue for redelivery. The ack-after-
		// commit discipline means nothing was committed for this delivery.
		observability.IntentRedeliveries.Inc()
		log.WithError(err).Warn("intent processing failed, requeueing")
		d.Nack(false, true)
	}
}

func (p *Processor) recordAudit(ctx context.Context, intent domain.Intent, outcome string, procErr error) {
	if p.audit == nil {
		return
	}
	p.audit.LogIntent(ctx, intent, outcome, procErr)
}

// Apply runs one intent's transition as a single transaction: snapshot the
// event, check the user, let the state machine decide, apply every write,
// commit. Returns the outcome label on success.
func (p *Processor) Apply(ctx context.Context, intent domain.Intent) (string, error) {
	var outcome string
	err := p.store.WithTx(ctx, func(tx pgx.Tx) error {
		event, err := p.store.GetEventTx(ctx, tx, intent.EventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errors.Wrapf(domain.ErrNotFound, "event %s", intent.EventID)
			}
			return err
		}

		userExists, err := p.store.UserExists(ctx, tx, intent.UserID)
		if err != nil {
			return err
		}
		if !userExists {
			return errors.Wrapf(domain.ErrNotFound, "user %s", intent.UserID)
		}

		switch intent.Action {
		case domain.ActionBook:
			outcome, err = p.applyBook(ctx, tx, *event, intent)
		case domain.ActionCancel:
			outcome, err = p.applyCancel(ctx, tx, *event, intent)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (p *Processor) applyBook(ctx context.Context, tx pgx.Tx, event domain.Event, intent domain.Intent) (string, error) {
	existing, err := p.store.FindTicket(ctx, tx, intent.EventID, intent.UserID)
	if err != nil {
		return "", err
	}
	waiting, err := p.store.FindWaitingEntry(ctx, tx, intent.EventID, intent.UserID)
	if err != nil {
		return "", err
	}

	decision := domain.DecideBook(event, intent.UserID, existing != nil, waiting != nil)

	if decision.Ticket != nil {
		if err := p.store.InsertTicket(ctx, tx, *decision.Ticket); err != nil {
			return "", err
		}
	}
	if decision.WaitingEntry != nil {
		if err := p.store.InsertWaitingEntry(ctx, tx, *decision.WaitingEntry); err != nil {
			return "", err
		}
	}
	if decision.AvailableDelta != 0 {
		if err := p.store.AdjustAvailable(ctx, tx, event.ID, decision.AvailableDelta); err != nil {
			return "", err
		}
	}
	if err := p.store.NotifyTx(ctx, tx, decision.Notification); err != nil {
		return "", err
	}

	switch decision.Outcome {
	case domain.BookOutcomeTicketIssued:
		return OutcomeTicketIssued, nil
	case domain.BookOutcomeWaitlisted:
		return OutcomeWaitlisted, nil
	case domain.BookOutcomeAlreadyWaiting:
		return OutcomeAlreadyWaiting, nil
	default:
		return OutcomeAlreadyBooked, nil
	}
}

func (p *Processor) applyCancel(ctx context.Context, tx pgx.Tx, event domain.Event, intent domain.Intent) (string, error) {
	ticket, err := p.store.FindTicket(ctx, tx, intent.EventID, intent.UserID)
	if err != nil {
		return "", err
	}

	var waitingHead *domain.WaitingListEntry
	if ticket != nil {
		waitingHead, err = p.store.WaitingHead(ctx, tx, intent.EventID)
		if err != nil {
			return "", err
		}
	}

	decision := domain.DecideCancel(event, intent.UserID, ticket, waitingHead)

	if decision.Outcome == domain.CancelOutcomeNoTicket {
		if err := p.store.NotifyTx(ctx, tx, decision.Notification); err != nil {
			return "", err
		}
		return OutcomeNoTicket, nil
	}

	if err := p.store.DeleteTicket(ctx, tx, decision.DeleteTicketID); err != nil {
		return "", err
	}
	if decision.AvailableDelta != 0 {
		if err := p.store.AdjustAvailable(ctx, tx, event.ID, decision.AvailableDelta); err != nil {
			return "", err
		}
	}
	if err := p.store.NotifyTx(ctx, tx, decision.Notification); err != nil {
		return "", err
	}

	if decision.Promotion == nil {
		return OutcomeCancelled, nil
	}

	promo := decision.Promotion
	if err := p.store.InsertTicket(ctx, tx, promo.Ticket); err != nil {
		return "", err
	}
	if err := p.store.DeleteWaitingEntry(ctx, tx, promo.DeleteWaitingEntry); err != nil {
		return "", err
	}
	if err := p.store.NotifyTx(ctx, tx, promo.Notification); err != nil {
		return "", err
	}
	return OutcomePromoted, nil
}
