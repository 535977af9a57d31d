package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tixmill/event-booking/internal/domain"
	"github.com/tixmill/event-booking/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records every processed intent, including the fatal ones that
// leave no notification behind. Operational record only; it sits outside
// the consistency core and is written after commit.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("intent_audit"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	Outcome   string    `bson:"outcome"`
	UserID    uuid.UUID `bson:"user_id"`
	EventID   uuid.UUID `bson:"event_id"`
	Error     string    `bson:"error,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data,omitempty"`
}

func (a *AuditLogger) LogIntent(ctx context.Context, intent domain.Intent, outcome string, procErr error) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    intent.Action.String(),
		Outcome:   outcome,
		UserID:    intent.UserID,
		EventID:   intent.EventID,
		Timestamp: time.Now(),
	}
	if procErr != nil {
		log.Error = procErr.Error()
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).Error("failed to insert intent audit log")
		return err
	}
	return nil
}
