package pg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tixmill/event-booking/internal/domain"
)

// OutboxRecord is one notification awaiting publication to the broker.
// Rows are written in the same transaction as the notification itself, so
// a committed transition always has its fan-out queued.
type OutboxRecord struct {
	ID             uuid.UUID
	NotificationID uuid.UUID
	UserID         uuid.UUID
	Payload        []byte
	Status         string // NEW, PUBLISHED
	DedupeKey      string
	CreatedAt      time.Time
	PublishedAt    *time.Time
}

func NewOutboxRecord(n domain.Notification) (OutboxRecord, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"message":         n.Message,
	})
	if err != nil {
		return OutboxRecord{}, err
	}
	return OutboxRecord{
		ID:             uuid.New(),
		NotificationID: n.ID,
		UserID:         n.UserID,
		Payload:        payload,
		DedupeKey:      n.ID.String(),
	}, nil
}

func (s *Store) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notification_outbox (id, notification_id, user_id, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, 'NEW', $5)
	`, record.ID, record.NotificationID, record.UserID, record.Payload, record.DedupeKey)
	return err
}

// NotifyTx inserts a notification together with its outbox row.
func (s *Store) NotifyTx(ctx context.Context, tx pgx.Tx, n domain.Notification) error {
	if err := s.InsertNotification(ctx, tx, n); err != nil {
		return err
	}
	record, err := NewOutboxRecord(n)
	if err != nil {
		return err
	}
	return s.InsertOutbox(ctx, tx, record)
}

func (s *Store) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, notification_id, user_id, payload_json, status, dedupe_key, created_at, published_at
		FROM notification_outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.NotificationID, &rec.UserID, &rec.Payload, &rec.Status, &rec.DedupeKey, &rec.CreatedAt, &rec.PublishedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notification_outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}
