package pg

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tixmill/event-booking/internal/domain"
)

const (
	serializationFailureCode = "40001"
	uniqueViolationCode      = "23505"
	checkViolationCode       = "23514"
)

// Store is the capacity store: the transactional source of truth for
// events, tickets, waiting-list entries and notifications.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// WithTx runs fn inside one SERIALIZABLE transaction. Serialization
// failures surface as domain.ErrSerializationFailure so callers can treat
// them as retryable.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email)
		VALUES ($1, $2, $3)
	`, user.ID, user.Name, user.Email)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return domain.ErrConflict
	}
	return err
}

func (s *Store) UserExists(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *Store) CreateEvent(ctx context.Context, event domain.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, title, location, description, start_at, end_at, total_tickets, available_tickets, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.ID, event.Title, event.Location, event.Description, event.StartAt, event.EndAt,
		event.TotalTickets, event.AvailableTickets, event.OwnerID)
	return err
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx, getEventSQL, id))
}

// GetEventTx reads the event snapshot inside the processor's transaction.
func (s *Store) GetEventTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Event, error) {
	return scanEvent(tx.QueryRow(ctx, getEventSQL, id))
}

const getEventSQL = `
	SELECT id, title, location, description, start_at, end_at, total_tickets, available_tickets, owner_id, created_at
	FROM events WHERE id = $1
`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var ev domain.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Location, &ev.Description, &ev.StartAt, &ev.EndAt,
		&ev.TotalTickets, &ev.AvailableTickets, &ev.OwnerID, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// AdjustAvailable moves available_tickets by delta. The table's CHECK
// constraint keeps the count inside [0, total_tickets]; a violation means a
// state-machine bug, surfaced as ErrConflict rather than silently clamped.
func (s *Store) AdjustAvailable(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, delta int) error {
	result, err := tx.Exec(ctx, `
		UPDATE events SET available_tickets = available_tickets + $2 WHERE id = $1
	`, eventID, delta)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolationCode {
		return errors.Wrap(domain.ErrConflict, "available_tickets out of range")
	}
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) InsertTicket(ctx context.Context, tx pgx.Tx, ticket domain.Ticket) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tickets (id, event_id, user_id)
		VALUES ($1, $2, $3)
	`, ticket.ID, ticket.EventID, ticket.UserID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return domain.ErrConflict
	}
	return err
}

func (s *Store) DeleteTicket(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindTicket returns the user's active ticket for the event, nil if none.
func (s *Store) FindTicket(ctx context.Context, tx pgx.Tx, eventID, userID uuid.UUID) (*domain.Ticket, error) {
	var t domain.Ticket
	err := tx.QueryRow(ctx, `
		SELECT id, event_id, user_id, created_at
		FROM tickets WHERE event_id = $1 AND user_id = $2
	`, eventID, userID).Scan(&t.ID, &t.EventID, &t.UserID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CountTickets(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM tickets WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

func (s *Store) InsertWaitingEntry(ctx context.Context, tx pgx.Tx, entry domain.WaitingListEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO waiting_list (id, event_id, user_id)
		VALUES ($1, $2, $3)
	`, entry.ID, entry.EventID, entry.UserID)
	return err
}

// FindWaitingEntry returns the user's waiting-list entry for the event, nil
// if none.
func (s *Store) FindWaitingEntry(ctx context.Context, tx pgx.Tx, eventID, userID uuid.UUID) (*domain.WaitingListEntry, error) {
	var e domain.WaitingListEntry
	err := tx.QueryRow(ctx, `
		SELECT id, event_id, user_id, created_at
		FROM waiting_list WHERE event_id = $1 AND user_id = $2
	`, eventID, userID).Scan(&e.ID, &e.EventID, &e.UserID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// WaitingHead returns the earliest waiting-list entry for the event, nil if
// the list is empty. Promotion order is created_at with id as tiebreaker.
func (s *Store) WaitingHead(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (*domain.WaitingListEntry, error) {
	var e domain.WaitingListEntry
	err := tx.QueryRow(ctx, `
		SELECT id, event_id, user_id, created_at
		FROM waiting_list WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, eventID).Scan(&e.ID, &e.EventID, &e.UserID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) DeleteWaitingEntry(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `DELETE FROM waiting_list WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) WaitingCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM waiting_list WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

func (s *Store) InsertNotification(ctx context.Context, tx pgx.Tx, n domain.Notification) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notifications (id, user_id, message)
		VALUES ($1, $2, $3)
	`, n.ID, n.UserID, n.Message)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, message, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// OwnedEvent is an event row with its ticket and waiting-list counts, for
// the owner-facing listing.
type OwnedEvent struct {
	Event        domain.Event
	TicketCount  int
	WaitingCount int
}

func (s *Store) ListEventsByOwner(ctx context.Context, ownerID uuid.UUID) ([]OwnedEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.title, e.location, e.description, e.start_at, e.end_at,
		       e.total_tickets, e.available_tickets, e.owner_id, e.created_at,
		       (SELECT count(*) FROM tickets t WHERE t.event_id = e.id),
		       (SELECT count(*) FROM waiting_list w WHERE w.event_id = e.id)
		FROM events e WHERE e.owner_id = $1
		ORDER BY e.created_at ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OwnedEvent
	for rows.Next() {
		var oe OwnedEvent
		ev := &oe.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Location, &ev.Description, &ev.StartAt, &ev.EndAt,
			&ev.TotalTickets, &ev.AvailableTickets, &ev.OwnerID, &ev.CreatedAt,
			&oe.TicketCount, &oe.WaitingCount); err != nil {
			return nil, err
		}
		out = append(out, oe)
	}
	return out, rows.Err()
}
