package pg

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	location TEXT NOT NULL,
	description TEXT NOT NULL,
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	total_tickets INT NOT NULL CHECK (total_tickets > 0),
	available_tickets INT NOT NULL CHECK (available_tickets >= 0 AND available_tickets <= total_tickets),
	owner_id UUID NOT NULL REFERENCES users (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tickets (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events (id),
	user_id UUID NOT NULL REFERENCES users (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS waiting_list (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events (id),
	user_id UUID NOT NULL REFERENCES users (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS waiting_list_promotion_order ON waiting_list (event_id, created_at, id);

CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users (id),
	message TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS notifications_by_user ON notifications (user_id, created_at);

CREATE TABLE IF NOT EXISTS notification_outbox (
	id UUID PRIMARY KEY,
	notification_id UUID NOT NULL,
	user_id UUID NOT NULL,
	payload_json JSONB NOT NULL,
	status TEXT NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED')),
	dedupe_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS notification_outbox_unpublished ON notification_outbox (created_at) WHERE status = 'NEW';
`

// EnsureSchema creates all tables and indexes if missing. Idempotent;
// called by every binary at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
