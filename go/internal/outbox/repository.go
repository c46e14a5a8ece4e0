package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const fetchUnsentOutbox = `
SELECT id, match_id, event_type, payload, created_at
FROM match_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.MatchID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

const markOutboxSent = `
UPDATE match_outbox SET sent_at = now() WHERE id = $1
`

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markOutboxSent, id)
	return err
}

const fetchOutboxByID = `
SELECT id, match_id, event_type, payload, created_at
FROM match_outbox
WHERE id = $1 AND sent_at IS NULL
`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (OutboxEvent, error) {
	var ev OutboxEvent
	err := q.db.QueryRowContext(ctx, fetchOutboxByID, id).Scan(&ev.ID, &ev.MatchID, &ev.EventType, &ev.Payload, &ev.CreatedAt)
	return ev, err
}

// Repository wraps the outbox queries for the relay side: fetching what
// has not been delivered and marking what has. Inserts happen inside the
// match repository's transaction, not here.
type Repository struct {
	queries *Queries
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{queries: New(database)}
}

func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	events, err := r.queries.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.MarkOutboxSent(ctx, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	ev, err := r.queries.FetchOutboxByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event not found or already sent")
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &ev, nil
}
