package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// inside or outside a transaction.
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

const insertMatch = `
INSERT INTO matches (
    id, player_a, player_b, outcome, winner_id,
    score_a, score_b, rounds_played, tallies, rating_updates,
    started_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO NOTHING
`

type InsertMatchParams struct {
	ID            uuid.UUID
	PlayerA       uuid.UUID
	PlayerB       uuid.UUID
	Outcome       string
	WinnerID      uuid.NullUUID
	ScoreA        int
	ScoreB        int
	RoundsPlayed  int
	Tallies       []byte
	RatingUpdates pqtype.NullRawMessage
	StartedAt     time.Time
	CompletedAt   time.Time
}

// InsertMatch writes one finished match. It reports false when the match
// was already recorded, which callers treat as a completed replay.
func (q *Queries) InsertMatch(ctx context.Context, arg InsertMatchParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertMatch,
		arg.ID,
		arg.PlayerA,
		arg.PlayerB,
		arg.Outcome,
		arg.WinnerID,
		arg.ScoreA,
		arg.ScoreB,
		arg.RoundsPlayed,
		arg.Tallies,
		arg.RatingUpdates,
		arg.StartedAt,
		arg.CompletedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const insertOutboxEvent = `
INSERT INTO match_outbox (id, match_id, event_type, payload)
VALUES ($1, $2, $3, $4)
`

type InsertOutboxEventParams struct {
	ID        uuid.UUID
	MatchID   uuid.UUID
	EventType string
	Payload   []byte
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent, arg.ID, arg.MatchID, arg.EventType, arg.Payload)
	return err
}

const getMatch = `
SELECT id, outcome, winner_id, rounds_played, tallies, rating_updates, started_at, completed_at
FROM matches
WHERE id = $1
`

type matchRow struct {
	ID            uuid.UUID
	Outcome       string
	WinnerID      uuid.NullUUID
	RoundsPlayed  int
	Tallies       []byte
	RatingUpdates pqtype.NullRawMessage
	StartedAt     time.Time
	CompletedAt   time.Time
}

func (q *Queries) GetMatch(ctx context.Context, id uuid.UUID) (matchRow, error) {
	var row matchRow
	err := q.db.QueryRowContext(ctx, getMatch, id).Scan(
		&row.ID,
		&row.Outcome,
		&row.WinnerID,
		&row.RoundsPlayed,
		&row.Tallies,
		&row.RatingUpdates,
		&row.StartedAt,
		&row.CompletedAt,
	)
	return row, err
}

const listMatchesByPlayer = `
SELECT id, outcome, winner_id, rounds_played, tallies, rating_updates, started_at, completed_at
FROM matches
WHERE player_a = $1 OR player_b = $1
ORDER BY completed_at DESC
LIMIT $2
`

func (q *Queries) ListMatchesByPlayer(ctx context.Context, playerID uuid.UUID, limit int32) ([]matchRow, error) {
	rows, err := q.db.QueryContext(ctx, listMatchesByPlayer, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matchRow
	for rows.Next() {
		var row matchRow
		if err := rows.Scan(
			&row.ID,
			&row.Outcome,
			&row.WinnerID,
			&row.RoundsPlayed,
			&row.Tallies,
			&row.RatingUpdates,
			&row.StartedAt,
			&row.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
