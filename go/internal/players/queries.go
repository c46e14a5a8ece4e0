package players

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
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

type playerRow struct {
	ID        uuid.UUID
	Username  string
	Rating    int
	Wins      int
	Losses    int
	Draws     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

const playerColumns = `id, username, rating, wins, losses, draws, created_at, updated_at`

const createPlayer = `
INSERT INTO players (id, username, rating)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING
RETURNING ` + playerColumns

type CreatePlayerParams struct {
	ID       uuid.UUID
	Username string
	Rating   int
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (playerRow, error) {
	row := q.db.QueryRowContext(ctx, createPlayer, arg.ID, arg.Username, arg.Rating)
	return scanPlayer(row)
}

const getPlayer = `
SELECT ` + playerColumns + `
FROM players
WHERE id = $1`

func (q *Queries) GetPlayer(ctx context.Context, id uuid.UUID) (playerRow, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayer, id))
}

const getPlayerByUsername = `
SELECT ` + playerColumns + `
FROM players
WHERE username = $1`

func (q *Queries) GetPlayerByUsername(ctx context.Context, username string) (playerRow, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerByUsername, username))
}

const applyRatingResult = `
UPDATE players
SET rating = $2,
    wins = wins + $3,
    losses = losses + $4,
    draws = draws + $5,
    updated_at = now()
WHERE id = $1`

type ApplyRatingResultParams struct {
	ID     uuid.UUID
	Rating int
	Wins   int
	Losses int
	Draws  int
}

func (q *Queries) ApplyRatingResult(ctx context.Context, arg ApplyRatingResultParams) error {
	res, err := q.db.ExecContext(ctx, applyRatingResult,
		arg.ID,
		arg.Rating,
		arg.Wins,
		arg.Losses,
		arg.Draws,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const topPlayers = `
SELECT ` + playerColumns + `
FROM players
ORDER BY rating DESC, username ASC
LIMIT $1`

func (q *Queries) TopPlayers(ctx context.Context, limit int32) ([]playerRow, error) {
	rows, err := q.db.QueryContext(ctx, topPlayers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []playerRow
	for rows.Next() {
		var r playerRow
		if err := rows.Scan(&r.ID, &r.Username, &r.Rating, &r.Wins, &r.Losses, &r.Draws, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func scanPlayer(row *sql.Row) (playerRow, error) {
	var p playerRow
	err := row.Scan(&p.ID, &p.Username, &p.Rating, &p.Wins, &p.Losses, &p.Draws, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
