package economy

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type walletRow struct {
	PlayerID  uuid.UUID
	Balance   int64
	UpdatedAt time.Time
}

type coinTransactionRow struct {
	ID        uuid.UUID
	PlayerID  uuid.UUID
	MatchID   uuid.NullUUID
	TxType    string
	Amount    int64
	CreatedAt time.Time
}

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

const insertCoinTransaction = `
INSERT INTO coin_transactions (id, player_id, match_id, tx_type, amount)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING
`

type InsertCoinTransactionParams struct {
	ID       uuid.UUID
	PlayerID uuid.UUID
	MatchID  uuid.NullUUID
	TxType   string
	Amount   int64
}

// InsertCoinTransaction appends one ledger row. It reports false when an
// equivalent row already exists, meaning this credit was applied before.
func (q *Queries) InsertCoinTransaction(ctx context.Context, arg InsertCoinTransactionParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertCoinTransaction,
		arg.ID,
		arg.PlayerID,
		arg.MatchID,
		arg.TxType,
		arg.Amount,
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

const creditWallet = `
INSERT INTO wallets (player_id, balance, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (player_id) DO UPDATE
SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()
`

func (q *Queries) CreditWallet(ctx context.Context, playerID uuid.UUID, amount int64) error {
	_, err := q.db.ExecContext(ctx, creditWallet, playerID, amount)
	return err
}

const getWallet = `
SELECT player_id, balance, updated_at
FROM wallets
WHERE player_id = $1
`

func (q *Queries) GetWallet(ctx context.Context, playerID uuid.UUID) (walletRow, error) {
	row := q.db.QueryRowContext(ctx, getWallet, playerID)
	var w walletRow
	err := row.Scan(&w.PlayerID, &w.Balance, &w.UpdatedAt)
	return w, err
}

const listCoinTransactions = `
SELECT id, player_id, match_id, tx_type, amount, created_at
FROM coin_transactions
WHERE player_id = $1
ORDER BY created_at DESC
LIMIT $2
`

func (q *Queries) ListCoinTransactions(ctx context.Context, playerID uuid.UUID, limit int32) ([]coinTransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listCoinTransactions, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []coinTransactionRow
	for rows.Next() {
		var r coinTransactionRow
		if err := rows.Scan(&r.ID, &r.PlayerID, &r.MatchID, &r.TxType, &r.Amount, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
