package economy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/sqlutil"
)

// Repository persists wallets and the coin transaction ledger. Every
// settlement runs as one transaction so a wallet is never credited
// without its ledger row.
type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: New(database),
	}
}

// ApplySettlement writes the ledger rows for one match and credits each
// wallet whose row was new. Replays find their rows already present and
// credit nothing, so the returned count is the number of fresh credits.
func (r *Repository) ApplySettlement(ctx context.Context, matchID uuid.UUID, entries []Entry) (int, error) {
	applied := 0
	err := sqlutil.Run(ctx, r.db,
		func(tx *sql.Tx) *Queries { return r.queries.WithTx(tx) },
		func(q *Queries) error {
			for _, e := range entries {
				inserted, err := q.InsertCoinTransaction(ctx, InsertCoinTransactionParams{
					ID:       uuid.New(),
					PlayerID: e.PlayerID,
					MatchID:  uuid.NullUUID{UUID: matchID, Valid: true},
					TxType:   string(e.TxType),
					Amount:   e.Amount,
				})
				if err != nil {
					return fmt.Errorf("failed to insert coin transaction: %w", err)
				}
				if !inserted {
					continue
				}
				if err := q.CreditWallet(ctx, e.PlayerID, e.Amount); err != nil {
					return fmt.Errorf("failed to credit wallet: %w", err)
				}
				applied++
			}
			return nil
		})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

// GrantSeed credits a brand-new player's starting balance. The ledger
// keeps at most one seed grant per player, so calling this again is a
// no-op.
func (r *Repository) GrantSeed(ctx context.Context, playerID uuid.UUID, amount int64) (bool, error) {
	granted := false
	err := sqlutil.Run(ctx, r.db,
		func(tx *sql.Tx) *Queries { return r.queries.WithTx(tx) },
		func(q *Queries) error {
			inserted, err := q.InsertCoinTransaction(ctx, InsertCoinTransactionParams{
				ID:       uuid.New(),
				PlayerID: playerID,
				TxType:   string(models.CoinTxSeedGrant),
				Amount:   amount,
			})
			if err != nil {
				return fmt.Errorf("failed to insert seed grant: %w", err)
			}
			if !inserted {
				return nil
			}
			if err := q.CreditWallet(ctx, playerID, amount); err != nil {
				return fmt.Errorf("failed to credit wallet: %w", err)
			}
			granted = true
			return nil
		})
	if err != nil {
		return false, err
	}
	return granted, nil
}

// GetWallet loads one player's balance.
func (r *Repository) GetWallet(ctx context.Context, playerID uuid.UUID) (*models.Wallet, error) {
	row, err := r.queries.GetWallet(ctx, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &models.Wallet{
		PlayerID:  row.PlayerID,
		Balance:   row.Balance,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// ListTransactions returns the player's most recent ledger rows.
func (r *Repository) ListTransactions(ctx context.Context, playerID uuid.UUID, limit int32) ([]models.CoinTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.queries.ListCoinTransactions(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list coin transactions: %w", err)
	}
	txs := make([]models.CoinTransaction, 0, len(rows))
	for _, row := range rows {
		tx := models.CoinTransaction{
			ID:        row.ID,
			PlayerID:  row.PlayerID,
			TxType:    models.CoinTransactionType(row.TxType),
			Amount:    row.Amount,
			CreatedAt: row.CreatedAt,
		}
		if row.MatchID.Valid {
			id := row.MatchID.UUID
			tx.MatchID = &id
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
