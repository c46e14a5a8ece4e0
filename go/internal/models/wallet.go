package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a player's spendable coin balance.
type Wallet struct {
	PlayerID  uuid.UUID `json:"player_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CoinTransactionType defines why coins moved.
type CoinTransactionType string

const (
	CoinTxWinnerPurse   CoinTransactionType = "WINNER_PURSE"
	CoinTxParticipation CoinTransactionType = "PARTICIPATION"
	CoinTxDrawShare     CoinTransactionType = "DRAW_SHARE"
	CoinTxSeedGrant     CoinTransactionType = "SEED_GRANT"
)

// CoinTransaction is one row of the append-only settlement ledger. The
// (player_id, match_id, tx_type) triple is unique so replayed settlements
// cannot double-pay.
type CoinTransaction struct {
	ID        uuid.UUID           `json:"id"`
	PlayerID  uuid.UUID           `json:"player_id"`
	MatchID   *uuid.UUID          `json:"match_id,omitempty"`
	TxType    CoinTransactionType `json:"tx_type"`
	Amount    int64               `json:"amount"`
	CreatedAt time.Time           `json:"created_at"`
}
