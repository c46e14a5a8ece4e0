package economy

import (
	"errors"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

// Coin amounts for match settlement. A decisive match pays the purse to
// the winner on top of participation; a draw splits the purse.
const (
	WinnerPurse         int64 = 50
	ParticipationReward int64 = 10
	DrawShare           int64 = WinnerPurse / 2
	SeedGrant           int64 = 100
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
)

// Entry is one ledger line of a settlement: who gets how many coins and
// why. Entries for the same match share the match id supplied alongside.
type Entry struct {
	PlayerID uuid.UUID
	TxType   models.CoinTransactionType
	Amount   int64
}
