package economy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/models"
)

// Store is the persistence surface the app needs.
type Store interface {
	ApplySettlement(ctx context.Context, matchID uuid.UUID, entries []Entry) (int, error)
	GrantSeed(ctx context.Context, playerID uuid.UUID, amount int64) (bool, error)
	GetWallet(ctx context.Context, playerID uuid.UUID) (*models.Wallet, error)
	ListTransactions(ctx context.Context, playerID uuid.UUID, limit int32) ([]models.CoinTransaction, error)
}

// App turns match outcomes into coin movements. It is called inline by
// the finalizer and again by the reconciler when the inline call was
// lost, so everything it does must tolerate replays.
type App struct {
	store Store
}

func NewApp(store Store) *App {
	return &App{store: store}
}

// ApplySettlement pays out one finished match. Both players earn the
// participation reward, the winner collects the purse, and a draw splits
// the purse instead. Aborted matches pay nothing.
func (a *App) ApplySettlement(ctx context.Context, record *models.MatchRecord) error {
	if record.Outcome == models.MatchOutcomeAborted {
		log.Debug().
			Str("match_id", record.MatchID.String()).
			Msg("aborted match, skipping settlement")
		return nil
	}

	entries := settlementEntries(record)
	applied, err := a.store.ApplySettlement(ctx, record.MatchID, entries)
	if err != nil {
		return fmt.Errorf("failed to apply settlement: %w", err)
	}
	if applied == 0 {
		log.Debug().
			Str("match_id", record.MatchID.String()).
			Msg("match already settled")
		return nil
	}
	log.Info().
		Str("match_id", record.MatchID.String()).
		Str("outcome", string(record.Outcome)).
		Int("credits", applied).
		Msg("settled match coins")
	return nil
}

// settlementEntries lists every credit a match outcome produces.
func settlementEntries(record *models.MatchRecord) []Entry {
	entries := make([]Entry, 0, 4)
	for _, p := range record.Players {
		entries = append(entries, Entry{
			PlayerID: p.PlayerID,
			TxType:   models.CoinTxParticipation,
			Amount:   ParticipationReward,
		})
	}
	switch {
	case record.Draw():
		for _, p := range record.Players {
			entries = append(entries, Entry{
				PlayerID: p.PlayerID,
				TxType:   models.CoinTxDrawShare,
				Amount:   DrawShare,
			})
		}
	case record.WinnerID != nil:
		entries = append(entries, Entry{
			PlayerID: *record.WinnerID,
			TxType:   models.CoinTxWinnerPurse,
			Amount:   WinnerPurse,
		})
	}
	return entries
}

// SeedNewPlayer grants the starting balance exactly once.
func (a *App) SeedNewPlayer(ctx context.Context, playerID uuid.UUID) error {
	granted, err := a.store.GrantSeed(ctx, playerID, SeedGrant)
	if err != nil {
		return fmt.Errorf("failed to grant seed coins: %w", err)
	}
	if granted {
		log.Info().
			Str("player_id", playerID.String()).
			Int64("amount", SeedGrant).
			Msg("granted seed coins")
	}
	return nil
}

// Wallet returns the player's current balance.
func (a *App) Wallet(ctx context.Context, playerID uuid.UUID) (*models.Wallet, error) {
	return a.store.GetWallet(ctx, playerID)
}

// Transactions returns the player's recent ledger history.
func (a *App) Transactions(ctx context.Context, playerID uuid.UUID, limit int32) ([]models.CoinTransaction, error) {
	return a.store.ListTransactions(ctx, playerID, limit)
}
