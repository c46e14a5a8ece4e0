package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchOutcome defines how a match reached its end.
type MatchOutcome string

const (
	MatchOutcomeWin     MatchOutcome = "WIN"
	MatchOutcomeDraw    MatchOutcome = "DRAW"
	MatchOutcomeForfeit MatchOutcome = "FORFEIT"
	MatchOutcomeAborted MatchOutcome = "ABORTED"
)

// MatchRecord is the persisted summary of a finished match, assembled by
// the finalizer and handed to the persistence and settlement collaborators.
type MatchRecord struct {
	MatchID       uuid.UUID                  `json:"match_id"`
	Players       [2]PlayerTally             `json:"players"`
	Outcome       MatchOutcome               `json:"outcome"`
	WinnerID      *uuid.UUID                 `json:"winner_id,omitempty"`
	RatingUpdates map[uuid.UUID]RatingUpdate `json:"rating_updates"`
	RoundsPlayed  int                        `json:"rounds_played"`
	StartedAt     time.Time                  `json:"started_at"`
	CompletedAt   time.Time                  `json:"completed_at"`
}

// Draw reports whether the match ended without a unique winner.
func (r *MatchRecord) Draw() bool {
	return r.Outcome == MatchOutcomeDraw
}

// DeltaFor returns the rating delta applied to the given player, zero if
// no update was recorded for them.
func (r *MatchRecord) DeltaFor(playerID uuid.UUID) int {
	if u, ok := r.RatingUpdates[playerID]; ok {
		return u.Delta
	}
	return 0
}
