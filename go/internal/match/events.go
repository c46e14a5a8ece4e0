package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

// MatchFound tells a queued player their duel has been formed. Each player
// receives their own copy carrying the opponent's public summary.
type MatchFound struct {
	MatchID       uuid.UUID            `json:"match_id"`
	Opponent      models.PlayerSummary `json:"opponent"`
	MaxRounds     int                  `json:"max_rounds"`
	RoundDuration time.Duration        `json:"round_duration"`
}

// RoundState is pushed to both players when a round opens, and replayed to
// a reconnecting player so they can resume mid-round. The question's answer
// key is excluded from serialization by the model itself.
type RoundState struct {
	MatchID   uuid.UUID             `json:"match_id"`
	Round     int                   `json:"round"`
	MaxRounds int                   `json:"max_rounds"`
	Question  models.Question       `json:"question"`
	Deadline  time.Time             `json:"deadline"`
	Players   [2]models.PlayerTally `json:"players"`
}

// RoundResult is pushed to both players after a round resolves. It reveals
// the answer key now that no further submissions can use it.
type RoundResult struct {
	MatchID  uuid.UUID             `json:"match_id"`
	Round    int                   `json:"round"`
	WinnerID *uuid.UUID            `json:"winner_id,omitempty"`
	Answer   string                `json:"answer"`
	Players  [2]models.PlayerTally `json:"players"`
}

// Snapshot is a point-in-time copy of a live session, safe to read outside
// the coordinator goroutine. Question and Deadline are only meaningful
// while a round is open.
type Snapshot struct {
	Session  models.MatchSession `json:"session"`
	Question *models.Question    `json:"question,omitempty"`
	Deadline time.Time           `json:"deadline,omitempty"`
}

// Broadcaster delivers match events to connected players. Implementations
// must not block: the coordinator calls these from its run loop and a
// stalled delivery would stall the match.
type Broadcaster interface {
	MatchFound(playerID uuid.UUID, found MatchFound)
	RoundStarted(playerID uuid.UUID, state RoundState)
	RoundResolved(playerID uuid.UUID, result RoundResult)
	MatchCompleted(playerID uuid.UUID, record *models.MatchRecord)
}
