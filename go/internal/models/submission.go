package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one player's answer for one round. At most one is accepted
// per (player, round); later submissions for the same round are rejected,
// never overwritten.
type Submission struct {
	PlayerID   uuid.UUID     `json:"player_id"`
	MatchID    uuid.UUID     `json:"match_id"`
	Round      int           `json:"round"`
	Answer     string        `json:"answer"`
	Correct    bool          `json:"correct"`
	ReceivedAt time.Time     `json:"received_at"`
	Elapsed    time.Duration `json:"elapsed"` // measured from round start, server clock
}
