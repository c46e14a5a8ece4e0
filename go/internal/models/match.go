package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the lifecycle state of a match session.
type MatchStatus string

const (
	MatchStatusForming       MatchStatus = "FORMING"
	MatchStatusInRound       MatchStatus = "IN_ROUND"
	MatchStatusRoundResolved MatchStatus = "ROUND_RESOLVED"
	MatchStatusCompleted     MatchStatus = "COMPLETED"
	MatchStatusAbandoned     MatchStatus = "ABANDONED"
	MatchStatusError         MatchStatus = "ERROR"
)

// Terminal reports whether no further transitions are possible.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusAbandoned || s == MatchStatusError
}

// PlayerTally tracks one player's running results within a session. The
// response-time sum feeds the accuracy and average-time tie-breaks.
type PlayerTally struct {
	PlayerID       uuid.UUID     `json:"player_id"`
	Username       string        `json:"username"`
	Rating         int           `json:"rating"` // rating at match start
	Score          int           `json:"score"`
	CorrectAnswers int           `json:"correct_answers"`
	TotalAnswers   int           `json:"total_answers"`
	TotalResponse  time.Duration `json:"total_response"`
}

// Accuracy returns correct ÷ answered, zero when nothing was answered.
func (t *PlayerTally) Accuracy() float64 {
	if t.TotalAnswers == 0 {
		return 0
	}
	return float64(t.CorrectAnswers) / float64(t.TotalAnswers)
}

// AvgResponse returns the mean time from round start to answer, zero when
// nothing was answered.
func (t *PlayerTally) AvgResponse() time.Duration {
	if t.TotalAnswers == 0 {
		return 0
	}
	return t.TotalResponse / time.Duration(t.TotalAnswers)
}

// MatchSession is the authoritative record of one duel. Created atomically
// by match formation, mutated only by the coordinator that owns it.
type MatchSession struct {
	ID           uuid.UUID      `json:"id"`
	Players      [2]PlayerTally `json:"players"`
	Status       MatchStatus    `json:"status"`
	CurrentRound int            `json:"current_round"`
	MaxRounds    int            `json:"max_rounds"`
	WinnerID     *uuid.UUID     `json:"winner_id,omitempty"`
	Draw         bool           `json:"draw"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// TallyFor returns the tally owned by the given player, nil if the player
// is not part of this session.
func (m *MatchSession) TallyFor(playerID uuid.UUID) *PlayerTally {
	for i := range m.Players {
		if m.Players[i].PlayerID == playerID {
			return &m.Players[i]
		}
	}
	return nil
}

// OpponentOf returns the other player's tally, nil if playerID is unknown.
func (m *MatchSession) OpponentOf(playerID uuid.UUID) *PlayerTally {
	for i := range m.Players {
		if m.Players[i].PlayerID != playerID {
			continue
		}
		return &m.Players[1-i]
	}
	return nil
}

// HasPlayer reports whether the player belongs to this session.
func (m *MatchSession) HasPlayer(playerID uuid.UUID) bool {
	return m.TallyFor(playerID) != nil
}
