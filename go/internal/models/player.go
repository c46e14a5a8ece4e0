package models

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a registered duelist in the system
type Player struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerSummary is the opponent-facing slice of a Player, safe to send to
// the other side of a match.
type PlayerSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
}

// Summary trims a Player down to what an opponent is allowed to see.
func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{ID: p.ID, Username: p.Username, Rating: p.Rating}
}
