package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QueueTicket is one waiting-pool entry: a player seeking an opponent.
// PlayerID is the pool's unique key; JoinedAt drives the wait bonus and
// the entry's expiry.
type QueueTicket struct {
	PlayerID uuid.UUID `json:"player_id"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
	JoinedAt time.Time `json:"joined_at"`
}

// WaitedFor returns how long the ticket has been queued as of now.
func (t QueueTicket) WaitedFor(now time.Time) time.Duration {
	return now.Sub(t.JoinedAt)
}

// MarshalBinary lets a ticket be stored directly as a Redis value.
func (t QueueTicket) MarshalBinary() ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalBinary restores a ticket from its Redis value.
func (t *QueueTicket) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, t)
}
