package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried through the match outbox. The payload for
// EventTypeMatchCompleted is the full models.MatchRecord.
const (
	EventTypeMatchCompleted = "MatchCompleted"
)

// OutboxEvent is one pending or delivered settlement event. Rows are
// written in the same transaction as the match record and relayed to the
// message bus by the listener.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	MatchID   uuid.UUID       `json:"match_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// EventPublisher delivers outbox events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
