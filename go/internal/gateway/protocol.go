package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

// MessageType tags every envelope crossing the socket. The set is closed:
// anything outside it is rejected at ingress.
type MessageType string

// Client to server.
const (
	TypeAuthenticate      MessageType = "AUTHENTICATE"
	TypeStartMatchmaking  MessageType = "START_MATCHMAKING"
	TypeCancelMatchmaking MessageType = "CANCEL_MATCHMAKING"
	TypeSubmitAnswer      MessageType = "SUBMIT_ANSWER"
	TypeForfeit           MessageType = "FORFEIT"
	TypePing              MessageType = "PING"
)

// Server to client.
const (
	TypeMatchFound         MessageType = "MATCH_FOUND"
	TypeGameState          MessageType = "GAME_STATE"
	TypeRoundResult        MessageType = "ROUND_RESULT"
	TypeGameCompleted      MessageType = "GAME_COMPLETED"
	TypeQueueUpdate        MessageType = "QUEUE_UPDATE"
	TypeMatchmakingTimeout MessageType = "MATCHMAKING_TIMEOUT"
	TypeError              MessageType = "ERROR"
	TypePong               MessageType = "PONG"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var inboundTypes = map[MessageType]bool{
	TypeAuthenticate:      true,
	TypeStartMatchmaking:  true,
	TypeCancelMatchmaking: true,
	TypeSubmitAnswer:      true,
	TypeForfeit:           true,
	TypePing:              true,
}

// decodeInbound parses a raw frame into an envelope, admitting only the
// client-to-server message set.
func decodeInbound(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, NewValidationError("malformed envelope: %v", err)
	}
	if env.Type == "" {
		return Envelope{}, NewValidationError("envelope missing type")
	}
	if !inboundTypes[env.Type] {
		return Envelope{}, NewValidationError("unknown message type %q", env.Type)
	}
	return env, nil
}

// encode wraps a payload in an envelope and marshals the frame.
func encode(t MessageType, payload any) ([]byte, error) {
	env := Envelope{Type: t}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// AuthenticatePayload carries the verified identity. When Token is set
// and an identity verifier is configured, the token's identity wins over
// the inline fields.
type AuthenticatePayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Token    string `json:"token,omitempty"`
}

// SubmitAnswerPayload is one round answer. PlayerID must match the
// connection's bound identity.
type SubmitAnswerPayload struct {
	PlayerID  string    `json:"player_id"`
	MatchID   string    `json:"match_id"`
	Round     int       `json:"round"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// MatchFoundPayload tells a queued player their duel is starting.
type MatchFoundPayload struct {
	MatchID          string               `json:"match_id"`
	Opponent         models.PlayerSummary `json:"opponent"`
	MaxRounds        int                  `json:"max_rounds"`
	RoundDurationSec int                  `json:"round_duration_sec"`
}

// GameStatePayload is the full visible state of a live session: pushed
// when a round opens and replayed on reconnect.
type GameStatePayload struct {
	MatchID          string                `json:"match_id"`
	Status           string                `json:"status"`
	Round            int                   `json:"round"`
	MaxRounds        int                   `json:"max_rounds"`
	Question         *models.Question      `json:"question,omitempty"`
	Deadline         *time.Time            `json:"deadline,omitempty"`
	TimeRemainingSec int                   `json:"time_remaining_sec"`
	Players          [2]models.PlayerTally `json:"players"`
}

// RoundResultPayload reveals the answer key and the round's outcome.
type RoundResultPayload struct {
	MatchID  string                `json:"match_id"`
	Round    int                   `json:"round"`
	WinnerID *uuid.UUID            `json:"winner_id,omitempty"`
	Answer   string                `json:"answer"`
	Players  [2]models.PlayerTally `json:"players"`
}

// GameCompletedPayload closes out a match for one player. RatingDelta is
// the receiving player's own adjustment.
type GameCompletedPayload struct {
	Record      *models.MatchRecord `json:"record"`
	RatingDelta int                 `json:"rating_delta"`
}

// QueueUpdatePayload is a queued player's current standing.
type QueueUpdatePayload struct {
	Position         int `json:"position"`
	EstimatedWaitSec int `json:"estimated_wait_sec"`
}

// MatchmakingTimeoutPayload reports a queue entry that expired unmatched.
type MatchmakingTimeoutPayload struct {
	WaitedSec int    `json:"waited_sec"`
	Message   string `json:"message"`
}

// ErrorPayload is the error envelope body.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// PongPayload answers an application-level ping.
type PongPayload struct {
	Time time.Time `json:"time"`
}

// timeRemainingSec converts an absolute deadline into whole seconds left,
// clamped at zero.
func timeRemainingSec(deadline time.Time) int {
	if deadline.IsZero() {
		return 0
	}
	remaining := int(time.Until(deadline).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
