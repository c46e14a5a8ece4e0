package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/match"
	"github.com/floraclash/floraclash/go/internal/matchmaking"
	"github.com/floraclash/floraclash/go/internal/models"
)

// Queue is the matchmaking surface the gateway dispatches into.
type Queue interface {
	Join(ctx context.Context, playerID uuid.UUID, username string, rating int) (matchmaking.QueueStatus, error)
	Leave(ctx context.Context, playerID uuid.UUID) error
}

// MatchService is the live-session surface the gateway dispatches into.
type MatchService interface {
	SubmitAnswer(ctx context.Context, playerID, matchID uuid.UUID, round int, answer string) error
	Reconnect(ctx context.Context, playerID uuid.UUID) (match.Snapshot, error)
	Disconnect(ctx context.Context, playerID uuid.UUID) error
	Forfeit(ctx context.Context, playerID uuid.UUID) error
	Busy(playerID uuid.UUID) bool
}

// Identity is a verified player identity from the identity collaborator.
type Identity struct {
	PlayerID uuid.UUID
	Username string
	Rating   int
}

// IdentityVerifier exchanges an opaque token for a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ProfileSource looks up stored player profiles so authentication uses
// the durable rating rather than whatever the client claims.
type ProfileSource interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
}

// Service is the realtime transport: it owns the connection manager,
// validates every inbound envelope, dispatches into matchmaking and live
// matches, and fans match events back out. It implements
// match.Broadcaster and matchmaking.QueueListener.
type Service struct {
	manager  *ConnectionManager
	queue    Queue
	matches  MatchService
	verifier IdentityVerifier
	profiles ProfileSource
	config   ConnectionConfig
}

// NewService wires the gateway. verifier and profiles may be nil: without
// a verifier the inline identity fields are trusted, and without a
// profile source the client-supplied rating is used as-is.
func NewService(config ConnectionConfig, queue Queue, matches MatchService, verifier IdentityVerifier, profiles ProfileSource) *Service {
	s := &Service{
		queue:    queue,
		matches:  matches,
		verifier: verifier,
		profiles: profiles,
		config:   config,
	}
	s.manager = NewConnectionManager(config, s)
	return s
}

// Start pins the lifetime context for connection goroutines.
func (s *Service) Start(ctx context.Context) {
	s.manager.Start(ctx)
}

// Manager exposes the connection manager, mainly for stats.
func (s *Service) Manager() *ConnectionManager { return s.manager }

// HandleWS upgrades an HTTP request into a managed connection.
func (s *Service) HandleWS(w http.ResponseWriter, r *http.Request) {
	if _, err := s.manager.Upgrade(w, r); err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleWS)
}

// HandleMessage validates and dispatches one inbound frame. Malformed
// input is answered with an ERROR envelope; repeated protocol faults from
// the same connection close it.
func (s *Service) HandleMessage(ctx context.Context, conn *Connection, raw []byte) {
	env, err := decodeInbound(raw)
	if err != nil {
		s.protocolFault(conn, classify(err))
		return
	}

	var handleErr error
	switch env.Type {
	case TypeAuthenticate:
		handleErr = s.handleAuthenticate(ctx, conn, env.Data)
	case TypePing:
		s.manager.sendOn(conn, TypePong, PongPayload{Time: time.Now().UTC()})
		return
	case TypeStartMatchmaking:
		handleErr = s.handleStartMatchmaking(ctx, conn)
	case TypeCancelMatchmaking:
		handleErr = s.handleCancelMatchmaking(ctx, conn)
	case TypeSubmitAnswer:
		handleErr = s.handleSubmitAnswer(ctx, conn, env.Data)
	case TypeForfeit:
		handleErr = s.handleForfeit(ctx, conn)
	}

	if handleErr == nil {
		return
	}

	// Gateway-constructed errors are ingress faults and count toward the
	// connection's fault budget; domain errors are answered and forgotten.
	var te *TransportError
	if errors.As(handleErr, &te) && te.cause == nil {
		s.protocolFault(conn, te)
		return
	}
	log.Debug().
		Err(handleErr).
		Str("connection_id", conn.ID.String()).
		Str("type", string(env.Type)).
		Msg("request failed")
	s.manager.sendOn(conn, TypeError, classify(handleErr).payload())
}

// protocolFault answers a malformed frame and closes the connection once
// the fault budget is spent.
func (s *Service) protocolFault(conn *Connection, te *TransportError) {
	faults := conn.fault()
	if te.Fatal() || faults >= s.config.MaxProtocolFaults {
		log.Warn().
			Str("connection_id", conn.ID.String()).
			Int("faults", faults).
			Msg("closing connection after repeated protocol faults")
		s.manager.sendOn(conn, TypeError, ErrorPayload{
			Code:    CodeFatalProtocol,
			Message: "too many malformed messages",
		})
		s.manager.drop(conn)
		conn.beginClose()
		return
	}
	s.manager.sendOn(conn, TypeError, te.payload())
}

func (s *Service) handleAuthenticate(ctx context.Context, conn *Connection, data []byte) error {
	var payload AuthenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return NewValidationError("malformed AUTHENTICATE payload: %v", err)
	}

	identity, err := s.resolveIdentity(ctx, payload)
	if err != nil {
		return err
	}

	s.manager.Bind(conn, identity.PlayerID, identity.Username, identity.Rating)
	log.Info().
		Str("connection_id", conn.ID.String()).
		Str("player_id", identity.PlayerID.String()).
		Str("username", identity.Username).
		Int("rating", identity.Rating).
		Msg("player authenticated")

	// Rebind into a live match if one is waiting on this player.
	snapshot, err := s.matches.Reconnect(ctx, identity.PlayerID)
	if err != nil {
		if te := classify(err); te.Code != CodeNotFound {
			log.Warn().
				Err(err).
				Str("player_id", identity.PlayerID.String()).
				Msg("reconnect lookup failed")
		}
		return nil
	}
	s.manager.sendOn(conn, TypeGameState, snapshotPayload(snapshot))
	log.Info().
		Str("player_id", identity.PlayerID.String()).
		Str("match_id", snapshot.Session.ID.String()).
		Msg("replayed live match state on reconnect")
	return nil
}

// resolveIdentity turns an AUTHENTICATE payload into a trusted identity:
// token verification first, then the stored profile, then the inline
// fields.
func (s *Service) resolveIdentity(ctx context.Context, payload AuthenticatePayload) (Identity, error) {
	var identity Identity

	if payload.Token != "" && s.verifier != nil {
		verified, err := s.verifier.Verify(ctx, payload.Token)
		if err != nil {
			return Identity{}, NewValidationError("identity token rejected")
		}
		identity = verified
	} else {
		id, err := uuid.Parse(payload.PlayerID)
		if err != nil {
			return Identity{}, NewValidationError("invalid player_id")
		}
		if payload.Username == "" {
			return Identity{}, NewValidationError("username is required")
		}
		identity = Identity{PlayerID: id, Username: payload.Username, Rating: payload.Rating}
	}

	if s.profiles != nil {
		if player, err := s.profiles.GetPlayer(ctx, identity.PlayerID); err == nil {
			identity.Username = player.Username
			identity.Rating = player.Rating
		}
	}
	if identity.Rating <= 0 {
		identity.Rating = 1000
	}
	return identity, nil
}

func (s *Service) handleStartMatchmaking(ctx context.Context, conn *Connection) error {
	playerID, authed := conn.Identity()
	if !authed {
		return NewValidationError("authenticate first")
	}
	if s.matches.Busy(playerID) {
		return match.ErrPlayerBusy
	}

	username, rating := conn.Profile()
	status, err := s.queue.Join(ctx, playerID, username, rating)
	if err != nil {
		return err
	}
	s.manager.sendOn(conn, TypeQueueUpdate, queueUpdatePayload(status))
	return nil
}

func (s *Service) handleCancelMatchmaking(ctx context.Context, conn *Connection) error {
	playerID, authed := conn.Identity()
	if !authed {
		return NewValidationError("authenticate first")
	}
	return s.queue.Leave(ctx, playerID)
}

func (s *Service) handleSubmitAnswer(ctx context.Context, conn *Connection, data []byte) error {
	playerID, authed := conn.Identity()
	if !authed {
		return NewValidationError("authenticate first")
	}

	var payload SubmitAnswerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return NewValidationError("malformed SUBMIT_ANSWER payload: %v", err)
	}
	if payload.PlayerID != "" && payload.PlayerID != playerID.String() {
		return NewValidationError("player_id does not match this connection")
	}
	matchID, err := uuid.Parse(payload.MatchID)
	if err != nil {
		return NewValidationError("invalid match_id")
	}
	if payload.Round <= 0 {
		return NewValidationError("round must be positive")
	}
	if payload.Answer == "" {
		return NewValidationError("answer is required")
	}

	return s.matches.SubmitAnswer(ctx, playerID, matchID, payload.Round, payload.Answer)
}

func (s *Service) handleForfeit(ctx context.Context, conn *Connection) error {
	playerID, authed := conn.Identity()
	if !authed {
		return NewValidationError("authenticate first")
	}
	return s.matches.Forfeit(ctx, playerID)
}

// ConnectionClosed starts the reconnect clock on any live match and
// removes the player from the waiting pool.
func (s *Service) ConnectionClosed(ctx context.Context, conn *Connection) {
	playerID, authed := conn.Identity()
	if !authed {
		return
	}
	// A replacement connection may already be bound; if so the player
	// never actually left.
	if s.manager.Connected(playerID) {
		return
	}

	if err := s.queue.Leave(ctx, playerID); err != nil {
		log.Warn().Err(err).
			Str("player_id", playerID.String()).
			Msg("failed to dequeue on disconnect")
	}
	if err := s.matches.Disconnect(ctx, playerID); err != nil {
		log.Warn().Err(err).
			Str("player_id", playerID.String()).
			Msg("failed to report disconnect to match")
	}
	log.Info().
		Str("connection_id", conn.ID.String()).
		Str("player_id", playerID.String()).
		Msg("connection closed")
}

// MatchFound implements match.Broadcaster.
func (s *Service) MatchFound(playerID uuid.UUID, found match.MatchFound) {
	s.manager.SendToPlayer(playerID, TypeMatchFound, MatchFoundPayload{
		MatchID:          found.MatchID.String(),
		Opponent:         found.Opponent,
		MaxRounds:        found.MaxRounds,
		RoundDurationSec: int(found.RoundDuration.Seconds()),
	})
}

// RoundStarted implements match.Broadcaster.
func (s *Service) RoundStarted(playerID uuid.UUID, state match.RoundState) {
	question := state.Question
	deadline := state.Deadline
	s.manager.SendToPlayer(playerID, TypeGameState, GameStatePayload{
		MatchID:          state.MatchID.String(),
		Status:           string(models.MatchStatusInRound),
		Round:            state.Round,
		MaxRounds:        state.MaxRounds,
		Question:         &question,
		Deadline:         &deadline,
		TimeRemainingSec: timeRemainingSec(deadline),
		Players:          state.Players,
	})
}

// RoundResolved implements match.Broadcaster.
func (s *Service) RoundResolved(playerID uuid.UUID, result match.RoundResult) {
	s.manager.SendToPlayer(playerID, TypeRoundResult, RoundResultPayload{
		MatchID:  result.MatchID.String(),
		Round:    result.Round,
		WinnerID: result.WinnerID,
		Answer:   result.Answer,
		Players:  result.Players,
	})
}

// MatchCompleted implements match.Broadcaster.
func (s *Service) MatchCompleted(playerID uuid.UUID, record *models.MatchRecord) {
	s.manager.SendToPlayer(playerID, TypeGameCompleted, GameCompletedPayload{
		Record:      record,
		RatingDelta: record.DeltaFor(playerID),
	})
}

// QueueUpdated implements matchmaking.QueueListener.
func (s *Service) QueueUpdated(ctx context.Context, statuses []matchmaking.QueueStatus) {
	for _, status := range statuses {
		s.manager.SendToPlayer(status.Ticket.PlayerID, TypeQueueUpdate, queueUpdatePayload(status))
	}
}

// QueueTimedOut implements matchmaking.QueueListener.
func (s *Service) QueueTimedOut(ctx context.Context, tickets []models.QueueTicket) {
	now := time.Now()
	for _, ticket := range tickets {
		s.manager.SendToPlayer(ticket.PlayerID, TypeMatchmakingTimeout, MatchmakingTimeoutPayload{
			WaitedSec: int(ticket.WaitedFor(now).Seconds()),
			Message:   "no opponent found, please queue again",
		})
	}
}

func queueUpdatePayload(status matchmaking.QueueStatus) QueueUpdatePayload {
	return QueueUpdatePayload{
		Position:         status.Position,
		EstimatedWaitSec: int(status.EstimatedWait.Seconds()),
	}
}

// snapshotPayload converts a live session snapshot for replay to a
// reconnecting client.
func snapshotPayload(snap match.Snapshot) GameStatePayload {
	payload := GameStatePayload{
		MatchID:   snap.Session.ID.String(),
		Status:    string(snap.Session.Status),
		Round:     snap.Session.CurrentRound,
		MaxRounds: snap.Session.MaxRounds,
		Players:   snap.Session.Players,
	}
	if snap.Question != nil {
		payload.Question = snap.Question
		deadline := snap.Deadline
		payload.Deadline = &deadline
		payload.TimeRemainingSec = timeRemainingSec(deadline)
	}
	return payload
}
