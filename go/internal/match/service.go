package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/content"
	"github.com/floraclash/floraclash/go/internal/matchmaking"
	"github.com/floraclash/floraclash/go/internal/models"
)

// Service turns formed pairings into running matches and routes gameplay
// traffic to the owning coordinator. It satisfies the matchmaker's
// MatchStarter so formation hands pairings straight here.
type Service struct {
	registry  *Registry
	provider  content.Provider
	finalizer *Finalizer
	broadcast Broadcaster
	clock     clockwork.Clock
	cfg       Config

	wg sync.WaitGroup
}

// NewService wires the match service. A nil broadcast disables event
// delivery, a nil clock falls back to the wall clock.
func NewService(registry *Registry, provider content.Provider, finalizer *Finalizer, broadcast Broadcaster, clock clockwork.Clock, cfg Config) *Service {
	if broadcast == nil {
		broadcast = nopBroadcaster{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		registry:  registry,
		provider:  provider,
		finalizer: finalizer,
		broadcast: broadcast,
		clock:     clock,
		cfg:       cfg.withDefaults(),
	}
}

// StartMatch creates the session for a formed pairing, registers it, and
// starts its coordinator on ctx. The matchmaker has already removed both
// tickets from the pool, so a busy player here is an invariant violation
// rather than a race to retry.
func (s *Service) StartMatch(ctx context.Context, pairing matchmaking.Pairing) (uuid.UUID, error) {
	session := &models.MatchSession{
		ID: uuid.New(),
		Players: [2]models.PlayerTally{
			{PlayerID: pairing.Requester.PlayerID, Username: pairing.Requester.Username, Rating: pairing.Requester.Rating},
			{PlayerID: pairing.Opponent.PlayerID, Username: pairing.Opponent.Username, Rating: pairing.Opponent.Rating},
		},
		Status:    models.MatchStatusForming,
		MaxRounds: s.cfg.MaxRounds,
		CreatedAt: s.clock.Now(),
	}

	coordinator := NewCoordinator(session, s.provider, s.finalizer, s.broadcast, s.clock, s.cfg)
	if err := s.registry.Register(coordinator); err != nil {
		return uuid.Nil, fmt.Errorf("failed to register match %s: %w", session.ID, err)
	}

	s.announce(session)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		coordinator.Run(ctx)
		s.registry.Remove(coordinator.MatchID())
	}()

	log.Info().
		Str("match_id", session.ID.String()).
		Str("player_a", session.Players[0].PlayerID.String()).
		Str("player_b", session.Players[1].PlayerID.String()).
		Int("rating_a", session.Players[0].Rating).
		Int("rating_b", session.Players[1].Rating).
		Msg("match registered")
	return session.ID, nil
}

func (s *Service) announce(session *models.MatchSession) {
	for i := range session.Players {
		me := &session.Players[i]
		opp := &session.Players[1-i]
		s.broadcast.MatchFound(me.PlayerID, MatchFound{
			MatchID:       session.ID,
			Opponent:      models.PlayerSummary{ID: opp.PlayerID, Username: opp.Username, Rating: opp.Rating},
			MaxRounds:     s.cfg.MaxRounds,
			RoundDuration: s.cfg.RoundDuration,
		})
	}
}

// SubmitAnswer routes a player's answer to the match's coordinator.
func (s *Service) SubmitAnswer(ctx context.Context, playerID, matchID uuid.UUID, round int, answer string) error {
	coordinator, err := s.registry.Get(matchID)
	if err != nil {
		return err
	}
	return coordinator.Submit(ctx, playerID, round, answer)
}

// Reconnect rebinds a returning player to their live match and returns a
// snapshot for replaying the current state to them.
func (s *Service) Reconnect(ctx context.Context, playerID uuid.UUID) (Snapshot, error) {
	coordinator, err := s.registry.ForPlayer(playerID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := coordinator.Reconnect(ctx, playerID); err != nil && !errors.Is(err, ErrMatchOver) {
		return Snapshot{}, err
	}
	return coordinator.State(ctx)
}

// Disconnect opens the reconnect window for a player. Players without a
// live match disconnect all the time; that is not an error.
func (s *Service) Disconnect(ctx context.Context, playerID uuid.UUID) error {
	coordinator, err := s.registry.ForPlayer(playerID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return nil
		}
		return err
	}
	if err := coordinator.Disconnect(ctx, playerID); err != nil && !errors.Is(err, ErrMatchOver) {
		return err
	}
	return nil
}

// Forfeit surrenders the player's live match.
func (s *Service) Forfeit(ctx context.Context, playerID uuid.UUID) error {
	coordinator, err := s.registry.ForPlayer(playerID)
	if err != nil {
		return err
	}
	return coordinator.Forfeit(ctx, playerID)
}

// LiveSnapshot returns the current state of a live match. Finished
// matches are served from the persisted record, not from here.
func (s *Service) LiveSnapshot(ctx context.Context, matchID uuid.UUID) (Snapshot, error) {
	coordinator, err := s.registry.Get(matchID)
	if err != nil {
		return Snapshot{}, err
	}
	return coordinator.State(ctx)
}

// Busy reports whether the player is bound to a live match.
func (s *Service) Busy(playerID uuid.UUID) bool {
	return s.registry.Busy(playerID)
}

// Live returns the number of running matches.
func (s *Service) Live() int {
	return s.registry.Len()
}

// Wait blocks until every coordinator goroutine has exited. Cancel the
// context passed to StartMatch first.
func (s *Service) Wait() {
	s.wg.Wait()
}
