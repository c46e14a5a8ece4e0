package matchmaking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/models"
)

// DefaultPollInterval is how often a full matchmaking pass runs when no
// queue activity wakes the loop earlier.
const DefaultPollInterval = 2 * time.Second

// QueueStatus is one queued player's current standing, pushed to clients
// whenever the pool changes.
type QueueStatus struct {
	Ticket        models.QueueTicket
	Position      int
	EstimatedWait time.Duration
}

// MatchStarter receives formed pairings and brings up the live session.
type MatchStarter interface {
	StartMatch(ctx context.Context, pairing Pairing) (uuid.UUID, error)
}

// QueueListener observes pool membership changes. Implementations must not
// block; delivery work belongs on the transport's own goroutines.
type QueueListener interface {
	QueueUpdated(ctx context.Context, statuses []QueueStatus)
	QueueTimedOut(ctx context.Context, tickets []models.QueueTicket)
}

// Matchmaker owns the matchmaking pass: pruning expired tickets, walking
// the pool in join order, forming matches through the arbiter and handing
// pairings to the starter. Join and Leave may be called concurrently from
// any goroutine; formation itself runs on the Run loop.
type Matchmaker struct {
	pool         WaitingPool
	arbiter      *Arbiter
	starter      MatchStarter
	listener     QueueListener
	clock        clockwork.Clock
	pollInterval time.Duration
	wakeCh       chan struct{}
}

// NewMatchmaker wires the matchmaking loop. A non-positive pollInterval
// falls back to DefaultPollInterval.
func NewMatchmaker(pool WaitingPool, arbiter *Arbiter, starter MatchStarter, listener QueueListener, clock clockwork.Clock, pollInterval time.Duration) *Matchmaker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Matchmaker{
		pool:         pool,
		arbiter:      arbiter,
		starter:      starter,
		listener:     listener,
		clock:        clock,
		pollInterval: pollInterval,
		wakeCh:       make(chan struct{}, 1),
	}
}

// Join upserts the player into the waiting pool and wakes the loop so a
// fresh pass runs without waiting out the poll interval.
func (m *Matchmaker) Join(ctx context.Context, playerID uuid.UUID, username string, rating int) (QueueStatus, error) {
	ticket, err := m.pool.Enqueue(ctx, playerID, username, rating)
	if err != nil {
		return QueueStatus{}, err
	}

	position, err := m.pool.Position(ctx, playerID)
	if err != nil {
		// The pass may already have claimed the ticket; report front of queue.
		position = 1
	}
	m.wake()

	return QueueStatus{
		Ticket:        ticket,
		Position:      position,
		EstimatedWait: m.estimateWait(position),
	}, nil
}

// Leave removes the player from the pool. Removing an absent player is a
// no-op, matching explicit-cancel semantics.
func (m *Matchmaker) Leave(ctx context.Context, playerID uuid.UUID) error {
	return m.pool.Dequeue(ctx, playerID)
}

// Run loops until ctx is done, executing a matchmaking pass on every poll
// tick or wake signal.
func (m *Matchmaker) Run(ctx context.Context) error {
	log.Info().Dur("poll_interval", m.pollInterval).Msg("matchmaker started")

	timer := m.clock.NewTimer(m.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("matchmaker shutting down")
			return nil
		case <-timer.Chan():
		case <-m.wakeCh:
		}

		m.pass(ctx)
		timer.Reset(m.pollInterval)
	}
}

// pass is one full sweep: expire, match, then report standings.
func (m *Matchmaker) pass(ctx context.Context) {
	expired, err := m.pool.PruneExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune expired tickets")
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("queue tickets expired")
		m.listener.QueueTimedOut(ctx, expired)
	}

	snapshot, err := m.pool.Snapshot(ctx)
	if err != nil {
		// Transient store trouble degrades to the next pass instead of
		// failing anyone's queue membership.
		log.Error().Err(err).Msg("failed to snapshot waiting pool")
		return
	}

	taken := make(map[uuid.UUID]bool)
	for _, ticket := range snapshot {
		if taken[ticket.PlayerID] {
			continue
		}

		pairing, err := m.arbiter.FormMatch(ctx, ticket)
		if errors.Is(err, ErrTicketTaken) || errors.Is(err, ErrNoOpponent) {
			continue
		}
		if err != nil {
			log.Error().
				Err(err).
				Str("player_id", ticket.PlayerID.String()).
				Msg("match formation failed")
			continue
		}

		taken[pairing.Requester.PlayerID] = true
		taken[pairing.Opponent.PlayerID] = true

		matchID, err := m.starter.StartMatch(ctx, *pairing)
		if err != nil {
			log.Error().
				Err(err).
				Str("player_id", pairing.Requester.PlayerID.String()).
				Str("opponent_id", pairing.Opponent.PlayerID.String()).
				Msg("failed to start match, requeueing both players")
			m.arbiter.Release(ctx, pairing)
			continue
		}

		log.Info().
			Str("match_id", matchID.String()).
			Str("player_id", pairing.Requester.PlayerID.String()).
			Str("opponent_id", pairing.Opponent.PlayerID.String()).
			Int("rating", pairing.Requester.Rating).
			Int("opponent_rating", pairing.Opponent.Rating).
			Msg("match formed")
	}

	m.reportStandings(ctx)
}

func (m *Matchmaker) reportStandings(ctx context.Context) {
	remaining, err := m.pool.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to snapshot pool for standings")
		return
	}
	if len(remaining) == 0 {
		return
	}

	statuses := make([]QueueStatus, len(remaining))
	for i, t := range remaining {
		statuses[i] = QueueStatus{
			Ticket:        t,
			Position:      i + 1,
			EstimatedWait: m.estimateWait(i + 1),
		}
	}
	m.listener.QueueUpdated(ctx, statuses)
}

func (m *Matchmaker) estimateWait(position int) time.Duration {
	return time.Duration(position) * m.pollInterval
}

func (m *Matchmaker) wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}
