package matchmaking

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/models"
)

// DefaultFormationRetries bounds re-selection when a candidate is stolen
// by a racing formation.
const DefaultFormationRetries = 3

// Pairing is the product of a successful match formation: two tickets that
// were atomically removed from the pool by the same caller.
type Pairing struct {
	Requester models.QueueTicket
	Opponent  models.QueueTicket
	FormedAt  time.Time
}

// Arbiter turns a selector result into an atomic "remove both" operation.
// This is the single point of true write contention: concurrent requests
// may pick the same candidate, so the opponent is taken with a
// compare-and-delete and selection is retried when the claim is lost.
type Arbiter struct {
	pool       WaitingPool
	clock      clockwork.Clock
	selector   SelectorConfig
	maxRetries int
}

// NewArbiter wires an arbiter over a pool. A non-positive retry bound
// falls back to DefaultFormationRetries.
func NewArbiter(pool WaitingPool, clock clockwork.Clock, selector SelectorConfig, maxRetries int) *Arbiter {
	if maxRetries <= 0 {
		maxRetries = DefaultFormationRetries
	}
	return &Arbiter{
		pool:       pool,
		clock:      clock,
		selector:   selector,
		maxRetries: maxRetries,
	}
}

// FormMatch attempts to pair the given queued player with the best
// available candidate. On success exactly two entries have left the pool.
// ErrTicketTaken means a racing request already claimed the player; their
// match is forming elsewhere. ErrNoOpponent means the retry budget ran
// out; the player's ticket is restored with its original join time so
// they keep their accrued wait.
func (a *Arbiter) FormMatch(ctx context.Context, requester models.QueueTicket) (*Pairing, error) {
	self, ok, err := a.pool.Claim(ctx, requester.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("claim requester: %w", err)
	}
	if !ok {
		return nil, ErrTicketTaken
	}

	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		snapshot, err := a.pool.Snapshot(ctx)
		if err != nil {
			a.restore(ctx, self)
			return nil, fmt.Errorf("snapshot pool: %w", err)
		}

		candidate, found := FindOpponent(snapshot, self.PlayerID, self.Rating, a.clock.Now(), a.selector)
		if !found {
			break
		}

		opponent, claimed, err := a.pool.Claim(ctx, candidate.PlayerID)
		if err != nil {
			a.restore(ctx, self)
			return nil, fmt.Errorf("claim opponent: %w", err)
		}
		if !claimed {
			// Lost the race for this candidate; select again.
			log.Debug().
				Str("player_id", self.PlayerID.String()).
				Str("candidate_id", candidate.PlayerID.String()).
				Int("attempt", attempt).
				Msg("opponent claimed by racing formation, retrying")
			continue
		}

		return &Pairing{
			Requester: self,
			Opponent:  opponent,
			FormedAt:  a.clock.Now(),
		}, nil
	}

	a.restore(ctx, self)
	return nil, ErrNoOpponent
}

// Release returns both halves of a pairing to the pool, used when the
// downstream session could not be created.
func (a *Arbiter) Release(ctx context.Context, p *Pairing) {
	a.restore(ctx, p.Requester)
	a.restore(ctx, p.Opponent)
}

func (a *Arbiter) restore(ctx context.Context, ticket models.QueueTicket) {
	if err := a.pool.Restore(ctx, ticket); err != nil {
		log.Error().
			Err(err).
			Str("player_id", ticket.PlayerID.String()).
			Msg("failed to restore claimed ticket")
	}
}
