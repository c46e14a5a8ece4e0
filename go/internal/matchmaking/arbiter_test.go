package matchmaking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floraclash/floraclash/go/internal/models"
)

func TestFormMatchRemovesExactlyBoth(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Hour)
	arbiter := NewArbiter(pool, clock, SelectorConfig{}, 3)
	ctx := context.Background()

	var tickets []models.QueueTicket
	for i := 0; i < 4; i++ {
		ticket, err := pool.Enqueue(ctx, uuid.New(), "p", 1200+i*10)
		require.NoError(t, err)
		tickets = append(tickets, ticket)
		clock.Advance(time.Second)
	}

	pairing, err := arbiter.FormMatch(ctx, tickets[0])
	require.NoError(t, err)
	require.NotNil(t, pairing)

	assert.Equal(t, tickets[0].PlayerID, pairing.Requester.PlayerID)
	assert.NotEqual(t, pairing.Requester.PlayerID, pairing.Opponent.PlayerID)

	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size, "formation removes exactly two entries")
}

func TestFormMatchNoOpponentRestoresRequester(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Hour)
	arbiter := NewArbiter(pool, clock, SelectorConfig{}, 3)
	ctx := context.Background()

	ticket, err := pool.Enqueue(ctx, uuid.New(), "solo", 1200)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	_, err = arbiter.FormMatch(ctx, ticket)
	require.ErrorIs(t, err, ErrNoOpponent)

	snap, err := pool.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1, "the caller stays queued")
	assert.Equal(t, ticket.JoinedAt, snap[0].JoinedAt, "restored ticket keeps its join time")
}

func TestFormMatchTicketTaken(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Hour)
	arbiter := NewArbiter(pool, clock, SelectorConfig{}, 3)
	ctx := context.Background()

	ticket, err := pool.Enqueue(ctx, uuid.New(), "gone", 1200)
	require.NoError(t, err)

	_, ok, err := pool.Claim(ctx, ticket.PlayerID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = arbiter.FormMatch(ctx, ticket)
	assert.ErrorIs(t, err, ErrTicketTaken)
}

func TestFormMatchOutOfBandStaysQueued(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Hour)
	arbiter := NewArbiter(pool, clock, SelectorConfig{}, 3)
	ctx := context.Background()

	low, err := pool.Enqueue(ctx, uuid.New(), "low", 800)
	require.NoError(t, err)
	_, err = pool.Enqueue(ctx, uuid.New(), "high", 2000)
	require.NoError(t, err)

	_, err = arbiter.FormMatch(ctx, low)
	require.ErrorIs(t, err, ErrNoOpponent)

	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

// TestFormMatchConcurrentNeverDoublePairs hammers one pool with racing
// formations and checks the core guarantee: no player ends up in two
// pairings.
func TestFormMatchConcurrentNeverDoublePairs(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Hour)
	arbiter := NewArbiter(pool, clock, SelectorConfig{}, 5)
	ctx := context.Background()

	const players = 32
	var tickets []models.QueueTicket
	for i := 0; i < players; i++ {
		ticket, err := pool.Enqueue(ctx, uuid.New(), "p", 1200)
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}

	var mu sync.Mutex
	var pairings []*Pairing
	var wg sync.WaitGroup
	for _, ticket := range tickets {
		wg.Add(1)
		go func(tk models.QueueTicket) {
			defer wg.Done()
			p, err := arbiter.FormMatch(ctx, tk)
			if err != nil {
				return
			}
			mu.Lock()
			pairings = append(pairings, p)
			mu.Unlock()
		}(ticket)
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool)
	for _, p := range pairings {
		for _, id := range []uuid.UUID{p.Requester.PlayerID, p.Opponent.PlayerID} {
			require.False(t, seen[id], "player %s paired twice", id)
			seen[id] = true
		}
	}

	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, players, len(seen)+size, "every player is either paired once or still queued")
}
