package matchmaking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPoolEnqueueUpsert(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	first, err := pool.Enqueue(ctx, id, "mo", 1200)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	second, err := pool.Enqueue(ctx, id, "mo", 1230)
	require.NoError(t, err)

	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size, "re-enqueue must not duplicate the entry")
	assert.True(t, second.JoinedAt.After(first.JoinedAt), "re-enqueue refreshes the join time")

	snap, err := pool.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 1230, snap[0].Rating)
}

func TestMemoryPoolClaimIsExclusive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Enqueue(ctx, id, "mo", 1200)
	require.NoError(t, err)

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := pool.Claim(ctx, id)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins, "exactly one claimer may win")
}

func TestMemoryPoolExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Enqueue(ctx, id, "mo", 1200)
	require.NoError(t, err)

	clock.Advance(time.Minute + time.Second)

	snap, err := pool.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap, "expired entries are invisible")

	_, ok, err := pool.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "expired entries cannot be claimed")
}

func TestMemoryPoolPruneExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Minute)
	ctx := context.Background()

	stale := uuid.New()
	fresh := uuid.New()

	_, err := pool.Enqueue(ctx, stale, "old", 1100)
	require.NoError(t, err)
	clock.Advance(50 * time.Second)
	_, err = pool.Enqueue(ctx, fresh, "new", 1150)
	require.NoError(t, err)
	clock.Advance(15 * time.Second)

	pruned, err := pool.PruneExpired(ctx)
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.Equal(t, stale, pruned[0].PlayerID)

	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestMemoryPoolPositionFollowsJoinOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Minute)
	ctx := context.Background()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b, c} {
		_, err := pool.Enqueue(ctx, id, "p", 1200)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	posA, err := pool.Position(ctx, a)
	require.NoError(t, err)
	posC, err := pool.Position(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, posA)
	assert.Equal(t, 3, posC)

	_, err = pool.Position(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestMemoryPoolRestoreKeepsJoinTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pool := NewMemoryPool(clock, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Enqueue(ctx, id, "mo", 1200)
	require.NoError(t, err)
	clock.Advance(20 * time.Second)

	ticket, ok, err := pool.Claim(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, pool.Restore(ctx, ticket))

	snap, err := pool.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, ticket.JoinedAt, snap[0].JoinedAt, "restore keeps accrued wait")

	// A ticket past its TTL is not restored.
	clock.Advance(2 * time.Minute)
	require.NoError(t, pool.Dequeue(ctx, id))
	require.NoError(t, pool.Restore(ctx, ticket))
	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}
