package matchmaking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisPool(t *testing.T) (*RedisPool, *miniredis.Miniredis, *clockwork.FakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := clockwork.NewFakeClock()
	return NewRedisPool(rdb, clock, time.Minute), mr, clock
}

func TestRedisPoolRoundTrip(t *testing.T) {
	pool, _, clock := newRedisPool(t)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	_, err := pool.Enqueue(ctx, a, "ada", 1200)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = pool.Enqueue(ctx, b, "bo", 1250)
	require.NoError(t, err)

	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	snap, err := pool.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, a, snap[0].PlayerID, "snapshot follows join order")
	assert.Equal(t, "ada", snap[0].Username)
	assert.Equal(t, 1250, snap[1].Rating)

	pos, err := pool.Position(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	require.NoError(t, pool.Dequeue(ctx, a))
	size, err = pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestRedisPoolClaimIsExclusive(t *testing.T) {
	pool, _, _ := newRedisPool(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Enqueue(ctx, id, "mo", 1200)
	require.NoError(t, err)

	ticket, ok, err := pool.Claim(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, ticket.PlayerID)
	assert.Equal(t, 1200, ticket.Rating)

	_, ok, err = pool.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")
}

func TestRedisPoolBodyExpiryInvalidatesClaim(t *testing.T) {
	pool, mr, clock := newRedisPool(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Enqueue(ctx, id, "mo", 1200)
	require.NoError(t, err)

	// Expire the ticket body but leave the index member behind.
	mr.FastForward(2 * time.Minute)
	clock.Advance(2 * time.Minute)

	_, ok, err := pool.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "claiming a dead entry must fail")

	snap, err := pool.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestRedisPoolSnapshotDropsStaleIndex(t *testing.T) {
	pool, mr, _ := newRedisPool(t)
	ctx := context.Background()

	live := uuid.New()
	dead := uuid.New()
	_, err := pool.Enqueue(ctx, dead, "dead", 1100)
	require.NoError(t, err)
	_, err = pool.Enqueue(ctx, live, "live", 1150)
	require.NoError(t, err)

	mr.Del(ticketKey(dead))

	snap, err := pool.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, live, snap[0].PlayerID)

	// The stale member was dropped from the index as a side effect.
	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestRedisPoolPruneExpired(t *testing.T) {
	pool, mr, clock := newRedisPool(t)
	ctx := context.Background()

	stale := uuid.New()
	fresh := uuid.New()
	_, err := pool.Enqueue(ctx, stale, "old", 1100)
	require.NoError(t, err)

	clock.Advance(50 * time.Second)
	mr.FastForward(50 * time.Second)
	_, err = pool.Enqueue(ctx, fresh, "new", 1150)
	require.NoError(t, err)

	clock.Advance(15 * time.Second)
	mr.FastForward(15 * time.Second)

	pruned, err := pool.PruneExpired(ctx)
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.Equal(t, stale, pruned[0].PlayerID)

	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestRedisPoolRestoreKeepsRemainingTTL(t *testing.T) {
	pool, _, clock := newRedisPool(t)
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
	assert.Equal(t, ticket.JoinedAt.UnixMilli(), snap[0].JoinedAt.UnixMilli())

	// Fully aged tickets are dropped instead of restored.
	clock.Advance(2 * time.Minute)
	require.NoError(t, pool.Dequeue(ctx, id))
	require.NoError(t, pool.Restore(ctx, ticket))
	size, err := pool.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}
