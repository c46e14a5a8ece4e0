package players

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeaderboard(t *testing.T) *Leaderboard {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewLeaderboard(rdb)
}

func TestLeaderboardTopOrdersByRating(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()

	low, mid, high := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, board.Record(ctx, low, 980))
	require.NoError(t, board.Record(ctx, high, 1460))
	require.NoError(t, board.Record(ctx, mid, 1210))

	entries, err := board.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, high, entries[0].PlayerID)
	assert.Equal(t, int64(1), entries[0].Rank)
	assert.Equal(t, 1460, entries[0].Rating)
	assert.Equal(t, mid, entries[1].PlayerID)
	assert.Equal(t, low, entries[2].PlayerID)
}

func TestLeaderboardRecordUpdatesScore(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, board.Record(ctx, a, 1000))
	require.NoError(t, board.Record(ctx, b, 1100))

	rank, err := board.RankOf(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	// a wins a big match and overtakes b
	require.NoError(t, board.Record(ctx, a, 1150))

	rank, err = board.RankOf(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank)
}

func TestLeaderboardRankOfUnknownPlayer(t *testing.T) {
	board := newTestLeaderboard(t)

	_, err := board.RankOf(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotRanked)
}

func TestLeaderboardTopHonorsLimit(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, board.Record(ctx, uuid.New(), 1000+i))
	}

	entries, err := board.Top(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLeaderboardRemove(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()

	a := uuid.New()
	require.NoError(t, board.Record(ctx, a, 1200))
	require.NoError(t, board.Remove(ctx, a))

	_, err := board.RankOf(ctx, a)
	assert.ErrorIs(t, err, ErrNotRanked)
}
