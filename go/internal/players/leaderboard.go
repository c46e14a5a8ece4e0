package players

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "floraclash:leaderboard"

var ErrNotRanked = errors.New("player not ranked")

// Leaderboard is a Redis sorted set scored by rating. It mirrors the
// players table so rank queries never touch Postgres; the table stays
// authoritative and can rebuild the set at any time.
type Leaderboard struct {
	rdb redis.UniversalClient
}

func NewLeaderboard(rdb redis.UniversalClient) *Leaderboard {
	return &Leaderboard{rdb: rdb}
}

// Entry is one leaderboard row, rank starting at 1.
type Entry struct {
	Rank     int64
	PlayerID uuid.UUID
	Rating   int
}

// Record updates a player's score. Called after every rating write.
func (l *Leaderboard) Record(ctx context.Context, playerID uuid.UUID, rating int) error {
	return l.rdb.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(rating),
		Member: playerID.String(),
	}).Err()
}

// Top returns the highest rated players, best first.
func (l *Leaderboard) Top(ctx context.Context, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	zs, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Rank:     int64(i) + 1,
			PlayerID: id,
			Rating:   int(z.Score),
		})
	}
	return entries, nil
}

// RankOf returns a player's rank, 1 being the best.
func (l *Leaderboard) RankOf(ctx context.Context, playerID uuid.UUID) (int64, error) {
	rank, err := l.rdb.ZRevRank(ctx, leaderboardKey, playerID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotRanked
		}
		return 0, fmt.Errorf("failed to read rank: %w", err)
	}
	return rank + 1, nil
}

// Remove drops a player from the board.
func (l *Leaderboard) Remove(ctx context.Context, playerID uuid.UUID) error {
	return l.rdb.ZRem(ctx, leaderboardKey, playerID.String()).Err()
}
