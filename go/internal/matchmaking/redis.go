package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/floraclash/floraclash/go/internal/models"
)

const (
	queueIndexKey   = "floraclash:mm:queue"
	ticketKeyPrefix = "floraclash:mm:ticket:"
)

// RedisPool is the WaitingPool backing for multi-instance deployments. The
// join-order index is a sorted set scored by join time; each ticket body
// lives under its own key with the pool TTL so abandoned entries expire on
// their own. ZREM's removed-count doubles as the atomic claim: only one
// racing caller observes 1.
type RedisPool struct {
	rdb   redis.UniversalClient
	clock clockwork.Clock
	ttl   time.Duration
}

// NewRedisPool wraps an existing client. A non-positive ttl falls back to
// DefaultTicketTTL.
func NewRedisPool(rdb redis.UniversalClient, clock clockwork.Clock, ttl time.Duration) *RedisPool {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &RedisPool{rdb: rdb, clock: clock, ttl: ttl}
}

func ticketKey(playerID uuid.UUID) string {
	return ticketKeyPrefix + playerID.String()
}

func (p *RedisPool) Enqueue(ctx context.Context, playerID uuid.UUID, username string, rating int) (models.QueueTicket, error) {
	ticket := models.QueueTicket{
		PlayerID: playerID,
		Username: username,
		Rating:   rating,
		JoinedAt: p.clock.Now(),
	}
	if err := p.write(ctx, ticket, p.ttl); err != nil {
		return models.QueueTicket{}, err
	}
	return ticket, nil
}

func (p *RedisPool) Restore(ctx context.Context, ticket models.QueueTicket) error {
	remaining := p.ttl - p.clock.Now().Sub(ticket.JoinedAt)
	if remaining <= 0 {
		return nil
	}
	return p.write(ctx, ticket, remaining)
}

func (p *RedisPool) write(ctx context.Context, ticket models.QueueTicket, ttl time.Duration) error {
	pipe := p.rdb.TxPipeline()
	pipe.ZAdd(ctx, queueIndexKey, redis.Z{
		Score:  float64(ticket.JoinedAt.UnixMilli()),
		Member: ticket.PlayerID.String(),
	})
	pipe.Set(ctx, ticketKey(ticket.PlayerID), ticket, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue ticket %s: %w", ticket.PlayerID, err)
	}
	return nil
}

func (p *RedisPool) Dequeue(ctx context.Context, playerID uuid.UUID) error {
	pipe := p.rdb.TxPipeline()
	pipe.ZRem(ctx, queueIndexKey, playerID.String())
	pipe.Del(ctx, ticketKey(playerID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("dequeue ticket %s: %w", playerID, err)
	}
	return nil
}

func (p *RedisPool) Claim(ctx context.Context, playerID uuid.UUID) (models.QueueTicket, bool, error) {
	removed, err := p.rdb.ZRem(ctx, queueIndexKey, playerID.String()).Result()
	if err != nil {
		return models.QueueTicket{}, false, fmt.Errorf("claim ticket %s: %w", playerID, err)
	}
	if removed == 0 {
		return models.QueueTicket{}, false, nil
	}

	raw, err := p.rdb.GetDel(ctx, ticketKey(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		// Index won but the body already expired; the entry is dead.
		return models.QueueTicket{}, false, nil
	}
	if err != nil {
		return models.QueueTicket{}, false, fmt.Errorf("claim ticket body %s: %w", playerID, err)
	}

	var ticket models.QueueTicket
	if err := ticket.UnmarshalBinary([]byte(raw)); err != nil {
		return models.QueueTicket{}, false, fmt.Errorf("decode ticket %s: %w", playerID, err)
	}
	return ticket, true, nil
}

func (p *RedisPool) Snapshot(ctx context.Context) ([]models.QueueTicket, error) {
	members, err := p.rdb.ZRange(ctx, queueIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot queue index: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = ticketKeyPrefix + m
	}
	values, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot ticket bodies: %w", err)
	}

	out := make([]models.QueueTicket, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Body expired out from under the index; drop the member.
			stale = append(stale, members[i])
			continue
		}
		var ticket models.QueueTicket
		if err := ticket.UnmarshalBinary([]byte(s)); err != nil {
			stale = append(stale, members[i])
			continue
		}
		out = append(out, ticket)
	}
	if len(stale) > 0 {
		p.rdb.ZRem(ctx, queueIndexKey, stale...)
	}
	return out, nil
}

func (p *RedisPool) Size(ctx context.Context) (int, error) {
	n, err := p.rdb.ZCard(ctx, queueIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue size: %w", err)
	}
	return int(n), nil
}

func (p *RedisPool) Position(ctx context.Context, playerID uuid.UUID) (int, error) {
	rank, err := p.rdb.ZRank(ctx, queueIndexKey, playerID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTicketNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("queue position %s: %w", playerID, err)
	}
	return int(rank) + 1, nil
}

func (p *RedisPool) PruneExpired(ctx context.Context) ([]models.QueueTicket, error) {
	cutoff := p.clock.Now().Add(-p.ttl).UnixMilli()
	expired, err := p.rdb.ZRangeByScoreWithScores(ctx, queueIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan expired tickets: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}

	pruned := make([]models.QueueTicket, 0, len(expired))
	for _, z := range expired {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		playerID, err := uuid.Parse(member)
		if err != nil {
			p.rdb.ZRem(ctx, queueIndexKey, member)
			continue
		}

		raw, err := p.rdb.GetDel(ctx, ticketKey(playerID)).Result()
		ticket := models.QueueTicket{PlayerID: playerID, JoinedAt: time.UnixMilli(int64(z.Score))}
		if err == nil {
			// Body still present; prefer its full contents.
			_ = ticket.UnmarshalBinary([]byte(raw))
		}
		p.rdb.ZRem(ctx, queueIndexKey, member)
		pruned = append(pruned, ticket)
	}
	return pruned, nil
}
