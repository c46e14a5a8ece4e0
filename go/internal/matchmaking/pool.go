package matchmaking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

const (
	// DefaultTicketTTL is how long an entry may sit in the pool before it
	// self-clears.
	DefaultTicketTTL = 10 * time.Minute
)

// WaitingPool is the shared set of players seeking an opponent. A player
// appears at most once. Implementations must make Claim an atomic
// compare-and-delete so two racing formations can never take the same
// entry; everything else is plain keyed access.
//
// Two backings exist: an in-process map (MemoryPool) and a Redis keyed
// store with native expiry (RedisPool).
type WaitingPool interface {
	// Enqueue upserts the player's entry with the current time, refreshing
	// its expiry. Re-joining resets the player's wait credit.
	Enqueue(ctx context.Context, playerID uuid.UUID, username string, rating int) (models.QueueTicket, error)

	// Restore re-inserts a previously claimed ticket keeping its original
	// join time, so a failed formation does not cost the player their
	// accrued wait. Tickets already past their TTL are dropped silently.
	Restore(ctx context.Context, ticket models.QueueTicket) error

	// Dequeue removes the player's entry. Removing an absent entry is a
	// no-op.
	Dequeue(ctx context.Context, playerID uuid.UUID) error

	// Claim atomically removes and returns the player's entry. The boolean
	// reports whether this caller won the removal; false means the entry
	// was absent, expired, or taken by a racing claim.
	Claim(ctx context.Context, playerID uuid.UUID) (models.QueueTicket, bool, error)

	// Snapshot returns all live entries in join order. The slice is a
	// copy; mutating it does not touch the pool.
	Snapshot(ctx context.Context) ([]models.QueueTicket, error)

	// Size returns the number of live entries.
	Size(ctx context.Context) (int, error)

	// Position returns the player's 1-based place in join order, or
	// ErrTicketNotFound.
	Position(ctx context.Context, playerID uuid.UUID) (int, error)

	// PruneExpired removes entries past their TTL and returns them so the
	// caller can notify the affected players.
	PruneExpired(ctx context.Context) ([]models.QueueTicket, error)
}
