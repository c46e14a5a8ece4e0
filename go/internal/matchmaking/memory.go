package matchmaking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/floraclash/floraclash/go/internal/models"
)

// MemoryPool is the in-process WaitingPool backing. A single mutex guards
// the entry map, which keeps Claim a true compare-and-delete.
type MemoryPool struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[uuid.UUID]models.QueueTicket
}

// NewMemoryPool creates an empty pool. A non-positive ttl falls back to
// DefaultTicketTTL.
func NewMemoryPool(clock clockwork.Clock, ttl time.Duration) *MemoryPool {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &MemoryPool{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[uuid.UUID]models.QueueTicket),
	}
}

func (p *MemoryPool) Enqueue(_ context.Context, playerID uuid.UUID, username string, rating int) (models.QueueTicket, error) {
	ticket := models.QueueTicket{
		PlayerID: playerID,
		Username: username,
		Rating:   rating,
		JoinedAt: p.clock.Now(),
	}

	p.mu.Lock()
	p.entries[playerID] = ticket
	p.mu.Unlock()
	return ticket, nil
}

func (p *MemoryPool) Restore(_ context.Context, ticket models.QueueTicket) error {
	if p.expired(ticket, p.clock.Now()) {
		return nil
	}
	p.mu.Lock()
	p.entries[ticket.PlayerID] = ticket
	p.mu.Unlock()
	return nil
}

func (p *MemoryPool) Dequeue(_ context.Context, playerID uuid.UUID) error {
	p.mu.Lock()
	delete(p.entries, playerID)
	p.mu.Unlock()
	return nil
}

func (p *MemoryPool) Claim(_ context.Context, playerID uuid.UUID) (models.QueueTicket, bool, error) {
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	ticket, ok := p.entries[playerID]
	if !ok {
		return models.QueueTicket{}, false, nil
	}
	delete(p.entries, playerID)
	if p.expired(ticket, now) {
		return models.QueueTicket{}, false, nil
	}
	return ticket, true, nil
}

func (p *MemoryPool) Snapshot(_ context.Context) ([]models.QueueTicket, error) {
	now := p.clock.Now()

	p.mu.RLock()
	out := make([]models.QueueTicket, 0, len(p.entries))
	for _, t := range p.entries {
		if p.expired(t, now) {
			continue
		}
		out = append(out, t)
	}
	p.mu.RUnlock()

	sortTickets(out)
	return out, nil
}

func (p *MemoryPool) Size(ctx context.Context) (int, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return len(snap), nil
}

func (p *MemoryPool) Position(ctx context.Context, playerID uuid.UUID) (int, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	for i, t := range snap {
		if t.PlayerID == playerID {
			return i + 1, nil
		}
	}
	return 0, ErrTicketNotFound
}

func (p *MemoryPool) PruneExpired(_ context.Context) ([]models.QueueTicket, error) {
	now := p.clock.Now()

	p.mu.Lock()
	var pruned []models.QueueTicket
	for id, t := range p.entries {
		if p.expired(t, now) {
			pruned = append(pruned, t)
			delete(p.entries, id)
		}
	}
	p.mu.Unlock()

	sortTickets(pruned)
	return pruned, nil
}

func (p *MemoryPool) expired(t models.QueueTicket, now time.Time) bool {
	return now.Sub(t.JoinedAt) >= p.ttl
}

// sortTickets orders by join time, ties by player id so ordering stays
// stable for equal timestamps.
func sortTickets(tickets []models.QueueTicket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].JoinedAt.Equal(tickets[j].JoinedAt) {
			return tickets[i].PlayerID.String() < tickets[j].PlayerID.String()
		}
		return tickets[i].JoinedAt.Before(tickets[j].JoinedAt)
	})
}
