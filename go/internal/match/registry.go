package match

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live coordinators so transports can route submissions
// and presence events by match or by player. Registration enforces the
// one-live-match-per-player rule.
type Registry struct {
	mu       sync.RWMutex
	byMatch  map[uuid.UUID]*Coordinator
	byPlayer map[uuid.UUID]*Coordinator
}

func NewRegistry() *Registry {
	return &Registry{
		byMatch:  make(map[uuid.UUID]*Coordinator),
		byPlayer: make(map[uuid.UUID]*Coordinator),
	}
}

// Register adds a coordinator. It fails with ErrPlayerBusy if either
// participant is already bound to a live match.
func (r *Registry) Register(c *Coordinator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range c.Players() {
		if _, busy := r.byPlayer[id]; busy {
			return ErrPlayerBusy
		}
	}
	r.byMatch[c.MatchID()] = c
	for _, id := range c.Players() {
		r.byPlayer[id] = c
	}
	return nil
}

// Remove drops a finished match and frees both players.
func (r *Registry) Remove(matchID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(matchID)
}

func (r *Registry) remove(matchID uuid.UUID) {
	c, ok := r.byMatch[matchID]
	if !ok {
		return
	}
	delete(r.byMatch, matchID)
	for _, id := range c.Players() {
		if r.byPlayer[id] == c {
			delete(r.byPlayer, id)
		}
	}
}

// Get returns the live coordinator for a match.
func (r *Registry) Get(matchID uuid.UUID) (*Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byMatch[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return c, nil
}

// ForPlayer returns the live coordinator the player belongs to.
func (r *Registry) ForPlayer(playerID uuid.UUID) (*Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPlayer[playerID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return c, nil
}

// Busy reports whether the player is bound to a live match.
func (r *Registry) Busy(playerID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, busy := r.byPlayer[playerID]
	return busy
}

// Len returns the number of live matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMatch)
}

// All returns the live coordinators in no particular order.
func (r *Registry) All() []*Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Coordinator, 0, len(r.byMatch))
	for _, c := range r.byMatch {
		out = append(out, c)
	}
	return out
}

// Sweep removes coordinators whose run loop has exited and returns how
// many were dropped. Intended for a periodic janitor; Service removes
// matches as they finish, so this only catches strays.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.byMatch {
		select {
		case <-c.Done():
			r.remove(id)
			removed++
		default:
		}
	}
	return removed
}
