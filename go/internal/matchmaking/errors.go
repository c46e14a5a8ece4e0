package matchmaking

import "errors"

var (
	// ErrTicketNotFound means the player has no live entry in the pool.
	ErrTicketNotFound = errors.New("queue ticket not found")

	// ErrTicketTaken means a racing request already claimed the caller's
	// entry; the caller's match is being formed elsewhere.
	ErrTicketTaken = errors.New("queue ticket already claimed")

	// ErrNoOpponent means no admissible candidate remained after the
	// bounded retry budget; the caller stays queued.
	ErrNoOpponent = errors.New("no suitable opponent available")
)
