package players

import "errors"

var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
)

// CreatePlayerRequest contains everything needed to register a player.
type CreatePlayerRequest struct {
	Username string
}
