package match

import "errors"

var (
	// ErrMatchNotFound means no live session exists for the given id.
	ErrMatchNotFound = errors.New("match not found")

	// ErrNotParticipant means the player does not belong to the session.
	ErrNotParticipant = errors.New("player is not part of this match")

	// ErrWrongRound means the submission referenced a round other than the
	// one currently accepting answers.
	ErrWrongRound = errors.New("submission is for a different round")

	// ErrRoundClosed means the session is not currently accepting answers.
	ErrRoundClosed = errors.New("round is not accepting submissions")

	// ErrDuplicateSubmission means the player already answered this round;
	// the first accepted answer stands.
	ErrDuplicateSubmission = errors.New("submission already accepted for this round")

	// ErrMatchOver means the session has reached a terminal state.
	ErrMatchOver = errors.New("match already finished")

	// ErrPlayerBusy means the player is already bound to a live session.
	ErrPlayerBusy = errors.New("player already in an active match")
)
