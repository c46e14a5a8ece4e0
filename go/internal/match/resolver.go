package match

import (
	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
)

// RoundOutcome is the resolver's verdict for a single round. A nil
// WinnerID means no points are awarded.
type RoundOutcome struct {
	Round    int
	WinnerID *uuid.UUID
}

// ResolveRound determines the round winner from up to two submissions.
// Priority: a correct answer beats an incorrect or missing one; two
// correct answers go to the faster one; two incorrect or missing answers
// award nothing. A dead heat between two correct answers with identical
// elapsed times also awards nothing rather than inventing an edge.
func ResolveRound(round int, a, b *models.Submission) RoundOutcome {
	out := RoundOutcome{Round: round}

	switch {
	case a == nil && b == nil:
		return out
	case b == nil:
		if a.Correct {
			out.WinnerID = &a.PlayerID
		}
		return out
	case a == nil:
		if b.Correct {
			out.WinnerID = &b.PlayerID
		}
		return out
	}

	switch {
	case a.Correct && !b.Correct:
		out.WinnerID = &a.PlayerID
	case b.Correct && !a.Correct:
		out.WinnerID = &b.PlayerID
	case a.Correct && b.Correct:
		if a.Elapsed < b.Elapsed {
			out.WinnerID = &a.PlayerID
		} else if b.Elapsed < a.Elapsed {
			out.WinnerID = &b.PlayerID
		}
	}
	return out
}

// applyRound folds one resolved round into the session tallies: answer
// stats for everyone who submitted, points for the winner. Missing
// submissions never count against accuracy or response time; they simply
// cannot win the round.
func applyRound(session *models.MatchSession, outcome RoundOutcome, points int, subs ...*models.Submission) {
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		tally := session.TallyFor(sub.PlayerID)
		if tally == nil {
			continue
		}
		tally.TotalAnswers++
		if sub.Correct {
			tally.CorrectAnswers++
		}
		tally.TotalResponse += sub.Elapsed
	}

	if outcome.WinnerID != nil {
		if tally := session.TallyFor(*outcome.WinnerID); tally != nil {
			tally.Score += points
		}
	}
}
