package match

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/rating"
)

// Verdict is the result of the winner tie-break cascade.
type Verdict struct {
	WinnerID *uuid.UUID
	Draw     bool
	Decider  string
}

// DetermineWinner walks the tie-break cascade: cumulative score, then
// accuracy, then average response time, then an explicit draw. Players who
// never answered rank behind any answerer on the response-time criterion
// so silence cannot win a match.
func DetermineWinner(session *models.MatchSession) Verdict {
	a, b := &session.Players[0], &session.Players[1]

	if a.Score != b.Score {
		return winnerOf(a, b, a.Score > b.Score, "score")
	}

	accA, accB := a.Accuracy(), b.Accuracy()
	if accA != accB {
		return winnerOf(a, b, accA > accB, "accuracy")
	}

	answeredA, answeredB := a.TotalAnswers > 0, b.TotalAnswers > 0
	switch {
	case answeredA && !answeredB:
		return Verdict{WinnerID: &a.PlayerID, Decider: "avg_response"}
	case answeredB && !answeredA:
		return Verdict{WinnerID: &b.PlayerID, Decider: "avg_response"}
	case answeredA && answeredB:
		avgA, avgB := a.AvgResponse(), b.AvgResponse()
		if avgA != avgB {
			return winnerOf(a, b, avgA < avgB, "avg_response")
		}
	}

	return Verdict{Draw: true, Decider: "draw"}
}

func winnerOf(a, b *models.PlayerTally, aWins bool, decider string) Verdict {
	if aWins {
		return Verdict{WinnerID: &a.PlayerID, Decider: decider}
	}
	return Verdict{WinnerID: &b.PlayerID, Decider: decider}
}

// FinalizeCause describes what triggered finalization.
type FinalizeCause struct {
	// Forfeit marks a disconnect-timeout or explicit surrender; ForfeitBy
	// is the player who loses by it.
	Forfeit   bool
	ForfeitBy uuid.UUID

	// Abort marks a server shutdown or mutual abandonment. Aborted
	// matches settle nothing: no winner, no rating movement, no payout.
	Abort bool

	// Fault marks an unrecoverable internal error, such as a content
	// provider that cannot serve the next round. Settles like an abort
	// but leaves the session in the error state.
	Fault bool
}

// RecordStore persists the finished match together with its settlement
// event in one transaction.
type RecordStore interface {
	SaveCompletedMatch(ctx context.Context, record *models.MatchRecord) error
}

// RatingStore applies the match result to the players' stored profiles.
type RatingStore interface {
	ApplyMatchResult(ctx context.Context, record *models.MatchRecord) error
}

// Settler pays out coins for a finished match. Implementations must be
// idempotent per match so the async reconciler can replay them.
type Settler interface {
	ApplySettlement(ctx context.Context, record *models.MatchRecord) error
}

// Finalizer runs exactly once per match: it decides the winner, computes
// rating movement, and hands the record to the persistence and economy
// collaborators. Every downstream failure is caught and logged so the
// result always reaches both players; a lost write is reconciled
// asynchronously, never allowed to hide the outcome.
type Finalizer struct {
	engine  *rating.Engine
	records RecordStore
	ratings RatingStore
	settler Settler
	clock   clockwork.Clock
}

// NewFinalizer wires a finalizer. Any collaborator may be nil, in which
// case that side effect is skipped; the rating engine is required.
func NewFinalizer(engine *rating.Engine, records RecordStore, ratings RatingStore, settler Settler, clock clockwork.Clock) *Finalizer {
	return &Finalizer{
		engine:  engine,
		records: records,
		ratings: ratings,
		settler: settler,
		clock:   clock,
	}
}

// Finalize computes the terminal result for the session and fires the
// side effects. It mutates the session into its terminal state and always
// returns a usable record; it never returns an error.
func (f *Finalizer) Finalize(ctx context.Context, session *models.MatchSession, cause FinalizeCause) *models.MatchRecord {
	now := f.clock.Now()

	var verdict Verdict
	var outcome models.MatchOutcome
	switch {
	case cause.Fault:
		outcome = models.MatchOutcomeAborted
		verdict = Verdict{Decider: "fault"}
	case cause.Abort:
		outcome = models.MatchOutcomeAborted
		verdict = Verdict{Decider: "abort"}
	case cause.Forfeit:
		outcome = models.MatchOutcomeForfeit
		if opp := session.OpponentOf(cause.ForfeitBy); opp != nil {
			verdict = Verdict{WinnerID: &opp.PlayerID, Decider: "forfeit"}
		} else {
			// Unknown forfeiter; settle by the cascade instead.
			verdict = DetermineWinner(session)
		}
	default:
		verdict = DetermineWinner(session)
		outcome = models.MatchOutcomeWin
		if verdict.Draw {
			outcome = models.MatchOutcomeDraw
		}
	}

	updates := f.ratingUpdates(session, verdict, outcome)

	switch {
	case cause.Fault:
		session.Status = models.MatchStatusError
	case cause.Abort:
		session.Status = models.MatchStatusAbandoned
	default:
		session.Status = models.MatchStatusCompleted
	}
	session.WinnerID = verdict.WinnerID
	session.Draw = verdict.Draw
	session.CompletedAt = &now

	startedAt := session.CreatedAt
	if session.StartedAt != nil {
		startedAt = *session.StartedAt
	}
	record := &models.MatchRecord{
		MatchID:       session.ID,
		Players:       session.Players,
		Outcome:       outcome,
		WinnerID:      verdict.WinnerID,
		RatingUpdates: updates,
		RoundsPlayed:  session.CurrentRound,
		StartedAt:     startedAt,
		CompletedAt:   now,
	}

	log.Info().
		Str("match_id", session.ID.String()).
		Str("outcome", string(outcome)).
		Str("decider", verdict.Decider).
		Int("score_a", session.Players[0].Score).
		Int("score_b", session.Players[1].Score).
		Msg("match finalized")

	// Side effects are strictly best-effort: the record must reach both
	// players even when every collaborator is down.
	if f.records != nil {
		if err := f.records.SaveCompletedMatch(ctx, record); err != nil {
			log.Error().Err(err).Str("match_id", session.ID.String()).Msg("failed to persist match record")
		}
	}
	if f.ratings != nil && len(updates) > 0 {
		if err := f.ratings.ApplyMatchResult(ctx, record); err != nil {
			log.Error().Err(err).Str("match_id", session.ID.String()).Msg("failed to persist rating updates")
		}
	}
	if f.settler != nil && outcome != models.MatchOutcomeAborted {
		if err := f.settler.ApplySettlement(ctx, record); err != nil {
			log.Error().Err(err).Str("match_id", session.ID.String()).Msg("failed to settle match rewards")
		}
	}

	return record
}

// ratingUpdates computes per-player ELO movement from start-of-match
// ratings. Aborted matches move nothing.
func (f *Finalizer) ratingUpdates(session *models.MatchSession, verdict Verdict, outcome models.MatchOutcome) map[uuid.UUID]models.RatingUpdate {
	if outcome == models.MatchOutcomeAborted {
		return nil
	}

	updates := make(map[uuid.UUID]models.RatingUpdate, 2)
	for i := range session.Players {
		player := &session.Players[i]
		opponent := &session.Players[1-i]

		result := rating.OutcomeDraw
		if verdict.WinnerID != nil {
			if *verdict.WinnerID == player.PlayerID {
				result = rating.OutcomeWin
			} else {
				result = rating.OutcomeLoss
			}
		}
		updates[player.PlayerID] = f.engine.Update(player.PlayerID, player.Rating, opponent.Rating, result)
	}
	return updates
}
