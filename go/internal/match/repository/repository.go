package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/floraclash/floraclash/go/internal/match"
	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/outbox"
	"github.com/floraclash/floraclash/go/internal/sqlutil"
)

// Repository persists finished matches. The match row and its settlement
// outbox event are written in one transaction so a recorded match always
// has a corresponding event for the reconciler to pick up.
type Repository struct {
	db      *sql.DB
	queries *Queries
}

// NewRepository creates a match repository over the given database.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: New(database),
	}
}

// SaveCompletedMatch records the match and enqueues its outbox event.
// Replays are harmless: an already-recorded match id skips both writes.
func (r *Repository) SaveCompletedMatch(ctx context.Context, record *models.MatchRecord) error {
	tallies, err := json.Marshal(record.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal match tallies: %w", err)
	}

	var updates pqtype.NullRawMessage
	if len(record.RatingUpdates) > 0 {
		raw, err := json.Marshal(record.RatingUpdates)
		if err != nil {
			return fmt.Errorf("failed to marshal rating updates: %w", err)
		}
		updates = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	return sqlutil.Run(ctx, r.db,
		func(tx *sql.Tx) *Queries { return r.queries.WithTx(tx) },
		func(q *Queries) error {
			inserted, err := q.InsertMatch(ctx, InsertMatchParams{
				ID:            record.MatchID,
				PlayerA:       record.Players[0].PlayerID,
				PlayerB:       record.Players[1].PlayerID,
				Outcome:       string(record.Outcome),
				WinnerID:      sqlutil.ToNullUUID(record.WinnerID),
				ScoreA:        record.Players[0].Score,
				ScoreB:        record.Players[1].Score,
				RoundsPlayed:  record.RoundsPlayed,
				Tallies:       tallies,
				RatingUpdates: updates,
				StartedAt:     record.StartedAt,
				CompletedAt:   record.CompletedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to insert match: %w", err)
			}
			if !inserted {
				log.Debug().
					Str("match_id", record.MatchID.String()).
					Msg("match already recorded; skipping outbox event")
				return nil
			}
			if err := q.InsertOutboxEvent(ctx, InsertOutboxEventParams{
				ID:        uuid.New(),
				MatchID:   record.MatchID,
				EventType: outbox.EventTypeMatchCompleted,
				Payload:   payload,
			}); err != nil {
				return fmt.Errorf("failed to insert outbox event: %w", err)
			}
			return nil
		})
}

// GetMatchRecord loads one finished match by id.
func (r *Repository) GetMatchRecord(ctx context.Context, matchID uuid.UUID) (*models.MatchRecord, error) {
	row, err := r.queries.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, match.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return rowToRecord(row)
}

// ListPlayerRecords returns the player's most recent finished matches.
func (r *Repository) ListPlayerRecords(ctx context.Context, playerID uuid.UUID, limit int) ([]*models.MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.queries.ListMatchesByPlayer(ctx, playerID, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	records := make([]*models.MatchRecord, 0, len(rows))
	for _, row := range rows {
		record, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func rowToRecord(row matchRow) (*models.MatchRecord, error) {
	record := &models.MatchRecord{
		MatchID:      row.ID,
		Outcome:      models.MatchOutcome(row.Outcome),
		WinnerID:     sqlutil.FromNullUUID(row.WinnerID),
		RoundsPlayed: row.RoundsPlayed,
		StartedAt:    row.StartedAt,
		CompletedAt:  row.CompletedAt,
	}
	if err := json.Unmarshal(row.Tallies, &record.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match tallies: %w", err)
	}
	if row.RatingUpdates.Valid {
		if err := json.Unmarshal(row.RatingUpdates.RawMessage, &record.RatingUpdates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rating updates: %w", err)
		}
	}
	return record, nil
}
