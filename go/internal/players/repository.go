package players

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/sqlutil"
)

// Repository handles all player profile database operations.
type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: New(database),
	}
}

// CreatePlayer inserts a new player row with the starting rating.
func (r *Repository) CreatePlayer(ctx context.Context, id uuid.UUID, username string, rating int) (*models.Player, error) {
	row, err := r.queries.CreatePlayer(ctx, CreatePlayerParams{
		ID:       id,
		Username: username,
		Rating:   rating,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return rowToPlayer(row), nil
}

// GetPlayer loads one player by id.
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	row, err := r.queries.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return rowToPlayer(row), nil
}

// GetPlayerByUsername loads one player by username.
func (r *Repository) GetPlayerByUsername(ctx context.Context, username string) (*models.Player, error) {
	row, err := r.queries.GetPlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by username: %w", err)
	}
	return rowToPlayer(row), nil
}

// ApplyMatchResult writes both players' new ratings and win/loss/draw
// counters in one transaction.
func (r *Repository) ApplyMatchResult(ctx context.Context, record *models.MatchRecord) error {
	if len(record.RatingUpdates) == 0 {
		return nil
	}
	return sqlutil.Run(ctx, r.db,
		func(tx *sql.Tx) *Queries { return r.queries.WithTx(tx) },
		func(q *Queries) error {
			for playerID, update := range record.RatingUpdates {
				params := ApplyRatingResultParams{
					ID:     playerID,
					Rating: update.NewRating,
				}
				switch {
				case record.Draw():
					params.Draws = 1
				case record.WinnerID != nil && *record.WinnerID == playerID:
					params.Wins = 1
				default:
					params.Losses = 1
				}
				if err := q.ApplyRatingResult(ctx, params); err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return fmt.Errorf("apply result for %s: %w", playerID, ErrPlayerNotFound)
					}
					return fmt.Errorf("failed to apply match result: %w", err)
				}
			}
			return nil
		})
}

// TopPlayers returns the highest rated players.
func (r *Repository) TopPlayers(ctx context.Context, limit int32) ([]*models.Player, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.queries.TopPlayers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top players: %w", err)
	}
	out := make([]*models.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToPlayer(row))
	}
	return out, nil
}

func rowToPlayer(row playerRow) *models.Player {
	return &models.Player{
		ID:        row.ID,
		Username:  row.Username,
		Rating:    row.Rating,
		Wins:      row.Wins,
		Losses:    row.Losses,
		Draws:     row.Draws,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
