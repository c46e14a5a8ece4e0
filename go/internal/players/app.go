package players

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/rating"
)

// DefaultStartingRating is where every new player begins.
const DefaultStartingRating = 1000

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// Store defines what the app layer needs from the repository.
type Store interface {
	CreatePlayer(ctx context.Context, id uuid.UUID, username string, rating int) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	GetPlayerByUsername(ctx context.Context, username string) (*models.Player, error)
	ApplyMatchResult(ctx context.Context, record *models.MatchRecord) error
	TopPlayers(ctx context.Context, limit int32) ([]*models.Player, error)
}

// Board is the rank index kept next to the players table.
type Board interface {
	Record(ctx context.Context, playerID uuid.UUID, rating int) error
	Top(ctx context.Context, limit int64) ([]Entry, error)
	RankOf(ctx context.Context, playerID uuid.UUID) (int64, error)
}

// Seeder grants a new player's starting coins.
type Seeder interface {
	SeedNewPlayer(ctx context.Context, playerID uuid.UUID) error
}

// App handles player business logic. The board and seeder may be nil;
// rating persistence works without them.
type App struct {
	repo   Store
	board  Board
	seeder Seeder
	engine *rating.Engine
}

func NewApp(repo Store, board Board, seeder Seeder, engine *rating.Engine) *App {
	if engine == nil {
		engine = rating.NewEngine(rating.Config{})
	}
	return &App{
		repo:   repo,
		board:  board,
		seeder: seeder,
		engine: engine,
	}
}

// CreatePlayer registers a new player, grants their seed coins, and puts
// them on the leaderboard.
func (a *App) CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*models.Player, error) {
	if !usernamePattern.MatchString(req.Username) {
		return nil, fmt.Errorf("%w: want 3-20 letters, digits or underscores", ErrInvalidUsername)
	}

	player, err := a.repo.CreatePlayer(ctx, uuid.New(), req.Username, DefaultStartingRating)
	if err != nil {
		return nil, err
	}

	if a.seeder != nil {
		if err := a.seeder.SeedNewPlayer(ctx, player.ID); err != nil {
			log.Error().Err(err).
				Str("player_id", player.ID.String()).
				Msg("failed to seed new player coins")
		}
	}
	a.recordRank(ctx, player.ID, player.Rating)

	log.Info().
		Str("player_id", player.ID.String()).
		Str("username", player.Username).
		Msg("created player")
	return player, nil
}

// GetPlayer retrieves a player by ID.
func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return a.repo.GetPlayer(ctx, id)
}

// GetPlayerByUsername retrieves a player by username.
func (a *App) GetPlayerByUsername(ctx context.Context, username string) (*models.Player, error) {
	return a.repo.GetPlayerByUsername(ctx, username)
}

// ApplyMatchResult persists both players' rating updates and win/loss
// counters, then refreshes their leaderboard scores.
func (a *App) ApplyMatchResult(ctx context.Context, record *models.MatchRecord) error {
	if err := a.repo.ApplyMatchResult(ctx, record); err != nil {
		return err
	}
	for playerID, update := range record.RatingUpdates {
		a.recordRank(ctx, playerID, update.NewRating)
		if update.TierChanged {
			log.Info().
				Str("player_id", playerID.String()).
				Str("from", update.PreviousTier).
				Str("to", update.NewTier).
				Msg("player changed tier")
		}
	}
	return nil
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank   int64                `json:"rank"`
	Player models.PlayerSummary `json:"player"`
	Tier   string               `json:"tier"`
	Wins   int                  `json:"wins"`
	Losses int                  `json:"losses"`
	Draws  int                  `json:"draws"`
}

// Leaderboard returns the top players. The rank index serves the order;
// profile details come from the store. When the index is empty or down
// the store's own ordering answers instead.
func (a *App) Leaderboard(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	if a.board != nil {
		entries, err := a.board.Top(ctx, limit)
		if err == nil && len(entries) > 0 {
			return a.hydrate(ctx, entries)
		}
		if err != nil {
			log.Warn().Err(err).Msg("leaderboard index unavailable, falling back to store")
		}
	}

	top, err := a.repo.TopPlayers(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(top))
	for i, p := range top {
		out = append(out, LeaderboardEntry{
			Rank:   int64(i) + 1,
			Player: p.Summary(),
			Tier:   a.engine.TierFor(p.Rating),
			Wins:   p.Wins,
			Losses: p.Losses,
			Draws:  p.Draws,
		})
	}
	return out, nil
}

// Rank returns a player's position on the board, 1 being the best.
func (a *App) Rank(ctx context.Context, playerID uuid.UUID) (int64, error) {
	if a.board == nil {
		return 0, ErrNotRanked
	}
	return a.board.RankOf(ctx, playerID)
}

// Tier names the rank tier for a rating.
func (a *App) Tier(ratingValue int) string {
	return a.engine.TierFor(ratingValue)
}

func (a *App) hydrate(ctx context.Context, entries []Entry) ([]LeaderboardEntry, error) {
	out := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		player, err := a.repo.GetPlayer(ctx, e.PlayerID)
		if err != nil {
			log.Warn().Err(err).
				Str("player_id", e.PlayerID.String()).
				Msg("leaderboard entry without profile, skipping")
			continue
		}
		out = append(out, LeaderboardEntry{
			Rank:   e.Rank,
			Player: player.Summary(),
			Tier:   a.engine.TierFor(player.Rating),
			Wins:   player.Wins,
			Losses: player.Losses,
			Draws:  player.Draws,
		})
	}
	return out, nil
}

func (a *App) recordRank(ctx context.Context, playerID uuid.UUID, ratingValue int) {
	if a.board == nil {
		return
	}
	if err := a.board.Record(ctx, playerID, ratingValue); err != nil {
		log.Warn().Err(err).
			Str("player_id", playerID.String()).
			Msg("failed to update leaderboard score")
	}
}
