package players

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floraclash/floraclash/go/internal/models"
)

type memStore struct {
	byID       map[uuid.UUID]*models.Player
	byUsername map[string]*models.Player
}

func newMemStore() *memStore {
	return &memStore{
		byID:       make(map[uuid.UUID]*models.Player),
		byUsername: make(map[string]*models.Player),
	}
}

func (s *memStore) CreatePlayer(ctx context.Context, id uuid.UUID, username string, rating int) (*models.Player, error) {
	if _, ok := s.byUsername[username]; ok {
		return nil, ErrUsernameTaken
	}
	p := &models.Player{ID: id, Username: username, Rating: rating, CreatedAt: time.Now()}
	s.byID[id] = p
	s.byUsername[username] = p
	return p, nil
}

func (s *memStore) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

func (s *memStore) GetPlayerByUsername(ctx context.Context, username string) (*models.Player, error) {
	p, ok := s.byUsername[username]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

func (s *memStore) ApplyMatchResult(ctx context.Context, record *models.MatchRecord) error {
	for playerID, update := range record.RatingUpdates {
		p, ok := s.byID[playerID]
		if !ok {
			return ErrPlayerNotFound
		}
		p.Rating = update.NewRating
		switch {
		case record.Draw():
			p.Draws++
		case record.WinnerID != nil && *record.WinnerID == playerID:
			p.Wins++
		default:
			p.Losses++
		}
	}
	return nil
}

func (s *memStore) TopPlayers(ctx context.Context, limit int32) ([]*models.Player, error) {
	var out []*models.Player
	for _, p := range s.byID {
		out = append(out, p)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Rating > out[i].Rating {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memBoard struct {
	scores map[uuid.UUID]int
}

func newMemBoard() *memBoard {
	return &memBoard{scores: make(map[uuid.UUID]int)}
}

func (b *memBoard) Record(ctx context.Context, playerID uuid.UUID, rating int) error {
	b.scores[playerID] = rating
	return nil
}

func (b *memBoard) Top(ctx context.Context, limit int64) ([]Entry, error) {
	var entries []Entry
	for id, score := range b.scores {
		entries = append(entries, Entry{PlayerID: id, Rating: score})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Rating > entries[i].Rating {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = int64(i) + 1
	}
	return entries, nil
}

func (b *memBoard) RankOf(ctx context.Context, playerID uuid.UUID) (int64, error) {
	entries, _ := b.Top(ctx, int64(len(b.scores)))
	for _, e := range entries {
		if e.PlayerID == playerID {
			return e.Rank, nil
		}
	}
	return 0, ErrNotRanked
}

type memSeeder struct {
	seeded []uuid.UUID
}

func (s *memSeeder) SeedNewPlayer(ctx context.Context, playerID uuid.UUID) error {
	s.seeded = append(s.seeded, playerID)
	return nil
}

func TestCreatePlayerValidatesUsername(t *testing.T) {
	app := NewApp(newMemStore(), nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{name: "empty", username: "", wantErr: ErrInvalidUsername},
		{name: "too short", username: "ab", wantErr: ErrInvalidUsername},
		{name: "too long", username: "this_username_is_way_too_long", wantErr: ErrInvalidUsername},
		{name: "bad characters", username: "fern fan!", wantErr: ErrInvalidUsername},
		{name: "valid", username: "fern_fan42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.CreatePlayer(ctx, CreatePlayerRequest{Username: tt.username})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreatePlayerSeedsAndRanks(t *testing.T) {
	store := newMemStore()
	board := newMemBoard()
	seeder := &memSeeder{}
	app := NewApp(store, board, seeder, nil)

	player, err := app.CreatePlayer(context.Background(), CreatePlayerRequest{Username: "moss_boss"})
	require.NoError(t, err)

	assert.Equal(t, DefaultStartingRating, player.Rating)
	assert.Equal(t, []uuid.UUID{player.ID}, seeder.seeded)
	assert.Equal(t, DefaultStartingRating, board.scores[player.ID])
}

func TestCreatePlayerRejectsTakenUsername(t *testing.T) {
	store := newMemStore()
	app := NewApp(store, nil, nil, nil)
	ctx := context.Background()

	_, err := app.CreatePlayer(ctx, CreatePlayerRequest{Username: "fern_fan"})
	require.NoError(t, err)

	_, err = app.CreatePlayer(ctx, CreatePlayerRequest{Username: "fern_fan"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestApplyMatchResultUpdatesProfilesAndBoard(t *testing.T) {
	store := newMemStore()
	board := newMemBoard()
	app := NewApp(store, board, nil, nil)
	ctx := context.Background()

	winner, err := app.CreatePlayer(ctx, CreatePlayerRequest{Username: "fern_fan"})
	require.NoError(t, err)
	loser, err := app.CreatePlayer(ctx, CreatePlayerRequest{Username: "moss_boss"})
	require.NoError(t, err)

	record := &models.MatchRecord{
		MatchID:  uuid.New(),
		Outcome:  models.MatchOutcomeWin,
		WinnerID: &winner.ID,
		RatingUpdates: map[uuid.UUID]models.RatingUpdate{
			winner.ID: {PlayerID: winner.ID, PreviousRating: 1000, NewRating: 1016, Delta: 16},
			loser.ID:  {PlayerID: loser.ID, PreviousRating: 1000, NewRating: 984, Delta: -16},
		},
	}
	require.NoError(t, app.ApplyMatchResult(ctx, record))

	got, err := app.GetPlayer(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1016, got.Rating)
	assert.Equal(t, 1, got.Wins)

	got, err = app.GetPlayer(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, 984, got.Rating)
	assert.Equal(t, 1, got.Losses)

	assert.Equal(t, 1016, board.scores[winner.ID])
	assert.Equal(t, 984, board.scores[loser.ID])
}

func TestLeaderboardHydratesFromBoard(t *testing.T) {
	store := newMemStore()
	board := newMemBoard()
	app := NewApp(store, board, nil, nil)
	ctx := context.Background()

	a, err := app.CreatePlayer(ctx, CreatePlayerRequest{Username: "fern_fan"})
	require.NoError(t, err)
	b, err := app.CreatePlayer(ctx, CreatePlayerRequest{Username: "moss_boss"})
	require.NoError(t, err)

	require.NoError(t, board.Record(ctx, a.ID, 1460))
	require.NoError(t, board.Record(ctx, b.ID, 1210))
	store.byID[a.ID].Rating = 1460
	store.byID[b.ID].Rating = 1210

	entries, err := app.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "fern_fan", entries[0].Player.Username)
	assert.Equal(t, int64(1), entries[0].Rank)
	assert.Equal(t, "Orchid", entries[0].Tier)
	assert.Equal(t, "Bloom", entries[1].Tier)
}

func TestLeaderboardFallsBackToStore(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	_, err := store.CreatePlayer(ctx, uuid.New(), "fern_fan", 1120)
	require.NoError(t, err)

	// the board has no entries, so ordering comes from the store
	app := NewApp(store, newMemBoard(), nil, nil)
	entries, err := app.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fern_fan", entries[0].Player.Username)
	assert.Equal(t, int64(1), entries[0].Rank)
}

func TestRankWithoutBoard(t *testing.T) {
	app := NewApp(newMemStore(), nil, nil, nil)

	_, err := app.Rank(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotRanked)
}
