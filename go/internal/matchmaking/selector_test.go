package matchmaking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floraclash/floraclash/go/internal/models"
)

func ticketAt(rating int, joined time.Time) models.QueueTicket {
	return models.QueueTicket{
		PlayerID: uuid.New(),
		Username: "p",
		Rating:   rating,
		JoinedAt: joined,
	}
}

func TestFindOpponentPrefersCloserRating(t *testing.T) {
	now := time.Now()
	waiting := now.Add(-30 * time.Second)

	near := ticketAt(1020, waiting)
	far := ticketAt(1500, waiting)
	snapshot := []models.QueueTicket{near, far}

	got, ok := FindOpponent(snapshot, uuid.New(), 1000, now, SelectorConfig{})
	require.True(t, ok)
	assert.Equal(t, near.PlayerID, got.PlayerID, "the 1500 player sits outside the widened band")

	// Same result regardless of snapshot order.
	got, ok = FindOpponent([]models.QueueTicket{far, near}, uuid.New(), 1000, now, SelectorConfig{})
	require.True(t, ok)
	assert.Equal(t, near.PlayerID, got.PlayerID)
}

func TestFindOpponentRejectsOutOfBand(t *testing.T) {
	now := time.Now()

	far := ticketAt(1500, now.Add(-30*time.Second))
	_, ok := FindOpponent([]models.QueueTicket{far}, uuid.New(), 1000, now, SelectorConfig{})
	assert.False(t, ok, "500 apart with 30s wait exceeds 150+30")
}

func TestFindOpponentWaitWidensBand(t *testing.T) {
	now := time.Now()

	far := ticketAt(1500, now.Add(-6*time.Minute))
	got, ok := FindOpponent([]models.QueueTicket{far}, uuid.New(), 1000, now, SelectorConfig{})
	require.True(t, ok, "360s of waiting stretches the band past 500")
	assert.Equal(t, far.PlayerID, got.PlayerID)
}

func TestFindOpponentTieGoesToLongerWait(t *testing.T) {
	now := time.Now()

	// dist 100 - 5s bonus and dist 120 - 25s bonus both cost 95; the tie
	// must resolve to the longer-waiting candidate.
	newer := ticketAt(1100, now.Add(-5*time.Second))
	older := ticketAt(1120, now.Add(-25*time.Second))

	got, ok := FindOpponent([]models.QueueTicket{newer, older}, uuid.New(), 1000, now, SelectorConfig{})
	require.True(t, ok)
	assert.Equal(t, older.PlayerID, got.PlayerID, "longer wait wins the cost tie")
}

func TestFindOpponentFullTieUsesSnapshotOrder(t *testing.T) {
	now := time.Now()

	// Same distance either side of the requester and identical waits:
	// cost and wait tie, so the earlier snapshot entry wins.
	above := ticketAt(1100, now.Add(-5*time.Second))
	below := ticketAt(900, now.Add(-5*time.Second))

	got, ok := FindOpponent([]models.QueueTicket{above, below}, uuid.New(), 1000, now, SelectorConfig{})
	require.True(t, ok)
	assert.Equal(t, above.PlayerID, got.PlayerID)
}

func TestFindOpponentExcludesSelf(t *testing.T) {
	now := time.Now()
	me := ticketAt(1000, now.Add(-time.Minute))

	_, ok := FindOpponent([]models.QueueTicket{me}, me.PlayerID, me.Rating, now, SelectorConfig{})
	assert.False(t, ok)
}

func TestFindOpponentEmptySnapshot(t *testing.T) {
	_, ok := FindOpponent(nil, uuid.New(), 1000, time.Now(), SelectorConfig{})
	assert.False(t, ok)
}

func TestFindOpponentDeterministic(t *testing.T) {
	now := time.Now()
	snapshot := make([]models.QueueTicket, 0, 50)
	for i := 0; i < 50; i++ {
		snapshot = append(snapshot, ticketAt(1000+i*7, now.Add(-time.Duration(i)*time.Second)))
	}

	first, ok := FindOpponent(snapshot, uuid.New(), 1100, now, SelectorConfig{})
	require.True(t, ok)
	for i := 0; i < 20; i++ {
		again, ok := FindOpponent(snapshot, uuid.New(), 1100, now, SelectorConfig{})
		require.True(t, ok)
		assert.Equal(t, first.PlayerID, again.PlayerID)
	}
}

func TestFindOpponentLargePoolUnderBudget(t *testing.T) {
	now := time.Now()
	snapshot := make([]models.QueueTicket, 0, 1000)
	for i := 0; i < 1000; i++ {
		snapshot = append(snapshot, ticketAt(800+(i%900), now.Add(-time.Duration(i%300)*time.Second)))
	}

	start := time.Now()
	_, ok := FindOpponent(snapshot, uuid.New(), 1200, now, SelectorConfig{})
	elapsed := time.Since(start)

	require.True(t, ok)
	assert.Less(t, elapsed, 100*time.Millisecond, "selection must stay well under the latency contract")
}
