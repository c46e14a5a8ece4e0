package rating

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateEvenMatch(t *testing.T) {
	e := NewEngine(Config{})
	id := uuid.New()

	win := e.Update(id, 1200, 1200, OutcomeWin)
	assert.Equal(t, 1216, win.NewRating)
	assert.Equal(t, 16, win.Delta)

	loss := e.Update(id, 1200, 1200, OutcomeLoss)
	assert.Equal(t, 1184, loss.NewRating)
	assert.Equal(t, -16, loss.Delta)

	draw := e.Update(id, 1200, 1200, OutcomeDraw)
	assert.Equal(t, 1200, draw.NewRating)
	assert.Equal(t, 0, draw.Delta)
}

func TestUpdateUnderdogWin(t *testing.T) {
	e := NewEngine(Config{})

	// Beating a much stronger opponent pays close to the full K.
	up := e.Update(uuid.New(), 1000, 1400, OutcomeWin)
	assert.Equal(t, 29, up.Delta)
	assert.Equal(t, 1029, up.NewRating)
}

func TestUpdateFloorClamp(t *testing.T) {
	e := NewEngine(Config{Floor: 100})

	up := e.Update(uuid.New(), 110, 100, OutcomeLoss)
	assert.Equal(t, 100, up.NewRating, "rating must clamp at the floor")
	assert.Equal(t, -10, up.Delta, "delta reflects the clamped result")
}

func TestFloorHoldsUnderRepeatedLosses(t *testing.T) {
	e := NewEngine(Config{})
	id := uuid.New()

	rating := 150
	for i := 0; i < 20; i++ {
		up := e.Update(id, rating, rating, OutcomeLoss)
		require.GreaterOrEqual(t, up.NewRating, 100)
		rating = up.NewRating
	}
	assert.Equal(t, 100, rating)
}

func TestTierBoundaries(t *testing.T) {
	e := NewEngine(Config{})

	assert.Equal(t, "Seedling", e.TierFor(999))
	assert.Equal(t, "Sprout", e.TierFor(1000))
	assert.Equal(t, "Sprout", e.TierFor(1199))
	assert.Equal(t, "Bloom", e.TierFor(1200))
	assert.Equal(t, "Orchid", e.TierFor(1400))
	assert.Equal(t, "Ancient Oak", e.TierFor(1700))
	assert.Equal(t, "Ancient Oak", e.TierFor(2400))
}

func TestTierCrossingFlagged(t *testing.T) {
	e := NewEngine(Config{})

	// 1190 -> 1220 crosses the 1200 boundary.
	up := e.Update(uuid.New(), 1190, 1660, OutcomeWin)
	require.Equal(t, 1220, up.NewRating)
	assert.True(t, up.TierChanged)
	assert.Equal(t, "Sprout", up.PreviousTier)
	assert.Equal(t, "Bloom", up.NewTier)

	// A move inside one tier must not flag.
	flat := e.Update(uuid.New(), 1250, 1250, OutcomeWin)
	require.Equal(t, 1266, flat.NewRating)
	assert.False(t, flat.TierChanged)
}

func TestExpectedSymmetry(t *testing.T) {
	e := NewEngine(Config{})

	a := e.Expected(1300, 1100)
	b := e.Expected(1100, 1300)
	assert.InDelta(t, 1.0, a+b, 1e-9)
	assert.Greater(t, a, b)
}
