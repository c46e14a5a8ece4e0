package match

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floraclash/floraclash/go/internal/models"
)

func sub(playerID uuid.UUID, correct bool, elapsed time.Duration) *models.Submission {
	return &models.Submission{
		PlayerID: playerID,
		Correct:  correct,
		Elapsed:  elapsed,
	}
}

func TestResolveRound(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	tests := []struct {
		name   string
		a, b   *models.Submission
		winner *uuid.UUID
	}{
		{"no submissions", nil, nil, nil},
		{"lone correct answer wins", sub(alice, true, 3*time.Second), nil, &alice},
		{"lone incorrect answer scores nothing", sub(alice, false, 3*time.Second), nil, nil},
		{"correct beats incorrect", sub(alice, false, time.Second), sub(bob, true, 10*time.Second), &bob},
		{"both correct faster wins", sub(alice, true, 2*time.Second), sub(bob, true, 5*time.Second), &alice},
		{"both correct faster wins either slot", sub(alice, true, 9*time.Second), sub(bob, true, 4*time.Second), &bob},
		{"both incorrect no points", sub(alice, false, time.Second), sub(bob, false, time.Second), nil},
		{"dead heat no points", sub(alice, true, 3*time.Second), sub(bob, true, 3*time.Second), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ResolveRound(2, tt.a, tt.b)
			assert.Equal(t, 2, out.Round)
			if tt.winner == nil {
				assert.Nil(t, out.WinnerID)
			} else {
				require.NotNil(t, out.WinnerID)
				assert.Equal(t, *tt.winner, *out.WinnerID)
			}
		})
	}
}

func TestApplyRoundUpdatesTallies(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	session := newDuelSession(alice, bob, 1200, 1200)

	a := sub(alice, true, 2*time.Second)
	b := sub(bob, false, 6*time.Second)
	out := ResolveRound(1, a, b)
	applyRound(session, out, 100, a, b)

	aliceTally := session.TallyFor(alice)
	require.NotNil(t, aliceTally)
	assert.Equal(t, 100, aliceTally.Score)
	assert.Equal(t, 1, aliceTally.CorrectAnswers)
	assert.Equal(t, 1, aliceTally.TotalAnswers)
	assert.Equal(t, 2*time.Second, aliceTally.TotalResponse)

	bobTally := session.TallyFor(bob)
	require.NotNil(t, bobTally)
	assert.Equal(t, 0, bobTally.Score)
	assert.Equal(t, 0, bobTally.CorrectAnswers)
	assert.Equal(t, 1, bobTally.TotalAnswers)
	assert.Equal(t, 6*time.Second, bobTally.TotalResponse)
}

func TestApplyRoundSkipsMissingSubmission(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	session := newDuelSession(alice, bob, 1200, 1200)

	a := sub(alice, true, 4*time.Second)
	out := ResolveRound(1, a, nil)
	applyRound(session, out, 100, a, nil)

	assert.Equal(t, 100, session.TallyFor(alice).Score)
	assert.Equal(t, 1, session.TallyFor(alice).TotalAnswers)

	// A missing answer never counts against accuracy or response time.
	bobTally := session.TallyFor(bob)
	assert.Equal(t, 0, bobTally.Score)
	assert.Equal(t, 0, bobTally.TotalAnswers)
	assert.Equal(t, time.Duration(0), bobTally.TotalResponse)
}
