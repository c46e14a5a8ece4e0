package match

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/rating"
)

func newDuelSession(a, b uuid.UUID, ratingA, ratingB int) *models.MatchSession {
	return &models.MatchSession{
		ID: uuid.New(),
		Players: [2]models.PlayerTally{
			{PlayerID: a, Username: "fern_fan", Rating: ratingA},
			{PlayerID: b, Username: "moss_boss", Rating: ratingB},
		},
		Status:    models.MatchStatusForming,
		MaxRounds: DefaultMaxRounds,
	}
}

// stubProvider serves one known answer per round and can be told to fail
// from a given round onward.
type stubProvider struct {
	failFrom int
}

func (p *stubProvider) Init() error { return nil }

func (p *stubProvider) NextQuestion(_ context.Context, _ uuid.UUID, round int) (models.Question, error) {
	if p.failFrom > 0 && round >= p.failFrom {
		return models.Question{}, fmt.Errorf("catalog unavailable")
	}
	return models.Question{
		ID:      fmt.Sprintf("q-%d", round),
		Prompt:  fmt.Sprintf("question %d", round),
		Options: []string{"oak", "elm", "fir", "yew"},
		Answer:  "oak",
	}, nil
}

// recorder captures broadcast events for assertions. Every broadcast goes
// to both players, so counts come in pairs.
type recorder struct {
	mu        sync.Mutex
	found     []MatchFound
	started   []RoundState
	resolved  []RoundResult
	completed []*models.MatchRecord
}

func (r *recorder) MatchFound(_ uuid.UUID, found MatchFound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found = append(r.found, found)
}

func (r *recorder) RoundStarted(_ uuid.UUID, state RoundState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, state)
}

func (r *recorder) RoundResolved(_ uuid.UUID, result RoundResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, result)
}

func (r *recorder) MatchCompleted(_ uuid.UUID, record *models.MatchRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, record)
}

func (r *recorder) lastStarted() (RoundState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.started) == 0 {
		return RoundState{}, false
	}
	return r.started[len(r.started)-1], true
}

func (r *recorder) lastResolved() (RoundResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.resolved) == 0 {
		return RoundResult{}, false
	}
	return r.resolved[len(r.resolved)-1], true
}

func (r *recorder) completedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.completed)
}

func waitForRound(t *testing.T, rec *recorder, round int) RoundState {
	t.Helper()
	var state RoundState
	require.Eventually(t, func() bool {
		last, ok := rec.lastStarted()
		if !ok || last.Round != round {
			return false
		}
		state = last
		return true
	}, 2*time.Second, 5*time.Millisecond, "round %d never started", round)
	return state
}

func waitForResolved(t *testing.T, rec *recorder, round int) RoundResult {
	t.Helper()
	var result RoundResult
	require.Eventually(t, func() bool {
		last, ok := rec.lastResolved()
		if !ok || last.Round != round {
			return false
		}
		result = last
		return true
	}, 2*time.Second, 5*time.Millisecond, "round %d never resolved", round)
	return result
}

func waitForDone(t *testing.T, c *Coordinator) *models.MatchRecord {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator never finished")
	}
	require.NotNil(t, c.Record())
	return c.Record()
}

type coordinatorHarness struct {
	c       *Coordinator
	rec     *recorder
	clock   *clockwork.FakeClock
	session *models.MatchSession
	alice   uuid.UUID
	bob     uuid.UUID
	cancel  context.CancelFunc
}

func startCoordinator(t *testing.T, provider *stubProvider) *coordinatorHarness {
	t.Helper()
	alice := uuid.New()
	bob := uuid.New()
	clock := clockwork.NewFakeClock()
	session := newDuelSession(alice, bob, 1200, 1200)
	finalizer := NewFinalizer(rating.NewEngine(rating.Config{}), nil, nil, nil, clock)
	rec := &recorder{}
	c := NewCoordinator(session, provider, finalizer, rec, clock, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	return &coordinatorHarness{
		c:       c,
		rec:     rec,
		clock:   clock,
		session: session,
		alice:   alice,
		bob:     bob,
		cancel:  cancel,
	}
}

func TestCoordinatorPlaysFullMatchOnTimeouts(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})

	for round := 1; round <= DefaultMaxRounds; round++ {
		state := waitForRound(t, h.rec, round)
		assert.Equal(t, "oak", state.Question.Answer)
		assert.Equal(t, DefaultMaxRounds, state.MaxRounds)

		h.clock.Advance(DefaultRoundDuration)
		result := waitForResolved(t, h.rec, round)
		assert.Nil(t, result.WinnerID)

		if round < DefaultMaxRounds {
			h.clock.Advance(DefaultInterRoundDelay)
		}
	}

	record := waitForDone(t, h.c)
	assert.Equal(t, models.MatchOutcomeDraw, record.Outcome)
	assert.Nil(t, record.WinnerID)
	assert.Equal(t, DefaultMaxRounds, record.RoundsPlayed)
	assert.Equal(t, models.MatchStatusCompleted, h.session.Status)
	assert.Equal(t, 2, h.rec.completedCount())
}

func TestCoordinatorResolvesEarlyWhenBothAnswer(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})
	ctx := context.Background()

	waitForRound(t, h.rec, 1)
	require.NoError(t, h.c.Submit(ctx, h.alice, 1, "oak"))
	require.NoError(t, h.c.Submit(ctx, h.bob, 1, "elm"))

	// No clock movement: both answers are in, so the round resolves now.
	result := waitForResolved(t, h.rec, 1)
	require.NotNil(t, result.WinnerID)
	assert.Equal(t, h.alice, *result.WinnerID)
	assert.Equal(t, "oak", result.Answer)

	snap, err := h.c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultPointsPerRound, snap.Session.TallyFor(h.alice).Score)
	assert.Equal(t, 0, snap.Session.TallyFor(h.bob).Score)
}

func TestCoordinatorFasterCorrectAnswerWinsRound(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})
	ctx := context.Background()

	waitForRound(t, h.rec, 1)
	h.clock.Advance(2 * time.Second)
	require.NoError(t, h.c.Submit(ctx, h.alice, 1, "oak"))
	h.clock.Advance(3 * time.Second)
	require.NoError(t, h.c.Submit(ctx, h.bob, 1, "oak"))

	result := waitForResolved(t, h.rec, 1)
	require.NotNil(t, result.WinnerID)
	assert.Equal(t, h.alice, *result.WinnerID)

	snap, err := h.c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, snap.Session.TallyFor(h.alice).TotalResponse)
	assert.Equal(t, 5*time.Second, snap.Session.TallyFor(h.bob).TotalResponse)
}

func TestCoordinatorSubmissionValidation(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})
	ctx := context.Background()

	waitForRound(t, h.rec, 1)

	assert.ErrorIs(t, h.c.Submit(ctx, uuid.New(), 1, "oak"), ErrNotParticipant)
	assert.ErrorIs(t, h.c.Submit(ctx, h.alice, 2, "oak"), ErrWrongRound)

	require.NoError(t, h.c.Submit(ctx, h.alice, 1, "oak"))
	assert.ErrorIs(t, h.c.Submit(ctx, h.alice, 1, "elm"), ErrDuplicateSubmission)

	require.NoError(t, h.c.Submit(ctx, h.bob, 1, "elm"))
	waitForResolved(t, h.rec, 1)

	// Between rounds nothing is accepted.
	assert.ErrorIs(t, h.c.Submit(ctx, h.bob, 1, "oak"), ErrRoundClosed)
}

func TestCoordinatorForfeitEndsMatch(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})
	ctx := context.Background()

	waitForRound(t, h.rec, 1)
	require.NoError(t, h.c.Forfeit(ctx, h.bob))

	record := waitForDone(t, h.c)
	assert.Equal(t, models.MatchOutcomeForfeit, record.Outcome)
	require.NotNil(t, record.WinnerID)
	assert.Equal(t, h.alice, *record.WinnerID)
	assert.Positive(t, record.DeltaFor(h.alice))
	assert.Negative(t, record.DeltaFor(h.bob))

	assert.ErrorIs(t, h.c.Submit(ctx, h.alice, 1, "oak"), ErrMatchOver)
}

func TestCoordinatorDisconnectForfeitsAfterWindow(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})
	ctx := context.Background()

	waitForRound(t, h.rec, 1)
	require.NoError(t, h.c.Disconnect(ctx, h.alice))

	// Rounds keep running inside the window; the grace timer fires at 30s.
	h.clock.Advance(DefaultReconnectWindow)

	record := waitForDone(t, h.c)
	assert.Equal(t, models.MatchOutcomeForfeit, record.Outcome)
	require.NotNil(t, record.WinnerID)
	assert.Equal(t, h.bob, *record.WinnerID)
	assert.Negative(t, record.DeltaFor(h.alice))
}

func TestCoordinatorReconnectCancelsForfeit(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})
	ctx := context.Background()

	waitForRound(t, h.rec, 1)
	require.NoError(t, h.c.Disconnect(ctx, h.alice))
	h.clock.Advance(10 * time.Second)
	require.NoError(t, h.c.Reconnect(ctx, h.alice))

	// Sail past the original forfeit deadline; the match must survive.
	h.clock.Advance(5 * time.Second)
	waitForResolved(t, h.rec, 1)
	h.clock.Advance(DefaultInterRoundDelay)
	waitForRound(t, h.rec, 2)
	h.clock.Advance(DefaultRoundDuration)
	waitForResolved(t, h.rec, 2)

	select {
	case <-h.c.Done():
		t.Fatal("match ended despite reconnect")
	default:
	}
}

func TestCoordinatorStateSnapshot(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})
	ctx := context.Background()

	state := waitForRound(t, h.rec, 1)
	snap, err := h.c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInRound, snap.Session.Status)
	require.NotNil(t, snap.Question)
	assert.Equal(t, state.Question.ID, snap.Question.ID)
	assert.Equal(t, state.Deadline, snap.Deadline)

	require.NoError(t, h.c.Forfeit(ctx, h.bob))
	waitForDone(t, h.c)

	snap, err = h.c.State(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Session.Status.Terminal())
	assert.Nil(t, snap.Question)
}

func TestCoordinatorProviderFailureEndsMatch(t *testing.T) {
	h := startCoordinator(t, &stubProvider{failFrom: 2})
	ctx := context.Background()

	waitForRound(t, h.rec, 1)
	require.NoError(t, h.c.Submit(ctx, h.alice, 1, "oak"))
	require.NoError(t, h.c.Submit(ctx, h.bob, 1, "elm"))
	waitForResolved(t, h.rec, 1)

	h.clock.Advance(DefaultInterRoundDelay)

	record := waitForDone(t, h.c)
	assert.Equal(t, models.MatchOutcomeAborted, record.Outcome)
	assert.Nil(t, record.WinnerID)
	assert.Empty(t, record.RatingUpdates)
	assert.Equal(t, models.MatchStatusError, h.session.Status)
}

func TestCoordinatorShutdownAbandonsWithoutSettling(t *testing.T) {
	h := startCoordinator(t, &stubProvider{})

	waitForRound(t, h.rec, 1)
	h.cancel()

	record := waitForDone(t, h.c)
	assert.Equal(t, models.MatchOutcomeAborted, record.Outcome)
	assert.Nil(t, record.WinnerID)
	assert.Empty(t, record.RatingUpdates)
	assert.Equal(t, models.MatchStatusAbandoned, h.session.Status)
}
