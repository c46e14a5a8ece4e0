package match

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floraclash/floraclash/go/internal/matchmaking"
	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/rating"
)

func newTestService(rec *recorder) (*Service, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	finalizer := NewFinalizer(rating.NewEngine(rating.Config{}), nil, nil, nil, clock)
	return NewService(NewRegistry(), &stubProvider{}, finalizer, rec, clock, Config{}), clock
}

func newTestPairing(clock clockwork.Clock) matchmaking.Pairing {
	return matchmaking.Pairing{
		Requester: models.QueueTicket{PlayerID: uuid.New(), Username: "fern_fan", Rating: 1200, JoinedAt: clock.Now()},
		Opponent:  models.QueueTicket{PlayerID: uuid.New(), Username: "moss_boss", Rating: 1300, JoinedAt: clock.Now()},
		FormedAt:  clock.Now(),
	}
}

func TestServiceStartMatchAndPlay(t *testing.T) {
	rec := &recorder{}
	svc, _ := newTestService(rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pairing := newTestPairing(clockwork.NewRealClock())
	alice := pairing.Requester.PlayerID
	bob := pairing.Opponent.PlayerID

	matchID, err := svc.StartMatch(ctx, pairing)
	require.NoError(t, err)
	assert.True(t, svc.Busy(alice))
	assert.True(t, svc.Busy(bob))
	assert.Equal(t, 1, svc.Live())

	// Each player was told about the other.
	rec.mu.Lock()
	require.Len(t, rec.found, 2)
	opponents := map[uuid.UUID]bool{rec.found[0].Opponent.ID: true, rec.found[1].Opponent.ID: true}
	rec.mu.Unlock()
	assert.True(t, opponents[alice])
	assert.True(t, opponents[bob])

	waitForRound(t, rec, 1)
	require.NoError(t, svc.SubmitAnswer(ctx, alice, matchID, 1, "oak"))
	require.NoError(t, svc.SubmitAnswer(ctx, bob, matchID, 1, "elm"))
	waitForResolved(t, rec, 1)

	snap, err := svc.LiveSnapshot(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, DefaultPointsPerRound, snap.Session.TallyFor(alice).Score)

	require.NoError(t, svc.Forfeit(ctx, bob))
	assert.Eventually(t, func() bool {
		return svc.Live() == 0 && !svc.Busy(alice)
	}, 2*time.Second, 5*time.Millisecond, "finished match never left the registry")
}

func TestServiceRejectsDoubleBooking(t *testing.T) {
	svc, _ := newTestService(&recorder{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pairing := newTestPairing(clockwork.NewRealClock())
	_, err := svc.StartMatch(ctx, pairing)
	require.NoError(t, err)

	second := newTestPairing(clockwork.NewRealClock())
	second.Requester = pairing.Requester
	_, err = svc.StartMatch(ctx, second)
	assert.ErrorIs(t, err, ErrPlayerBusy)
}

func TestServiceIdleRouting(t *testing.T) {
	svc, _ := newTestService(&recorder{})
	ctx := context.Background()

	assert.NoError(t, svc.Disconnect(ctx, uuid.New()))
	assert.ErrorIs(t, svc.Forfeit(ctx, uuid.New()), ErrMatchNotFound)
	_, err := svc.Reconnect(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.ErrorIs(t, svc.SubmitAnswer(ctx, uuid.New(), uuid.New(), 1, "oak"), ErrMatchNotFound)
}

func TestServiceReconnectReturnsSnapshot(t *testing.T) {
	rec := &recorder{}
	svc, _ := newTestService(rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pairing := newTestPairing(clockwork.NewRealClock())
	alice := pairing.Requester.PlayerID
	_, err := svc.StartMatch(ctx, pairing)
	require.NoError(t, err)
	waitForRound(t, rec, 1)

	require.NoError(t, svc.Disconnect(ctx, alice))
	snap, err := svc.Reconnect(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInRound, snap.Session.Status)
	require.NotNil(t, snap.Question)
	assert.Equal(t, "q-1", snap.Question.ID)
}

func TestServiceWaitReturnsAfterShutdown(t *testing.T) {
	rec := &recorder{}
	svc, _ := newTestService(rec)
	ctx, cancel := context.WithCancel(context.Background())

	pairing := newTestPairing(clockwork.NewRealClock())
	_, err := svc.StartMatch(ctx, pairing)
	require.NoError(t, err)
	waitForRound(t, rec, 1)

	cancel()
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("service did not drain after shutdown")
	}
	assert.Equal(t, 0, svc.Live())
}
