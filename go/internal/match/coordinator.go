package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/content"
	"github.com/floraclash/floraclash/go/internal/models"
)

const (
	DefaultMaxRounds       = 5
	DefaultRoundDuration   = 15 * time.Second
	DefaultInterRoundDelay = 3 * time.Second
	DefaultPointsPerRound  = 100
	DefaultReconnectWindow = 30 * time.Second
)

// Config tunes a single match's pacing and scoring.
type Config struct {
	MaxRounds       int
	RoundDuration   time.Duration
	InterRoundDelay time.Duration
	PointsPerRound  int
	ReconnectWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = DefaultRoundDuration
	}
	if c.InterRoundDelay <= 0 {
		c.InterRoundDelay = DefaultInterRoundDelay
	}
	if c.PointsPerRound <= 0 {
		c.PointsPerRound = DefaultPointsPerRound
	}
	if c.ReconnectWindow <= 0 {
		c.ReconnectWindow = DefaultReconnectWindow
	}
	return c
}

type submitReq struct {
	playerID uuid.UUID
	round    int
	answer   string
	reply    chan error
}

type playerEventKind int

const (
	eventDisconnect playerEventKind = iota
	eventReconnect
	eventForfeit
)

type playerEvent struct {
	kind     playerEventKind
	playerID uuid.UUID
	reply    chan error
}

type stateReq struct {
	reply chan Snapshot
}

// Coordinator owns one live match. A single goroutine running Run holds
// the session; every other goroutine talks to it through channels, so the
// session needs no locking and every mutation is serialized.
type Coordinator struct {
	cfg       Config
	session   *models.MatchSession
	provider  content.Provider
	finalizer *Finalizer
	broadcast Broadcaster
	clock     clockwork.Clock
	players   [2]uuid.UUID

	submitCh chan submitReq
	eventCh  chan playerEvent
	stateCh  chan stateReq
	done     chan struct{}
	record   *models.MatchRecord

	// Run-loop state, touched only by the owning goroutine.
	roundTimer    clockwork.Timer
	graceTimer    clockwork.Timer
	question      models.Question
	subs          [2]*models.Submission
	roundStart    time.Time
	phaseDeadline time.Time
	gone          map[uuid.UUID]time.Time
}

// NewCoordinator prepares a coordinator for the given session. The match
// does not progress until Run is started.
func NewCoordinator(session *models.MatchSession, provider content.Provider, finalizer *Finalizer, broadcast Broadcaster, clock clockwork.Clock, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	session.MaxRounds = cfg.MaxRounds
	if broadcast == nil {
		broadcast = nopBroadcaster{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		cfg:       cfg,
		session:   session,
		provider:  provider,
		finalizer: finalizer,
		broadcast: broadcast,
		clock:     clock,
		players:   [2]uuid.UUID{session.Players[0].PlayerID, session.Players[1].PlayerID},
		submitCh:  make(chan submitReq),
		eventCh:   make(chan playerEvent),
		stateCh:   make(chan stateReq),
		done:      make(chan struct{}),
		gone:      make(map[uuid.UUID]time.Time),
	}
}

// MatchID returns the session id.
func (c *Coordinator) MatchID() uuid.UUID {
	return c.session.ID
}

// Players returns both participant ids. The pairing never changes after
// formation, so this is safe from any goroutine.
func (c *Coordinator) Players() [2]uuid.UUID {
	return c.players
}

// HasPlayer reports whether the player belongs to this match.
func (c *Coordinator) HasPlayer(playerID uuid.UUID) bool {
	return c.players[0] == playerID || c.players[1] == playerID
}

// Done closes once the match has reached a terminal state and its record
// is available.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Record returns the final match record. Valid only after Done closes.
func (c *Coordinator) Record() *models.MatchRecord {
	return c.record
}

// Run drives the match to completion. It blocks until the session reaches
// a terminal state; cancelling ctx abandons the match without settling.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)

	log.Info().
		Str("match_id", c.session.ID.String()).
		Str("player_a", c.players[0].String()).
		Str("player_b", c.players[1].String()).
		Int("max_rounds", c.cfg.MaxRounds).
		Msg("match starting")

	c.roundTimer = c.clock.NewTimer(time.Hour)
	defer c.roundTimer.Stop()
	c.graceTimer = c.clock.NewTimer(time.Hour)
	c.graceTimer.Stop()
	defer c.graceTimer.Stop()

	c.startRound(ctx, 1)

	for !c.session.Status.Terminal() {
		select {
		case <-ctx.Done():
			log.Warn().Str("match_id", c.session.ID.String()).Msg("shutdown while match in progress; abandoning")
			c.finish(ctx, FinalizeCause{Abort: true})
		case now := <-c.roundTimer.Chan():
			c.onRoundTimer(ctx, now)
		case now := <-c.graceTimer.Chan():
			c.onGraceTimer(ctx, now)
		case req := <-c.submitCh:
			req.reply <- c.handleSubmit(ctx, req)
		case ev := <-c.eventCh:
			c.handleEvent(ctx, ev)
		case req := <-c.stateCh:
			req.reply <- c.snapshot()
		}
	}
}

// Submit records a player's answer for a round. The first accepted answer
// per player and round stands; everything else is rejected with a
// sentinel the caller can map to a client error.
func (c *Coordinator) Submit(ctx context.Context, playerID uuid.UUID, round int, answer string) error {
	req := submitReq{playerID: playerID, round: round, answer: answer, reply: make(chan error, 1)}
	select {
	case c.submitCh <- req:
	case <-c.done:
		return ErrMatchOver
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-c.done:
		// The loop may have exited right after replying.
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrMatchOver
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect starts the reconnect window for a player. If the window
// lapses before Reconnect, the match is forfeited against them.
func (c *Coordinator) Disconnect(ctx context.Context, playerID uuid.UUID) error {
	return c.sendEvent(ctx, playerEvent{kind: eventDisconnect, playerID: playerID, reply: make(chan error, 1)})
}

// Reconnect clears a pending reconnect window. Callers typically follow
// up with State to replay the current round to the player.
func (c *Coordinator) Reconnect(ctx context.Context, playerID uuid.UUID) error {
	return c.sendEvent(ctx, playerEvent{kind: eventReconnect, playerID: playerID, reply: make(chan error, 1)})
}

// Forfeit ends the match immediately with playerID as the loser.
func (c *Coordinator) Forfeit(ctx context.Context, playerID uuid.UUID) error {
	return c.sendEvent(ctx, playerEvent{kind: eventForfeit, playerID: playerID, reply: make(chan error, 1)})
}

// State returns a copy of the live session plus the open round, if any.
func (c *Coordinator) State(ctx context.Context) (Snapshot, error) {
	req := stateReq{reply: make(chan Snapshot, 1)}
	select {
	case c.stateCh <- req:
	case <-c.done:
		return c.finalSnapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-c.done:
		select {
		case snap := <-req.reply:
			return snap, nil
		default:
			return c.finalSnapshot(), nil
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Coordinator) sendEvent(ctx context.Context, ev playerEvent) error {
	select {
	case c.eventCh <- ev:
	case <-c.done:
		return ErrMatchOver
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ev.reply:
		return err
	case <-c.done:
		select {
		case err := <-ev.reply:
			return err
		default:
			return ErrMatchOver
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finalSnapshot serves state queries after the run loop has exited. The
// loop stops mutating the session before done closes, so the read is safe.
func (c *Coordinator) finalSnapshot() Snapshot {
	return Snapshot{Session: *c.session}
}

func (c *Coordinator) startRound(ctx context.Context, round int) {
	question, err := c.provider.NextQuestion(ctx, c.session.ID, round)
	if err != nil {
		log.Error().
			Err(err).
			Str("match_id", c.session.ID.String()).
			Int("round", round).
			Msg("content provider failed; ending match")
		c.finish(ctx, FinalizeCause{Fault: true})
		return
	}

	now := c.clock.Now()
	if round == 1 {
		c.session.StartedAt = &now
	}
	c.session.CurrentRound = round
	c.session.Status = models.MatchStatusInRound
	c.question = question
	c.subs = [2]*models.Submission{}
	c.roundStart = now
	c.phaseDeadline = now.Add(c.cfg.RoundDuration)
	c.roundTimer.Reset(c.cfg.RoundDuration)

	state := RoundState{
		MatchID:   c.session.ID,
		Round:     round,
		MaxRounds: c.session.MaxRounds,
		Question:  question,
		Deadline:  c.phaseDeadline,
		Players:   c.session.Players,
	}
	c.each(func(id uuid.UUID) { c.broadcast.RoundStarted(id, state) })

	log.Info().
		Str("match_id", c.session.ID.String()).
		Int("round", round).
		Str("question_id", question.ID).
		Time("deadline", c.phaseDeadline).
		Msg("round started")
}

func (c *Coordinator) onRoundTimer(ctx context.Context, now time.Time) {
	// A reset can race an already-fired timer; drop fires armed for an
	// earlier phase.
	if now.Before(c.phaseDeadline) {
		return
	}
	switch c.session.Status {
	case models.MatchStatusInRound:
		c.resolveRound(ctx)
	case models.MatchStatusRoundResolved:
		c.startRound(ctx, c.session.CurrentRound+1)
	}
}

func (c *Coordinator) handleSubmit(ctx context.Context, req submitReq) error {
	slot, ok := c.slotOf(req.playerID)
	if !ok {
		return ErrNotParticipant
	}
	if c.session.Status != models.MatchStatusInRound {
		return ErrRoundClosed
	}
	if req.round != c.session.CurrentRound {
		return ErrWrongRound
	}
	if c.subs[slot] != nil {
		return ErrDuplicateSubmission
	}

	now := c.clock.Now()
	elapsed := now.Sub(c.roundStart)
	if elapsed < 0 {
		elapsed = 0
	}
	c.subs[slot] = &models.Submission{
		PlayerID:   req.playerID,
		MatchID:    c.session.ID,
		Round:      req.round,
		Answer:     req.answer,
		Correct:    c.question.IsCorrect(req.answer),
		ReceivedAt: now,
		Elapsed:    elapsed,
	}

	log.Debug().
		Str("match_id", c.session.ID.String()).
		Str("player_id", req.playerID.String()).
		Int("round", req.round).
		Bool("correct", c.subs[slot].Correct).
		Dur("elapsed", elapsed).
		Msg("answer accepted")

	if c.subs[0] != nil && c.subs[1] != nil {
		c.resolveRound(ctx)
	}
	return nil
}

func (c *Coordinator) resolveRound(ctx context.Context) {
	outcome := ResolveRound(c.session.CurrentRound, c.subs[0], c.subs[1])
	applyRound(c.session, outcome, c.cfg.PointsPerRound, c.subs[0], c.subs[1])
	c.session.Status = models.MatchStatusRoundResolved

	// Arm the next phase before announcing the result so observers can
	// never move the clock ahead of an unarmed timer.
	final := c.session.CurrentRound >= c.session.MaxRounds
	if !final {
		c.phaseDeadline = c.clock.Now().Add(c.cfg.InterRoundDelay)
		c.roundTimer.Reset(c.cfg.InterRoundDelay)
	}

	result := RoundResult{
		MatchID:  c.session.ID,
		Round:    outcome.Round,
		WinnerID: outcome.WinnerID,
		Answer:   c.question.Answer,
		Players:  c.session.Players,
	}
	c.each(func(id uuid.UUID) { c.broadcast.RoundResolved(id, result) })

	winner := "none"
	if outcome.WinnerID != nil {
		winner = outcome.WinnerID.String()
	}
	log.Info().
		Str("match_id", c.session.ID.String()).
		Int("round", outcome.Round).
		Str("round_winner", winner).
		Int("score_a", c.session.Players[0].Score).
		Int("score_b", c.session.Players[1].Score).
		Msg("round resolved")

	if final {
		c.finish(ctx, FinalizeCause{})
	}
}

func (c *Coordinator) handleEvent(ctx context.Context, ev playerEvent) {
	if !c.HasPlayer(ev.playerID) {
		ev.reply <- ErrNotParticipant
		return
	}
	switch ev.kind {
	case eventForfeit:
		log.Info().
			Str("match_id", c.session.ID.String()).
			Str("player_id", ev.playerID.String()).
			Msg("player forfeited")
		c.finish(ctx, FinalizeCause{Forfeit: true, ForfeitBy: ev.playerID})
	case eventDisconnect:
		deadline := c.clock.Now().Add(c.cfg.ReconnectWindow)
		c.gone[ev.playerID] = deadline
		c.armGraceTimer()
		log.Warn().
			Str("match_id", c.session.ID.String()).
			Str("player_id", ev.playerID.String()).
			Time("forfeit_at", deadline).
			Msg("player disconnected; reconnect window open")
	case eventReconnect:
		delete(c.gone, ev.playerID)
		c.armGraceTimer()
		log.Info().
			Str("match_id", c.session.ID.String()).
			Str("player_id", ev.playerID.String()).
			Msg("player reconnected")
	}
	ev.reply <- nil
}

func (c *Coordinator) armGraceTimer() {
	if len(c.gone) == 0 {
		c.graceTimer.Stop()
		return
	}
	var earliest time.Time
	for _, deadline := range c.gone {
		if earliest.IsZero() || deadline.Before(earliest) {
			earliest = deadline
		}
	}
	wait := earliest.Sub(c.clock.Now())
	if wait < 0 {
		wait = 0
	}
	c.graceTimer.Reset(wait)
}

func (c *Coordinator) onGraceTimer(ctx context.Context, now time.Time) {
	var loser uuid.UUID
	var loserDeadline time.Time
	found := false
	for id, deadline := range c.gone {
		if now.Before(deadline) {
			continue
		}
		if !found || deadline.Before(loserDeadline) {
			loser, loserDeadline, found = id, deadline, true
		}
	}
	if !found {
		// Stale fire from an earlier arm.
		c.armGraceTimer()
		return
	}
	log.Warn().
		Str("match_id", c.session.ID.String()).
		Str("player_id", loser.String()).
		Msg("reconnect window expired; forfeiting")
	c.finish(ctx, FinalizeCause{Forfeit: true, ForfeitBy: loser})
}

func (c *Coordinator) finish(ctx context.Context, cause FinalizeCause) {
	if c.record != nil {
		return
	}
	// Settlement must still run when the server context is being torn down.
	c.record = c.finalizer.Finalize(context.WithoutCancel(ctx), c.session, cause)
	record := c.record
	c.each(func(id uuid.UUID) { c.broadcast.MatchCompleted(id, record) })
}

func (c *Coordinator) snapshot() Snapshot {
	snap := Snapshot{Session: *c.session}
	if c.session.Status == models.MatchStatusInRound {
		question := c.question
		snap.Question = &question
		snap.Deadline = c.phaseDeadline
	}
	return snap
}

func (c *Coordinator) slotOf(playerID uuid.UUID) (int, bool) {
	for i, id := range c.players {
		if id == playerID {
			return i, true
		}
	}
	return 0, false
}

func (c *Coordinator) each(fn func(uuid.UUID)) {
	for _, id := range c.players {
		fn(id)
	}
}

type nopBroadcaster struct{}

func (nopBroadcaster) MatchFound(uuid.UUID, MatchFound)              {}
func (nopBroadcaster) RoundStarted(uuid.UUID, RoundState)            {}
func (nopBroadcaster) RoundResolved(uuid.UUID, RoundResult)          {}
func (nopBroadcaster) MatchCompleted(uuid.UUID, *models.MatchRecord) {}
