package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/floraclash/floraclash/go/clients/identity_client"
	"github.com/floraclash/floraclash/go/internal/content"
	_ "github.com/floraclash/floraclash/go/internal/content/plants"
	"github.com/floraclash/floraclash/go/internal/dbconfig"
	"github.com/floraclash/floraclash/go/internal/economy"
	"github.com/floraclash/floraclash/go/internal/gateway"
	"github.com/floraclash/floraclash/go/internal/match"
	matchrepo "github.com/floraclash/floraclash/go/internal/match/repository"
	"github.com/floraclash/floraclash/go/internal/matchmaking"
	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/outbox"
	"github.com/floraclash/floraclash/go/internal/players"
	"github.com/floraclash/floraclash/go/internal/rating"
)

type Services struct {
	Players    *players.App
	Economy    *economy.App
	Match      *match.Service
	Records    *matchrepo.Repository
	Registry   *match.Registry
	Pool       *matchmaking.RedisPool
	Matchmaker *matchmaking.Matchmaker
	Gateway    *gateway.Service
}

func setupServices(database *sql.DB, rdb redis.UniversalClient, cfg *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer

	clock := clockwork.NewRealClock()

	// Question content
	if err := content.InitializeProvider(cfg.providerKey()); err != nil {
		return nil, fmt.Errorf("failed to initialize content provider: %w", err)
	}
	provider, err := content.GetProvider(cfg.providerKey())
	if err != nil {
		return nil, fmt.Errorf("failed to get content provider: %w", err)
	}

	engine := rating.NewEngine(cfg.Rating)

	// Economy
	economyRepo := economy.NewRepository(database)
	economyApp := economy.NewApp(economyRepo)

	// Players
	playersRepo := players.NewRepository(database)
	board := players.NewLeaderboard(rdb)
	playersApp := players.NewApp(playersRepo, board, economyApp, engine)

	// Live matches
	matchRepo := matchrepo.NewRepository(database)
	registry := match.NewRegistry()
	finalizer := match.NewFinalizer(engine, matchRepo, playersApp, economyApp, clock)
	relay := &eventRelay{}
	matchService := match.NewService(registry, provider, finalizer, relay, clock, cfg.matchConfig())

	// Matchmaking
	pool := matchmaking.NewRedisPool(rdb, clock, cfg.ticketTTL())
	arbiter := matchmaking.NewArbiter(pool, clock, cfg.Matchmaking.SelectorConfig, cfg.Matchmaking.ClaimRetries)
	matchmaker := matchmaking.NewMatchmaker(pool, arbiter, matchService, relay, clock, cfg.pollInterval())

	// Gateway
	var verifier gateway.IdentityVerifier
	if url := getEnv("IDENTITY_SERVICE_URL", ""); url != "" {
		verifier = identity_client.NewIdentityClient(url, getEnv("IDENTITY_SERVICE_TOKEN", ""))
	}
	gatewayService := gateway.NewService(gateway.DefaultConnectionConfig(), matchmaker, matchService, verifier, playersApp)
	relay.bind(gatewayService)

	return &Services{
		Players:    playersApp,
		Economy:    economyApp,
		Match:      matchService,
		Records:    matchRepo,
		Registry:   registry,
		Pool:       pool,
		Matchmaker: matchmaker,
		Gateway:    gatewayService,
	}, nil
}

// setupOutboxRelay brings up the transactional-outbox delivery path: the
// LISTEN/NOTIFY listener on one side and the bus publisher on the other.
// EVENTS_BACKEND=log swaps the bus for a logging stand-in so the server
// runs without NATS in development.
func setupOutboxRelay(database *sql.DB) (*outbox.Listener, outbox.EventPublisher, error) {
	repo := outbox.NewRepository(database)

	var publisher outbox.EventPublisher
	if getEnv("EVENTS_BACKEND", "jetstream") == "log" {
		publisher = outbox.LogPublisher{}
	} else {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = getEnv("NATS_URL", nats.DefaultURL)
		js, err := outbox.NewJetStreamPublisher(jsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		publisher = js
	}

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbconfig.NewConfigFromEnv().DSN()
	listener, err := outbox.NewListener(repo, publisher, listenerCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create outbox listener: %w", err)
	}
	return listener, publisher, nil
}

// setupReconciler subscribes the economy app to completed-match events so
// settlements missed in the synchronous path are replayed from the bus.
func setupReconciler(economyApp *economy.App) (*economy.Reconciler, error) {
	cfg := economy.DefaultReconcilerConfig()
	cfg.URL = getEnv("NATS_URL", nats.DefaultURL)
	return economy.NewReconciler(economyApp, cfg)
}

// eventRelay forwards match and queue events to the gateway. The match
// service broadcasts through the gateway while the gateway dispatches
// back into the match service, so the gateway half is bound after both
// exist. Events sent before bind are dropped, which only covers the
// instant between constructor calls.
type eventRelay struct {
	mu sync.RWMutex
	gw *gateway.Service
}

func (r *eventRelay) bind(gw *gateway.Service) {
	r.mu.Lock()
	r.gw = gw
	r.mu.Unlock()
}

func (r *eventRelay) gateway() *gateway.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gw
}

func (r *eventRelay) MatchFound(playerID uuid.UUID, found match.MatchFound) {
	if gw := r.gateway(); gw != nil {
		gw.MatchFound(playerID, found)
	}
}

func (r *eventRelay) RoundStarted(playerID uuid.UUID, state match.RoundState) {
	if gw := r.gateway(); gw != nil {
		gw.RoundStarted(playerID, state)
	}
}

func (r *eventRelay) RoundResolved(playerID uuid.UUID, result match.RoundResult) {
	if gw := r.gateway(); gw != nil {
		gw.RoundResolved(playerID, result)
	}
}

func (r *eventRelay) MatchCompleted(playerID uuid.UUID, record *models.MatchRecord) {
	if gw := r.gateway(); gw != nil {
		gw.MatchCompleted(playerID, record)
	}
}

func (r *eventRelay) QueueUpdated(ctx context.Context, statuses []matchmaking.QueueStatus) {
	if gw := r.gateway(); gw != nil {
		gw.QueueUpdated(ctx, statuses)
	}
}

func (r *eventRelay) QueueTimedOut(ctx context.Context, tickets []models.QueueTicket) {
	if gw := r.gateway(); gw != nil {
		gw.QueueTimedOut(ctx, tickets)
	}
}
