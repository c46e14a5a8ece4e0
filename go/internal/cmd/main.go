package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		log.Warn().Msg("no config file found, running with built-in defaults")
		cfg = &Config{}
	}

	log.Info().
		Str("provider", cfg.providerKey()).
		Str("port", getEnv("PORT", "8080")).
		Msg("starting floraclash server")

	database, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	// Context for graceful shutdown; every long-running loop hangs off it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := setupRedis(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	services, err := setupServices(database, rdb, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire services")
	}

	outboxListener, publisher, err := setupOutboxRelay(database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up outbox relay")
	}

	services.Gateway.Start(ctx)

	go func() {
		if err := services.Matchmaker.Run(ctx); err != nil {
			log.Error().Err(err).Msg("matchmaker failed")
		}
	}()

	go func() {
		if err := outboxListener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener failed")
		}
	}()

	if getEnv("EVENTS_BACKEND", "jetstream") != "log" {
		reconciler, err := setupReconciler(services.Economy)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up settlement reconciler")
		}
		defer reconciler.Close()

		go func() {
			if err := reconciler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("settlement reconciler failed")
			}
		}()
	}

	scheduler, err := setupJanitor(services)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up janitor")
	}
	scheduler.Start()

	server := setupServer(services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Stop accepting traffic first, then cancel the loops and let every
	// live coordinator finish its abort path before closing connections.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("janitor shutdown failed")
	}

	cancel()
	services.Match.Wait()

	if closer, ok := publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("event publisher close failed")
		}
	}

	log.Info().Msg("floraclash server shutdown complete")
}
