package main

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// setupJanitor schedules background housekeeping: sweeping coordinators
// whose run loop exited without deregistering, and a periodic liveness
// heartbeat for operators.
func setupJanitor(services *Services) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			if swept := services.Registry.Sweep(); swept > 0 {
				log.Warn().Int("count", swept).Msg("swept stray match coordinators")
			}
		}),
	); err != nil {
		return nil, err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			queueSize, err := services.Pool.Size(ctx)
			if err != nil {
				log.Error().Err(err).Msg("failed to read queue size")
				return
			}
			log.Info().
				Int("connections", services.Gateway.Manager().Count()).
				Int("live_matches", services.Match.Live()).
				Int("queue_size", queueSize).
				Msg("server heartbeat")
		}),
	); err != nil {
		return nil, err
	}

	return scheduler, nil
}
