package economy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/outbox"
)

// ReconcilerConfig holds configuration for the settlement reconciler.
type ReconcilerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultReconcilerConfig returns default reconciler configuration.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "MATCH_EVENTS",
		ConsumerName:  "economy-reconciler",
		SubjectFilter: "match.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Settler applies a match settlement. Implemented by *App.
type Settler interface {
	ApplySettlement(ctx context.Context, record *models.MatchRecord) error
}

// Reconciler consumes MatchCompleted events from JetStream and settles
// any match the inline settlement missed. Settlement is idempotent, so
// replaying matches that already paid out is harmless.
type Reconciler struct {
	settler  Settler
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   ReconcilerConfig
}

// NewReconciler connects to NATS and ensures the durable consumer.
func NewReconciler(settler Settler, config ReconcilerConfig) (*Reconciler, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	r := &Reconciler{
		settler: settler,
		nc:      nc,
		js:      js,
		config:  config,
	}

	if err := r.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return r, nil
}

// ensureConsumer creates or gets the durable JetStream consumer.
func (r *Reconciler) ensureConsumer(ctx context.Context) error {
	stream, err := r.js.Stream(ctx, r.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          r.config.ConsumerName,
		Durable:       r.config.ConsumerName,
		Description:   "Settlement reconciler for completed matches",
		FilterSubject: r.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    r.config.MaxDeliver,
		AckWait:       r.config.AckWait,
		MaxAckPending: r.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, r.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", r.config.ConsumerName).
			Str("stream", r.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", r.config.ConsumerName).
			Str("stream", r.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	r.consumer = consumer
	return nil
}

// Start consumes events until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", r.config.ConsumerName).
		Str("stream", r.config.StreamName).
		Msg("starting settlement reconciler")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := r.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("settlement reconciler shutting down")
			return nil
		case msg := <-messageCh:
			if err := r.processMessage(ctx, msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process settlement event")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
			} else {
				if ackErr := msg.Ack(); ackErr != nil {
					log.Error().Err(ackErr).Msg("failed to ACK message")
				}
			}
		}
	}
}

// processMessage settles one published match event.
func (r *Reconciler) processMessage(ctx context.Context, msg jetstream.Msg) error {
	var envelope struct {
		EventID   string          `json:"eventId"`
		EventType string          `json:"eventType"`
		MatchID   string          `json:"matchId"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	if envelope.EventType != outbox.EventTypeMatchCompleted {
		log.Debug().
			Str("event_type", envelope.EventType).
			Str("subject", msg.Subject()).
			Msg("ignoring event type")
		return nil
	}

	var record models.MatchRecord
	if err := json.Unmarshal(envelope.Payload, &record); err != nil {
		return fmt.Errorf("unmarshal match record: %w", err)
	}

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("match_id", envelope.MatchID).
		Msg("reconciling settlement")

	if err := r.settler.ApplySettlement(ctx, &record); err != nil {
		return fmt.Errorf("apply settlement: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (r *Reconciler) Close() {
	if r.nc != nil {
		r.nc.Close()
	}
}
