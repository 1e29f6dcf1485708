package event

import (
	"context"
	"fmt"

	"ruang/config"
	"ruang/infras/kafka"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

// Notifier is told about every decoded reservation event.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// LogNotifier writes one structured log line per event.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, evt Event) error {
	var entry *zerolog.Event

	switch evt.Type {
	case TypeRequested:
		entry = log.Info().Str("notify", "admin")
	case TypeStatusChanged:
		entry = log.Info().Str("notify", evt.UserID).Str("previous_status", evt.PreviousStatus)
	default:
		entry = log.Warn()
	}

	entry.
		Str("type", evt.Type).
		Str("reservation_id", evt.ReservationID).
		Str("room_id", evt.RoomID).
		Str("status", evt.Status).
		Time("start_time", evt.StartTime).
		Time("end_time", evt.EndTime).
		Msg("reservation event received")

	return nil
}

type Consumer struct {
	client   kafka.Client
	cfg      *config.Config
	notifier Notifier
}

func NewConsumer(client kafka.Client, cfg *config.Config, notifier Notifier) *Consumer {
	return &Consumer{
		client:   client,
		cfg:      cfg,
		notifier: notifier,
	}
}

// Run consumes the reservation topic until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.client.Consume(ctx, c.cfg.Kafka.ConsumerGroup, c.cfg.Kafka.Topics.Reservation, c.Handle); err != nil {
		return fmt.Errorf("consume reservation events: %w", err)
	}

	return nil
}

// Handle decodes one message. Malformed payloads are skipped so they cannot stall the partition.
func (c *Consumer) Handle(ctx context.Context, message kafkaGo.Message) error {
	evt, err := kafka.Decode[Event](message)
	if err != nil {
		log.Warn().Err(err).Str("key", string(message.Key)).Msg("skipping malformed reservation event")

		return nil
	}

	if err := c.notifier.Notify(ctx, evt); err != nil {
		return fmt.Errorf("notify %s: %w", evt.Type, err)
	}

	return nil
}
