package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=../mocks/event_mock.go -package=mocks

import (
	"context"
	"time"

	"ruang/config"
	"ruang/infras/kafka"
	"ruang/infras/otel"
	"ruang/internal/domains/reservation/model"
	"ruang/shared/constant"
	"ruang/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	TypeRequested     = "reservation.requested"
	TypeStatusChanged = "reservation.status_changed"
)

// Event is the payload written to the reservation topic, keyed by room id.
type Event struct {
	Type           string    `json:"type"`
	ReservationID  string    `json:"reservation_id"`
	RoomID         string    `json:"room_id"`
	UserID         string    `json:"user_id"`
	ActorID        string    `json:"actor_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func newEvent(eventType string, reservation model.Reservation, actorID string) Event {
	return Event{
		Type:          eventType,
		ReservationID: reservation.ID,
		RoomID:        reservation.RoomID,
		UserID:        reservation.UserID,
		ActorID:       actorID,
		Status:        string(reservation.Status),
		StartTime:     reservation.StartTime,
		EndTime:       reservation.EndTime,
		OccurredAt:    timezone.Now(),
	}
}

// Publisher announces reservation lifecycle changes. Delivery failures are logged, never returned.
type Publisher interface {
	Requested(ctx context.Context, reservation model.Reservation)
	StatusChanged(ctx context.Context, reservation model.Reservation, previous model.Status, actorID string)
}

type publisherImpl struct {
	client kafka.Client
	topic  string
	otel   otel.Otel
}

func NewPublisher(client kafka.Client, cfg *config.Config, otel otel.Otel) Publisher {
	return &publisherImpl{
		client: client,
		topic:  cfg.Kafka.Topics.Reservation,
		otel:   otel,
	}
}

func (p *publisherImpl) Requested(ctx context.Context, reservation model.Reservation) {
	p.publish(ctx, newEvent(TypeRequested, reservation, reservation.UserID))
}

func (p *publisherImpl) StatusChanged(ctx context.Context, reservation model.Reservation, previous model.Status, actorID string) {
	evt := newEvent(TypeStatusChanged, reservation, actorID)
	evt.PreviousStatus = string(previous)

	p.publish(ctx, evt)
}

func (p *publisherImpl) publish(ctx context.Context, evt Event) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+"."+evt.Type)
	defer scope.End()

	err := p.client.SendMessages(ctx, p.topic, kafka.Message{Key: evt.RoomID, Value: evt})
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("type", evt.Type).Str("reservation_id", evt.ReservationID).Msg("failed to publish reservation event")
	}
}
