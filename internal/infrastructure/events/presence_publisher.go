package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/contracts"
	"github.com/meshconf/meshconf/internal/infrastructure/messaging"
)

type PresencePublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewPresencePublisher(rabbitmq *messaging.RabbitMQ) *PresencePublisher {
	return &PresencePublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *PresencePublisher) PublishRoomCreated(ctx context.Context, roomID string) error {
	return p.publish(ctx, contracts.EventRoomCreated, messaging.PresenceEventData{
		EventType:  string(domain.EventRoomCreated),
		RoomID:     roomID,
		OccurredAt: time.Now(),
	})
}

func (p *PresencePublisher) PublishRoomDeleted(ctx context.Context, roomID string) error {
	return p.publish(ctx, contracts.EventRoomDeleted, messaging.PresenceEventData{
		EventType:  string(domain.EventRoomDeleted),
		RoomID:     roomID,
		OccurredAt: time.Now(),
	})
}

func (p *PresencePublisher) PublishPeerJoined(ctx context.Context, roomID string, userID domain.ParticipantID) error {
	return p.publish(ctx, contracts.EventPeerJoined, messaging.PresenceEventData{
		EventType:  string(domain.EventParticipantJoined),
		RoomID:     roomID,
		UserID:     int64(userID),
		OccurredAt: time.Now(),
	})
}

func (p *PresencePublisher) PublishPeerLeft(ctx context.Context, roomID string, userID domain.ParticipantID) error {
	return p.publish(ctx, contracts.EventPeerLeft, messaging.PresenceEventData{
		EventType:  string(domain.EventParticipantLeft),
		RoomID:     roomID,
		UserID:     int64(userID),
		OccurredAt: time.Now(),
	})
}

func (p *PresencePublisher) publish(ctx context.Context, routingKey string, payload messaging.PresenceEventData) error {
	eventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		RoomID: payload.RoomID,
		Data:   eventJSON,
	})
}
