package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/contracts"
	"github.com/meshconf/meshconf/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

type presenceConsumer struct {
	rabbitmq  *messaging.RabbitMQ
	auditRepo domain.PresenceAuditRepository
}

func NewPresenceConsumer(rabbitmq *messaging.RabbitMQ, auditRepo domain.PresenceAuditRepository) *presenceConsumer {
	return &presenceConsumer{
		rabbitmq:  rabbitmq,
		auditRepo: auditRepo,
	}
}

// Listen blocks draining the presence queue and writing each event to the
// audit log. Malformed messages are Nacked and end up on the dead letter
// queue.
func (c *presenceConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.PresenceQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			return err
		}

		var payload messaging.PresenceEventData
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			log.Printf("Failed to unmarshal payload: %v", err)
			return err
		}

		eventType := domain.PresenceEventType(payload.EventType)
		switch eventType {
		case domain.EventRoomCreated, domain.EventRoomDeleted,
			domain.EventParticipantJoined, domain.EventParticipantLeft:
		default:
			log.Printf("Unknown presence event type: %s", payload.EventType)
			return nil // do not dead-letter; nothing downstream can replay it
		}

		auditLog := domain.NewPresenceAuditLog(payload.RoomID, eventType, domain.ParticipantID(payload.UserID), payload.OccurredAt)

		return c.auditRepo.Log(ctx, auditLog)
	})
}
