package events

import (
	"context"
	"time"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
)

const publishTimeout = 5 * time.Second

// PresenceNotifier bridges registry membership callbacks onto the AMQP
// publisher. Publish failures are logged and swallowed; the audit trail is
// best effort and must never affect signaling.
type PresenceNotifier struct {
	publisher *PresencePublisher
	logger    logging.Logger
}

func NewPresenceNotifier(publisher *PresencePublisher, logger logging.Logger) *PresenceNotifier {
	return &PresenceNotifier{
		publisher: publisher,
		logger:    logger,
	}
}

func (n *PresenceNotifier) RoomCreated(roomID string) {
	n.publish(roomID, func(ctx context.Context) error {
		return n.publisher.PublishRoomCreated(ctx, roomID)
	})
}

func (n *PresenceNotifier) RoomDeleted(roomID string) {
	n.publish(roomID, func(ctx context.Context) error {
		return n.publisher.PublishRoomDeleted(ctx, roomID)
	})
}

func (n *PresenceNotifier) PeerJoined(roomID string, userID domain.ParticipantID) {
	n.publish(roomID, func(ctx context.Context) error {
		return n.publisher.PublishPeerJoined(ctx, roomID, userID)
	})
}

func (n *PresenceNotifier) PeerLeft(roomID string, userID domain.ParticipantID) {
	n.publish(roomID, func(ctx context.Context) error {
		return n.publisher.PublishPeerLeft(ctx, roomID, userID)
	})
}

func (n *PresenceNotifier) publish(roomID string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		n.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish presence event", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}
}
