package signaling

import (
	"errors"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	"github.com/meshconf/meshconf/internal/infrastructure/metrics"
)

// Router relays validated negotiation frames between room members. It never
// looks inside offer, answer or candidate payloads; a failed delivery is
// reported to the sender and touches nobody else.
type Router struct {
	registry *Registry
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewRouter(registry *Registry, logger logging.Logger, m *metrics.Metrics) *Router {
	return &Router{
		registry: registry,
		logger:   logger,
		metrics:  m,
	}
}

// Route delivers the frame to the target it names. The returned error is
// for the sender only: domain.ErrRoomNotFound, domain.ErrUnknownSender or
// domain.ErrUnknownTarget.
func (rt *Router) Route(roomID string, sender domain.ParticipantID, f *Frame) error {
	room, ok := rt.registry.Lookup(roomID)
	if !ok {
		rt.metrics.SignalRejected("unknown_room")
		return domain.ErrRoomNotFound
	}

	queued, err := room.deliver(sender, f)
	if err != nil {
		rt.metrics.SignalRejected(rejectReason(err))
		rt.logger.Debug(logging.Signaling, logging.Routing, "frame rejected", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.UserID:       int64(sender),
			logging.FrameType:    f.Type,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	if !queued {
		// Target is valid but its queue is full. The frame is dropped rather
		// than stalling the room; the drop itself is counted by the peer.
		rt.logger.Warn(logging.Signaling, logging.Routing, "frame dropped on backpressure", map[logging.ExtraKey]any{
			logging.RoomID:    roomID,
			logging.UserID:    int64(f.UserID),
			logging.FrameType: f.Type,
		})
		return nil
	}

	rt.metrics.SignalRelayed(f.Type)
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "unknown_room"
	case errors.Is(err, domain.ErrUnknownSender):
		return "unknown_sender"
	case errors.Is(err, domain.ErrUnknownTarget):
		return "unknown_target"
	default:
		return "other"
	}
}
