package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PresenceEventType string

const (
	EventRoomCreated       PresenceEventType = "room_created"
	EventRoomDeleted       PresenceEventType = "room_deleted"
	EventParticipantJoined PresenceEventType = "participant_joined"
	EventParticipantLeft   PresenceEventType = "participant_left"
)

// PresenceAuditLog records a membership delta. Negotiation payloads are
// never audited; only presence changes are.
type PresenceAuditLog struct {
	ID        string            `bson:"_id" json:"id"`
	RoomID    string            `bson:"room_id" json:"roomId"`
	EventType PresenceEventType `bson:"event_type" json:"eventType"`
	UserID    ParticipantID     `bson:"user_id,omitempty" json:"userId,omitempty"`
	Timestamp time.Time         `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any    `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type PresenceAuditRepository interface {
	Log(ctx context.Context, log *PresenceAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]PresenceAuditLog, error)
	GetByEventType(ctx context.Context, eventType PresenceEventType, from, to time.Time) ([]PresenceAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

// NewPresenceAuditLog mints an audit record for an event that already
// happened; occurredAt is the event's own timestamp, not ingestion time.
func NewPresenceAuditLog(roomID string, eventType PresenceEventType, userID ParticipantID, occurredAt time.Time) *PresenceAuditLog {
	return &PresenceAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: eventType,
		UserID:    userID,
		Timestamp: occurredAt,
	}
}
