package messaging

import "time"

// Queue names. Both queues dead-letter into DeadLetterQueue on Nack.
const (
	PresenceQueue      = "presence_events"
	TranscriptionQueue = "transcription_chunks"
	DeadLetterQueue    = "dead_letter_queue"
)

// PresenceEventData is the payload for presence.* routing keys.
type PresenceEventData struct {
	EventType  string    `json:"eventType"`
	RoomID     string    `json:"roomId"`
	UserID     int64     `json:"userId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AudioChunkData is the payload for the audio.chunk routing key.
type AudioChunkData struct {
	RoomID     string    `json:"roomId"`
	UserID     int64     `json:"userId"`
	Seq        uint64    `json:"seq"`
	Data       []byte    `json:"data"`
	CapturedAt time.Time `json:"capturedAt"`
}
