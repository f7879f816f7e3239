package audio

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/contracts"
	"github.com/meshconf/meshconf/internal/infrastructure/messaging"
)

// Chunk is one ordered slice of a participant's audio stream.
type Chunk struct {
	RoomID string
	UserID domain.ParticipantID
	Seq    uint64
	Data   []byte
}

// TranscriptionSink consumes a participant's audio chunks in order. Consume
// may block; the relay worker absorbs that so the websocket reader never
// does.
type TranscriptionSink interface {
	Consume(ctx context.Context, chunk Chunk) error
}

// SinkFunc adapts a function to a TranscriptionSink.
type SinkFunc func(ctx context.Context, chunk Chunk) error

func (f SinkFunc) Consume(ctx context.Context, chunk Chunk) error {
	return f(ctx, chunk)
}

// AmqpSink hands chunks to the transcription queue on the broker.
type AmqpSink struct {
	rabbitmq *messaging.RabbitMQ
}

func NewAmqpSink(rabbitmq *messaging.RabbitMQ) *AmqpSink {
	return &AmqpSink{rabbitmq: rabbitmq}
}

func (s *AmqpSink) Consume(ctx context.Context, chunk Chunk) error {
	payload := messaging.AudioChunkData{
		RoomID:     chunk.RoomID,
		UserID:     int64(chunk.UserID),
		Seq:        chunk.Seq,
		Data:       chunk.Data,
		CapturedAt: time.Now(),
	}

	chunkJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return s.rabbitmq.PublishMessage(ctx, contracts.EventAudioChunk, contracts.AmqpMessage{
		RoomID: chunk.RoomID,
		Data:   chunkJSON,
	})
}
