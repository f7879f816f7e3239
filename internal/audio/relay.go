package audio

import (
	"context"
	"sync"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	"github.com/meshconf/meshconf/internal/infrastructure/metrics"
)

// Relay multiplexes per-participant audio streams into a transcription
// sink. Each participant gets its own worker and bounded queue, so one
// stalled sink call delays only that participant's chunks and chunk order
// within a participant is preserved end to end.
type Relay struct {
	sink    TranscriptionSink
	logger  logging.Logger
	metrics *metrics.Metrics
	buffer  int
}

func NewRelay(sink TranscriptionSink, logger logging.Logger, m *metrics.Metrics, buffer int) *Relay {
	if buffer <= 0 {
		buffer = 256
	}
	return &Relay{
		sink:    sink,
		logger:  logger,
		metrics: m,
		buffer:  buffer,
	}
}

// Stream is one participant's ordered pipe into the sink. Not safe for
// concurrent Forward calls; the single websocket read loop is the only
// producer.
type Stream struct {
	relay  *Relay
	roomID string
	userID domain.ParticipantID

	seq       uint64
	chunks    chan Chunk
	drained   chan struct{}
	closeOnce sync.Once
}

// Open starts a stream worker for the participant.
func (r *Relay) Open(roomID string, userID domain.ParticipantID) *Stream {
	s := &Stream{
		relay:   r,
		roomID:  roomID,
		userID:  userID,
		chunks:  make(chan Chunk, r.buffer),
		drained: make(chan struct{}),
	}
	go s.run()
	return s
}

// Forward queues one chunk. When the queue is full the newest chunk is the
// one dropped: transcription prefers a gap over reordering, and older
// chunks are already in flight.
func (s *Stream) Forward(data []byte) bool {
	chunk := Chunk{
		RoomID: s.roomID,
		UserID: s.userID,
		Seq:    s.seq,
		Data:   data,
	}
	s.seq++ // a dropped chunk still consumes its number, so gaps are visible downstream

	select {
	case s.chunks <- chunk:
		return true
	default:
		s.relay.metrics.AudioDropped()
		s.relay.logger.Debug(logging.Audio, logging.Forwarding, "audio chunk dropped", map[logging.ExtraKey]any{
			logging.RoomID: s.roomID,
			logging.UserID: int64(s.userID),
		})
		return false
	}
}

// Close stops intake and blocks until queued chunks have been handed to the
// sink. Idempotent.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.chunks)
	})
	<-s.drained
}

func (s *Stream) run() {
	defer close(s.drained)

	for chunk := range s.chunks {
		if err := s.relay.sink.Consume(context.Background(), chunk); err != nil {
			s.relay.logger.Error(logging.Audio, logging.Forwarding, "sink rejected chunk", map[logging.ExtraKey]any{
				logging.RoomID:       chunk.RoomID,
				logging.UserID:       int64(chunk.UserID),
				logging.ErrorMessage: err.Error(),
			})
			continue
		}
		s.relay.metrics.AudioForwarded(len(chunk.Data))
	}
}
