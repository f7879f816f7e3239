package transcripts

import (
	"context"
	"sync"
	"time"
)

// Summary is the transcription outcome for one meeting, produced by the
// downstream transcription worker and fetched by clients after the meeting.
type Summary struct {
	RoomID    string    `json:"roomId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Mailbox holds at most one summary per room and lets clients wait for it
// with a bounded long poll instead of busy polling. A later Put for the same
// room replaces the earlier summary.
type Mailbox struct {
	mu        sync.Mutex
	summaries map[string]Summary
	waiters   map[string][]chan Summary
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		summaries: make(map[string]Summary),
		waiters:   make(map[string][]chan Summary),
	}
}

// Put stores the summary and releases every waiter parked on the room.
func (m *Mailbox) Put(summary Summary) {
	m.mu.Lock()
	m.summaries[summary.RoomID] = summary
	waiting := m.waiters[summary.RoomID]
	delete(m.waiters, summary.RoomID)
	m.mu.Unlock()

	for _, ch := range waiting {
		ch <- summary // buffered, never blocks
	}
}

// Get returns the room's summary if one has arrived.
func (m *Mailbox) Get(roomID string) (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary, ok := m.summaries[roomID]
	return summary, ok
}

// Wait blocks until a summary arrives for the room or the context ends.
// The second return is false on timeout or cancellation.
func (m *Mailbox) Wait(ctx context.Context, roomID string) (Summary, bool) {
	m.mu.Lock()
	if summary, ok := m.summaries[roomID]; ok {
		m.mu.Unlock()
		return summary, true
	}

	ch := make(chan Summary, 1)
	m.waiters[roomID] = append(m.waiters[roomID], ch)
	m.mu.Unlock()

	select {
	case summary := <-ch:
		return summary, true
	case <-ctx.Done():
		m.removeWaiter(roomID, ch)
		// Put may have raced the cancellation; prefer the summary if so.
		select {
		case summary := <-ch:
			return summary, true
		default:
			return Summary{}, false
		}
	}
}

// Clear drops the room's summary, if any.
func (m *Mailbox) Clear(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.summaries, roomID)
}

func (m *Mailbox) removeWaiter(roomID string, ch chan Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	waiting := m.waiters[roomID]
	for i, w := range waiting {
		if w == ch {
			m.waiters[roomID] = append(waiting[:i], waiting[i+1:]...)
			break
		}
	}
	if len(m.waiters[roomID]) == 0 {
		delete(m.waiters, roomID)
	}
}
