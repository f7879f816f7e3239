package signaling

import (
	"errors"
	"slices"
	"sync"

	"github.com/meshconf/meshconf/internal/domain"
)

// errRoomClosed tells a joiner it raced with the room's deletion and must
// retry against a fresh room.
var errRoomClosed = errors.New("room closed")

// Peer is what a room knows about a connected participant: an identity, a
// non-blocking way to queue an outbound frame, and a signal for when the
// participant is gone.
type Peer interface {
	ID() domain.ParticipantID
	// TrySend queues a frame for delivery, reporting false if the frame was
	// dropped because the peer's queue is full or the peer is gone.
	TrySend(f *Frame) bool
	Done() <-chan struct{}
}

// Room holds the live membership of one meeting. All membership reads and
// writes happen under one mutex; join snapshot, join announcement, leave
// announcement and routing validation are each a single critical section so
// no peer ever observes half-applied membership.
type Room struct {
	id string

	mu     sync.Mutex
	peers  map[domain.ParticipantID]Peer
	closed bool
}

func newRoom(id string) *Room {
	return &Room{
		id:    id,
		peers: make(map[domain.ParticipantID]Peer),
	}
}

func (r *Room) ID() string {
	return r.id
}

// register adds the peer, hands it the membership snapshot, and announces it
// to everyone else. Because all three happen under the mutex and each peer's
// queue is FIFO, the snapshot a joiner receives reflects membership at the
// instant of the join, and every existing member sees user_joined notices in
// join order.
func (r *Room) register(p Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRoomClosed
	}
	if _, ok := r.peers[p.ID()]; ok {
		return domain.ErrAlreadyJoined
	}

	existing := make([]domain.ParticipantID, 0, len(r.peers))
	for id := range r.peers {
		existing = append(existing, id)
	}
	slices.Sort(existing)

	r.peers[p.ID()] = p

	p.TrySend(NewExistingUsers(existing))

	joined := NewUserJoined(p.ID())
	for id, other := range r.peers {
		if id != p.ID() {
			other.TrySend(joined)
		}
	}

	return nil
}

// remove drops the peer and tells the remaining members. The returned empty
// flag is advisory; the registry re-checks under both locks before deleting
// the room.
func (r *Room) remove(id domain.ParticipantID) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[id]; !ok {
		return false, len(r.peers) == 0
	}
	delete(r.peers, id)

	left := NewUserLeft(id)
	for _, other := range r.peers {
		other.TrySend(left)
	}

	return true, len(r.peers) == 0
}

// deliver relays a negotiation frame from sender to the target named in the
// frame, rewriting user_id to the sender so the recipient knows whom to
// reply to. Validation and enqueue share the critical section, so a target
// that was a member when validation passed still holds a queue slot for the
// frame. queued is false when the frame was dropped on backpressure.
func (r *Room) deliver(sender domain.ParticipantID, f *Frame) (queued bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, domain.ErrRoomNotFound
	}
	if _, ok := r.peers[sender]; !ok {
		return false, domain.ErrUnknownSender
	}
	target, ok := r.peers[f.UserID]
	if !ok {
		return false, domain.ErrUnknownTarget
	}

	out := *f
	out.UserID = sender

	return target.TrySend(&out), nil
}

// Members returns a sorted snapshot of the current membership.
func (r *Room) Members() []domain.ParticipantID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]domain.ParticipantID, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// markClosedIfEmpty flips the closed flag when no members remain. Callers
// hold the registry lock; a join that raced past the registry lookup will
// see the flag under the room mutex and retry.
func (r *Room) markClosedIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || len(r.peers) > 0 {
		return false
	}
	r.closed = true
	return true
}
