package signaling

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
)

// fakePeer records every frame queued for it.
type fakePeer struct {
	id   domain.ParticipantID
	done chan struct{}
	full bool // when set, TrySend reports backpressure

	mu     sync.Mutex
	frames []*Frame
}

func newFakePeer(id domain.ParticipantID) *fakePeer {
	return &fakePeer{id: id, done: make(chan struct{})}
}

func (p *fakePeer) ID() domain.ParticipantID { return p.id }

func (p *fakePeer) Done() <-chan struct{} { return p.done }

func (p *fakePeer) TrySend(f *Frame) bool {
	if p.full {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
	return true
}

func (p *fakePeer) received() []*Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Frame(nil), p.frames...)
}

// recordingNotifier captures presence callbacks in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) RoomCreated(roomID string) { n.record("created " + roomID) }

func (n *recordingNotifier) RoomDeleted(roomID string) { n.record("deleted " + roomID) }

func (n *recordingNotifier) PeerJoined(roomID string, id domain.ParticipantID) {
	n.record(fmt.Sprintf("joined %s %d", roomID, id))
}

func (n *recordingNotifier) PeerLeft(roomID string, id domain.ParticipantID) {
	n.record(fmt.Sprintf("left %s %d", roomID, id))
}

func (n *recordingNotifier) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newTestRegistry(maxRooms int) *Registry {
	return NewRegistry(logging.NopLogger{}, nil, nil, maxRooms)
}

func TestJoinDeliversSnapshotBeforeAnnouncements(t *testing.T) {
	g := newTestRegistry(0)

	p1 := newFakePeer(1)
	if _, err := g.Join("ABC123", p1); err != nil {
		t.Fatalf("join p1: %v", err)
	}

	got := p1.received()
	if len(got) != 1 || got[0].Type != FrameExistingUsers {
		t.Fatalf("p1 should have exactly the empty snapshot, got %+v", got)
	}
	if len(*got[0].UserIDs) != 0 {
		t.Fatalf("first joiner's snapshot should be empty, got %v", *got[0].UserIDs)
	}

	p2 := newFakePeer(2)
	if _, err := g.Join("ABC123", p2); err != nil {
		t.Fatalf("join p2: %v", err)
	}

	got = p2.received()
	if len(got) != 1 || got[0].Type != FrameExistingUsers {
		t.Fatalf("p2 should have exactly the snapshot, got %+v", got)
	}
	if ids := *got[0].UserIDs; len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("p2's snapshot should name p1, got %v", ids)
	}

	got = p1.received()
	if len(got) != 2 || got[1].Type != FrameUserJoined || got[1].UserID != 2 {
		t.Fatalf("p1 should see user_joined for p2 after its snapshot, got %+v", got)
	}
}

func TestJoinRejectsDuplicateParticipant(t *testing.T) {
	g := newTestRegistry(0)

	if _, err := g.Join("room", newFakePeer(1)); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := g.Join("room", newFakePeer(1)); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestJoinRespectsMaxRooms(t *testing.T) {
	g := newTestRegistry(1)

	if _, err := g.Join("one", newFakePeer(1)); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := g.Join("two", newFakePeer(2)); !errors.Is(err, domain.ErrRoomsExhausted) {
		t.Fatalf("expected ErrRoomsExhausted, got %v", err)
	}
	// Same room is fine; the cap is on rooms, not participants.
	if _, err := g.Join("one", newFakePeer(3)); err != nil {
		t.Fatalf("join existing room under cap: %v", err)
	}
}

func TestLeaveBroadcastsAndDeletesEmptyRoom(t *testing.T) {
	g := newTestRegistry(0)

	p1 := newFakePeer(1)
	p2 := newFakePeer(2)
	g.Join("room", p1)
	g.Join("room", p2)

	g.Leave("room", p1.id)

	got := p2.received()
	last := got[len(got)-1]
	if last.Type != FrameUserLeft || last.UserID != 1 {
		t.Fatalf("p2 should see user_left for p1, got %+v", last)
	}

	g.Leave("room", p2.id)
	if g.RoomCount() != 0 {
		t.Fatalf("empty room should be deleted, registry has %d rooms", g.RoomCount())
	}

	// The same ID later is a brand new room.
	p3 := newFakePeer(3)
	if _, err := g.Join("room", p3); err != nil {
		t.Fatalf("rejoin after deletion: %v", err)
	}
	if ids := *p3.received()[0].UserIDs; len(ids) != 0 {
		t.Fatalf("new room should start empty, snapshot %v", ids)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	g := newTestRegistry(0)

	p1 := newFakePeer(1)
	p2 := newFakePeer(2)
	g.Join("room", p1)
	g.Join("room", p2)

	g.Leave("room", p1.id)
	g.Leave("room", p1.id)
	g.Leave("nosuchroom", p1.id)

	var leftNotices int
	for _, f := range p2.received() {
		if f.Type == FrameUserLeft {
			leftNotices++
		}
	}
	if leftNotices != 1 {
		t.Fatalf("expected exactly one user_left, got %d", leftNotices)
	}
}

func TestPresenceNotifierOrdering(t *testing.T) {
	n := &recordingNotifier{}
	g := NewRegistry(logging.NopLogger{}, nil, n, 0)

	p1 := newFakePeer(1)
	p2 := newFakePeer(2)
	g.Join("room", p1)
	g.Join("room", p2)
	g.Leave("room", p2.id)
	g.Leave("room", p1.id)

	want := []string{
		"created room",
		"joined room 1",
		"joined room 2",
		"left room 2",
		"left room 1",
		"deleted room",
	}
	got := n.recorded()
	if len(got) != len(want) {
		t.Fatalf("got events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConcurrentJoinsSeeConsistentMembership(t *testing.T) {
	g := newTestRegistry(0)

	const n = 32
	peers := make([]*fakePeer, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		peers[i] = newFakePeer(domain.ParticipantID(i + 1))
		wg.Add(1)
		go func(p *fakePeer) {
			defer wg.Done()
			if _, err := g.Join("room", p); err != nil {
				t.Errorf("join %d: %v", p.id, err)
			}
		}(peers[i])
	}
	wg.Wait()

	room, ok := g.Lookup("room")
	if !ok {
		t.Fatal("room missing after joins")
	}
	if got := len(room.Members()); got != n {
		t.Fatalf("expected %d members, got %d", n, got)
	}

	// Every peer's snapshot plus subsequent user_joined notices must add up
	// to exactly the other n-1 participants, with no duplicates.
	for _, p := range peers {
		seen := make(map[domain.ParticipantID]bool)
		frames := p.received()
		if frames[0].Type != FrameExistingUsers {
			t.Fatalf("peer %d: first frame %q, want snapshot", p.id, frames[0].Type)
		}
		for _, id := range *frames[0].UserIDs {
			seen[id] = true
		}
		for _, f := range frames[1:] {
			if f.Type != FrameUserJoined {
				t.Fatalf("peer %d: unexpected frame %q", p.id, f.Type)
			}
			if seen[f.UserID] {
				t.Fatalf("peer %d: %d announced twice", p.id, f.UserID)
			}
			seen[f.UserID] = true
		}
		if len(seen) != n-1 {
			t.Fatalf("peer %d: saw %d peers, want %d", p.id, len(seen), n-1)
		}
		if seen[p.id] {
			t.Fatalf("peer %d: saw itself", p.id)
		}
	}
}

func TestConcurrentJoinAndLeaveNeverResurrectsRoom(t *testing.T) {
	g := newTestRegistry(0)

	// Hammer one room ID with short lived memberships. Whatever interleaving
	// happens, the registry must end up empty once everyone has left.
	const rounds = 200
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				p := newFakePeer(domain.ParticipantID(worker*rounds + r + 1))
				if _, err := g.Join("flappy", p); err != nil {
					t.Errorf("join: %v", err)
					return
				}
				g.Leave("flappy", p.id)
			}
		}(i)
	}
	wg.Wait()

	if g.RoomCount() != 0 {
		t.Fatalf("registry should be empty, has %d rooms", g.RoomCount())
	}
}
