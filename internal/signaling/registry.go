package signaling

import (
	"sync"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	"github.com/meshconf/meshconf/internal/infrastructure/metrics"
)

// PresenceNotifier receives membership deltas after they commit. Callbacks
// fire outside all registry and room locks and must not block for long;
// the AMQP publisher behind it hands off to the broker.
type PresenceNotifier interface {
	RoomCreated(roomID string)
	RoomDeleted(roomID string)
	PeerJoined(roomID string, userID domain.ParticipantID)
	PeerLeft(roomID string, userID domain.ParticipantID)
}

// NopNotifier discards all presence events.
type NopNotifier struct{}

func (NopNotifier) RoomCreated(string) {}

func (NopNotifier) RoomDeleted(string) {}

func (NopNotifier) PeerJoined(string, domain.ParticipantID) {}

func (NopNotifier) PeerLeft(string, domain.ParticipantID) {}

// Registry owns the room table. Rooms are created lazily by the first join
// and deleted when the last participant leaves; a room ID seen again later
// gets a brand new room. The registry mutex guards only the table itself,
// never per-room state, so a slow room cannot stall joins elsewhere.
type Registry struct {
	logger   logging.Logger
	metrics  *metrics.Metrics
	notifier PresenceNotifier
	maxRooms int

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRegistry(logger logging.Logger, m *metrics.Metrics, notifier PresenceNotifier, maxRooms int) *Registry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Registry{
		logger:   logger,
		metrics:  m,
		notifier: notifier,
		maxRooms: maxRooms,
		rooms:    make(map[string]*Room),
	}
}

// Join adds the peer to the named room, creating it if needed. The retry
// loop covers the window where a looked-up room is concurrently emptied and
// closed: the stale room rejects the register and the next pass creates a
// fresh one.
func (g *Registry) Join(roomID string, p Peer) (*Room, error) {
	for {
		room, created, err := g.getOrCreate(roomID)
		if err != nil {
			return nil, err
		}

		if err := room.register(p); err != nil {
			if err == errRoomClosed {
				continue
			}
			return nil, err
		}

		g.metrics.ParticipantJoined()
		if created {
			g.metrics.RoomOpened()
			g.logger.Info(logging.Presence, logging.Join, "room created", map[logging.ExtraKey]any{
				logging.RoomID: roomID,
			})
			g.notifier.RoomCreated(roomID)
		}
		g.logger.Info(logging.Presence, logging.Join, "participant joined", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
			logging.UserID: int64(p.ID()),
		})
		g.notifier.PeerJoined(roomID, p.ID())

		return room, nil
	}
}

// Leave removes the peer and deletes the room if it emptied. Safe to call
// more than once; only the call that actually removes the peer emits
// notices and events.
func (g *Registry) Leave(roomID string, userID domain.ParticipantID) {
	g.mu.Lock()
	room := g.rooms[roomID]
	g.mu.Unlock()
	if room == nil {
		return
	}

	removed, empty := room.remove(userID)
	if !removed {
		return
	}

	g.metrics.ParticipantLeft()
	g.logger.Info(logging.Presence, logging.Leave, "participant left", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		logging.UserID: int64(userID),
	})
	g.notifier.PeerLeft(roomID, userID)

	if empty && g.closeRoom(room) {
		g.metrics.RoomClosed()
		g.logger.Info(logging.Presence, logging.Leave, "room deleted", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
		})
		g.notifier.RoomDeleted(roomID)
	}
}

// Lookup returns the live room, if any.
func (g *Registry) Lookup(roomID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[roomID]
	return room, ok
}

// RoomCount reports how many rooms are live.
func (g *Registry) RoomCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

func (g *Registry) getOrCreate(roomID string) (room *Room, created bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if room, ok := g.rooms[roomID]; ok {
		return room, false, nil
	}
	if g.maxRooms > 0 && len(g.rooms) >= g.maxRooms {
		return nil, false, domain.ErrRoomsExhausted
	}

	room = newRoom(roomID)
	g.rooms[roomID] = room
	return room, true, nil
}

// closeRoom deletes the room from the table if it is still empty. Taking
// the registry lock before the room lock matches Join's order, so a join
// that found this room either registered before the close (room stays) or
// after it (register fails, join retries).
func (g *Registry) closeRoom(room *Room) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !room.markClosedIfEmpty() {
		return false
	}
	delete(g.rooms, room.id)
	return true
}
