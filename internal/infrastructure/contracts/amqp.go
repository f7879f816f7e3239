package contracts

// AmqpMessage is the envelope every message on the presence exchange travels in.
type AmqpMessage struct {
	RoomID string `json:"roomId"`
	Data   []byte `json:"data"`
}

// Routing keys - using consistent event patterns
const (
	EventRoomCreated = "presence.room.created"
	EventRoomDeleted = "presence.room.deleted"
	EventPeerJoined  = "presence.peer.joined"
	EventPeerLeft    = "presence.peer.left"
	EventAudioChunk  = "audio.chunk"
)
