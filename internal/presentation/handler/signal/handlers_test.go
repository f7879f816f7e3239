package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/meshconf/meshconf/internal/audio"
	"github.com/meshconf/meshconf/internal/auth"
	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/configs"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	"github.com/meshconf/meshconf/internal/signaling"
)

// stubVerifier accepts any numeric token as the participant ID. It keeps the
// tests independent of a signing secret.
type stubVerifier struct{}

func (stubVerifier) VerifyRequest(r *http.Request) (domain.Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return domain.Identity{}, auth.ErrMissingCredentials
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return domain.Identity{}, auth.ErrInvalidCredentials
	}
	return domain.Identity{UserID: domain.ParticipantID(id)}, nil
}

func testConfig() *configs.Config {
	return &configs.Config{
		HTTP: configs.HTTPConfig{
			AllowedOrigins: []string{"*"},
		},
		Signaling: configs.SignalingConfig{
			SendBuffer:     16,
			MaxMessageSize: 64 * 1024,
			PongWait:       time.Minute,
			WriteWait:      10 * time.Second,
		},
		Audio: configs.AudioConfig{
			ChunkBuffer:    16,
			MaxMessageSize: 64 * 1024,
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, chan audio.Chunk) {
	t.Helper()

	cfg := testConfig()
	logger := logging.NopLogger{}

	chunks := make(chan audio.Chunk, 64)
	sink := audio.SinkFunc(func(_ context.Context, chunk audio.Chunk) error {
		chunks <- chunk
		return nil
	})

	registry := signaling.NewRegistry(logger, nil, nil, cfg.Signaling.MaxRooms)
	router := signaling.NewRouter(registry, logger, nil)
	relay := audio.NewRelay(sink, logger, nil, cfg.Audio.ChunkBuffer)

	h := NewHandler(stubVerifier{}, registry, router, relay, logger, nil, cfg)

	r := chi.NewRouter()
	r.Route("/ws/meetings/{code}", func(r chi.Router) {
		r.Get("/signal", h.SignalHandler)
		r.Get("/audio", h.AudioHandler)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chunks
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, path), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *signaling.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f signaling.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return &f
}

func TestSignalSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	c1 := dial(t, srv, "/ws/meetings/ABC123/signal?token=1")
	snapshot := readFrame(t, c1)
	if snapshot.Type != signaling.FrameExistingUsers {
		t.Fatalf("first frame should be the snapshot, got %+v", snapshot)
	}
	if ids := *snapshot.UserIDs; len(ids) != 0 {
		t.Fatalf("first joiner's snapshot should be empty, got %v", ids)
	}

	c2 := dial(t, srv, "/ws/meetings/ABC123/signal?token=2")
	snapshot = readFrame(t, c2)
	if ids := *snapshot.UserIDs; len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("second joiner's snapshot should name the first, got %v", ids)
	}

	joined := readFrame(t, c1)
	if joined.Type != signaling.FrameUserJoined || joined.UserID != 2 {
		t.Fatalf("c1 should see c2 join, got %+v", joined)
	}

	// c2 opens negotiation toward c1; the relayed frame carries the sender's
	// identity and the payload untouched.
	offer := `{"type":"offer","offer":{"sdp":"v=0"},"user_id":1}`
	if err := c2.WriteMessage(websocket.TextMessage, []byte(offer)); err != nil {
		t.Fatalf("write offer: %v", err)
	}
	relayed := readFrame(t, c1)
	if relayed.Type != signaling.FrameOffer || relayed.UserID != 2 {
		t.Fatalf("c1 should get the offer attributed to 2, got %+v", relayed)
	}
	if string(relayed.Offer) != `{"sdp":"v=0"}` {
		t.Fatalf("offer payload not relayed verbatim: %s", relayed.Offer)
	}

	// A frame toward a participant that was never there comes back as an
	// error to the sender only.
	stray := `{"type":"ice_candidate","candidate":{"c":"x"},"user_id":99}`
	if err := c2.WriteMessage(websocket.TextMessage, []byte(stray)); err != nil {
		t.Fatalf("write stray candidate: %v", err)
	}
	errFrame := readFrame(t, c2)
	if errFrame.Type != signaling.FrameError || errFrame.Code != signaling.CodeUnknownTarget {
		t.Fatalf("expected unknown_target error, got %+v", errFrame)
	}

	// c1 hangs up; c2 is told.
	c1.Close()
	left := readFrame(t, c2)
	if left.Type != signaling.FrameUserLeft || left.UserID != 1 {
		t.Fatalf("c2 should see c1 leave, got %+v", left)
	}
}

func TestSignalMalformedFrameKeepsConnectionOpen(t *testing.T) {
	srv, _ := newTestServer(t)

	c1 := dial(t, srv, "/ws/meetings/room/signal?token=1")
	readFrame(t, c1) // snapshot

	if err := c1.WriteMessage(websocket.TextMessage, []byte(`{"type":"user_joined","user_id":5}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	errFrame := readFrame(t, c1)
	if errFrame.Type != signaling.FrameError || errFrame.Code != signaling.CodeMalformed {
		t.Fatalf("expected malformed error, got %+v", errFrame)
	}

	// Connection survives the bad frame.
	c2 := dial(t, srv, "/ws/meetings/room/signal?token=2")
	readFrame(t, c2)
	joined := readFrame(t, c1)
	if joined.Type != signaling.FrameUserJoined || joined.UserID != 2 {
		t.Fatalf("c1 should still be live and see the join, got %+v", joined)
	}
}

func TestSignalRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/ws/meetings/room/signal",
		"/ws/meetings/room/signal?token=nonsense",
		"/ws/meetings/room/audio?token=-3",
	} {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, path), nil)
		if err == nil {
			conn.Close()
			t.Fatalf("%s: handshake should fail without a valid token", path)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %+v", path, resp)
		}
		resp.Body.Close()
	}
}

func TestSignalDuplicateIdentityRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	c1 := dial(t, srv, "/ws/meetings/room/signal?token=7")
	readFrame(t, c1)

	dup := dial(t, srv, "/ws/meetings/room/signal?token=7")
	errFrame := readFrame(t, dup)
	if errFrame.Type != signaling.FrameError || errFrame.Code != "already_joined" {
		t.Fatalf("duplicate join should get an error frame, got %+v", errFrame)
	}

	// The original connection is untouched by the rejected duplicate.
	c2 := dial(t, srv, "/ws/meetings/room/signal?token=8")
	readFrame(t, c2)
	joined := readFrame(t, c1)
	if joined.Type != signaling.FrameUserJoined || joined.UserID != 8 {
		t.Fatalf("c1 should see the next join, got %+v", joined)
	}
}

func TestAudioChannelForwardsBinaryChunks(t *testing.T) {
	srv, chunks := newTestServer(t)

	conn := dial(t, srv, "/ws/meetings/ABC123/audio?token=7")

	// Text frames on the audio channel are ignored, binary frames are
	// forwarded in arrival order.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not audio")); err != nil {
		t.Fatalf("write text: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xAA, byte(i)}); err != nil {
			t.Fatalf("write chunk %d: %v", i, err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case chunk := <-chunks:
			if chunk.RoomID != "ABC123" || chunk.UserID != 7 {
				t.Fatalf("chunk %d mislabeled: %+v", i, chunk)
			}
			if chunk.Seq != uint64(i) {
				t.Fatalf("chunk %d has seq %d", i, chunk.Seq)
			}
			if len(chunk.Data) != 2 || chunk.Data[1] != byte(i) {
				t.Fatalf("chunk %d carries wrong payload %v", i, chunk.Data)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("chunk %d never reached the sink", i)
		}
	}

	select {
	case chunk := <-chunks:
		t.Fatalf("text frame should not reach the sink, got %+v", chunk)
	case <-time.After(100 * time.Millisecond):
	}
}
