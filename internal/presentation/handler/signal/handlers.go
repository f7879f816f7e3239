package signal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/meshconf/meshconf/internal/audio"
	"github.com/meshconf/meshconf/internal/auth"
	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/configs"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	"github.com/meshconf/meshconf/internal/infrastructure/metrics"
	"github.com/meshconf/meshconf/internal/signaling"
)

// Handler upgrades and runs the two websocket endpoints: the negotiation
// channel and the audio side channel. Authentication happens before the
// upgrade so a bad credential is an HTTP 401, not a websocket close.
type Handler struct {
	verifier auth.Verifier
	registry *signaling.Registry
	router   *signaling.Router
	relay    *audio.Relay
	logger   logging.Logger
	metrics  *metrics.Metrics
	cfg      *configs.Config

	upgrader websocket.Upgrader
}

func NewHandler(
	verifier auth.Verifier,
	registry *signaling.Registry,
	router *signaling.Router,
	relay *audio.Relay,
	logger logging.Logger,
	m *metrics.Metrics,
	cfg *configs.Config,
) *Handler {
	h := &Handler{
		verifier: verifier,
		registry: registry,
		router:   router,
		relay:    relay,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser client
	}
	for _, allowed := range h.cfg.HTTP.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// SignalHandler runs the negotiation channel for one participant.
func (h *Handler) SignalHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "code")

	identity, err := h.verifier.VerifyRequest(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	client := signaling.NewClient(conn, identity, roomID, h.registry, h.router, h.cfg.Signaling, h.logger, h.metrics)

	if _, err := h.registry.Join(roomID, client); err != nil {
		h.logger.Warn(logging.Signaling, logging.Join, "join rejected", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.UserID:       int64(identity.UserID),
			logging.ErrorMessage: err.Error(),
		})
		_ = conn.WriteJSON(signaling.NewErrorFrame(joinErrorCode(err), err.Error()))
		_ = conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}

// AudioHandler runs the audio side channel: binary chunks in, relayed to
// the transcription sink in arrival order. It is independent of the
// negotiation socket and carries no signaling frames.
func (h *Handler) AudioHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "code")

	identity, err := h.verifier.VerifyRequest(r)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	stream := h.relay.Open(roomID, identity.UserID)
	defer stream.Close()

	conn.SetReadLimit(h.cfg.Audio.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.Signaling.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.Signaling.PongWait))
	})

	go h.pingLoop(conn)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn(logging.Audio, logging.Transport, "audio read error", map[logging.ExtraKey]any{
					logging.RoomID:       roomID,
					logging.UserID:       int64(identity.UserID),
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue // the audio channel carries binary chunks only
		}
		stream.Forward(data)
	}
}

func (h *Handler) pingLoop(conn *websocket.Conn) {
	pingPeriod := h.cfg.Signaling.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		deadline := time.Now().Add(h.cfg.Signaling.WriteWait)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			return
		}
	}
}

func joinErrorCode(err error) string {
	switch err {
	case domain.ErrAlreadyJoined:
		return "already_joined"
	case domain.ErrRoomsExhausted:
		return "rooms_exhausted"
	default:
		return "join_failed"
	}
}
