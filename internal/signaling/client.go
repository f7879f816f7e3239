package signaling

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/configs"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	"github.com/meshconf/meshconf/internal/infrastructure/metrics"
)

// Client is the connection gateway for one participant: it owns the
// websocket, parses inbound frames, and drains the buffered send queue
// through a single write pump. Teardown runs exactly once no matter how
// many paths hit it.
type Client struct {
	conn     *connWrapper
	identity domain.Identity
	roomID   string

	registry *Registry
	router   *Router
	logger   logging.Logger
	metrics  *metrics.Metrics
	cfg      configs.SignalingConfig

	send      chan *Frame
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(
	conn *websocket.Conn,
	identity domain.Identity,
	roomID string,
	registry *Registry,
	router *Router,
	cfg configs.SignalingConfig,
	logger logging.Logger,
	m *metrics.Metrics,
) *Client {
	return &Client{
		conn:     newConnWrapper(conn),
		identity: identity,
		roomID:   roomID,
		registry: registry,
		router:   router,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
		send:     make(chan *Frame, cfg.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() domain.ParticipantID {
	return c.identity.UserID
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// TrySend queues a frame without blocking. A frame for a departed client or
// a full queue is dropped; stalling here would hold the room mutex hostage
// to the slowest connection.
func (c *Client) TrySend(f *Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- f:
		return true
	default:
		c.metrics.FrameDropped()
		return false
	}
}

// ReadPump reads frames until the socket dies, routing each one. Errors on
// individual frames go back to this client only; the connection stays open.
func (c *Client) ReadPump() {
	defer c.Teardown()

	conn := c.conn.conn
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn(logging.Signaling, logging.Transport, "read error", map[logging.ExtraKey]any{
					logging.RoomID:       c.roomID,
					logging.UserID:       int64(c.ID()),
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		frame, err := ParseFrame(raw)
		if err != nil {
			c.metrics.SignalRejected("malformed")
			c.TrySend(NewErrorFrame(CodeMalformed, err.Error()))
			continue
		}

		if err := c.router.Route(c.roomID, c.ID(), frame); err != nil {
			c.TrySend(NewErrorFrame(errorCode(err), err.Error()))
		}
	}
}

// WritePump is the only writer of data frames on the connection. It also
// keeps the connection alive with periodic pings.
func (c *Client) WritePump() {
	pingPeriod := c.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Teardown()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.WriteJSON(frame, time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

// Teardown leaves the room and closes the socket. Idempotent: the read
// pump, the write pump and the handler can all call it.
func (c *Client) Teardown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.registry.Leave(c.roomID, c.ID())
		_ = c.conn.Close()
		c.logger.Debug(logging.Signaling, logging.Transport, "connection closed", map[logging.ExtraKey]any{
			logging.RoomID: c.roomID,
			logging.UserID: int64(c.ID()),
		})
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownTarget):
		return CodeUnknownTarget
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrUnknownSender):
		return CodeUnknownRoom
	default:
		return CodeMalformed
	}
}
