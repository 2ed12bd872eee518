package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"voicebridge-server-go/internal/platform/logging"
	"voicebridge-server-go/internal/session"
)

// outbound adapts a Connection to the session outbound interface. Frames are
// always JSON text.
type outbound struct {
	conn *Connection
}

func (o outbound) Send(msg session.ServerMessage) error {
	data, err := session.EncodeServerMessage(msg)
	if err != nil {
		return err
	}
	return o.conn.WriteMessage(websocket.TextMessage, data)
}

// StreamHandler bridges websocket frames to the session controller: text
// frames become control commands, binary frames become audio fragments.
type StreamHandler struct {
	conn   *Connection
	ctrl   *session.Controller
	sess   *session.Session
	logger *logging.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewStreamHandler registers a fresh session for the connection and returns
// its protocol handler.
func NewStreamHandler(conn *Connection, registry *session.Registry, ctrl *session.Controller, logger *logging.Logger) *StreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamHandler{
		conn:   conn,
		ctrl:   ctrl,
		sess:   registry.Create(outbound{conn: conn}),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewHandlerBuilder returns the builder the router invokes after each
// successful upgrade.
func NewHandlerBuilder(registry *session.Registry, ctrl *session.Controller, logger *logging.Logger) HandlerBuilder {
	return func(conn *Connection, req *http.Request) (SessionHandler, error) {
		return NewStreamHandler(conn, registry, ctrl, logger), nil
	}
}

// SessionID exposes the session identifier assigned at registration.
func (h *StreamHandler) SessionID() string {
	return h.sess.ID
}

// Handle greets the client and runs the read loop until the connection
// drops.
func (h *StreamHandler) Handle() {
	h.ctrl.Greet(h.sess)

	for {
		messageType, payload, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WarnTag("WebSocket", "session %s read failed: %v", h.sess.ID, err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			h.ctrl.HandleText(h.ctx, h.sess, payload)
		case websocket.BinaryMessage:
			h.ctrl.HandleBinary(h.ctx, h.sess, payload)
		}
	}
}

// Close tears the session down. Safe to call more than once.
func (h *StreamHandler) Close() {
	h.closeOnce.Do(func() {
		h.ctrl.HandleClose(h.sess)
		h.cancel()
	})
}
