package ws

import (
	"sync"
	"time"

	"voicebridge-server-go/internal/platform/logging"
)

// Hub tracks the active websocket sessions for a transport instance.
type Hub struct {
	logger   *logging.Logger
	sessions sync.Map // map[string]*Session
}

// NewHub builds a fresh session hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger: logger,
	}
}

// Register adds a new session to the hub.
func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	h.sessions.Store(session.ID(), session)
}

// Unregister removes the session from the hub.
func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.sessions.Delete(id)
}

// CloseAll terminates all active sessions and waits for their shutdown.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close(reason)
		}
		h.sessions.Delete(key)
		return true
	})
}

// CloseStale terminates sessions whose connection has been idle for longer
// than timeout and reports how many were reaped.
func (h *Hub) CloseStale(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}

	reaped := 0
	h.sessions.Range(func(key, value any) bool {
		session, ok := value.(*Session)
		if !ok || !session.IsStale(timeout) {
			return true
		}
		h.logger.InfoTag("WebSocket", "reaping idle session %s", session.ID())
		session.Close(ErrIdleTimeout)
		h.sessions.Delete(key)
		reaped++
		return true
	})
	return reaped
}

// Count exposes the number of active websocket sessions.
func (h *Hub) Count() int {
	count := 0
	h.sessions.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
