package session

import (
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"

	"voicebridge-server-go/internal/platform/config"
	"voicebridge-server-go/internal/platform/logging"
	"voicebridge-server-go/internal/stats"
)

// Registry is the concurrent-safe store of live sessions. It is created at
// server start, torn down at server stop, and passed explicitly to the
// controller; sessions never survive a process restart.
type Registry struct {
	cfg    config.StreamConfig
	logger *logging.Logger
	bus    evbus.Bus

	sessions sync.Map // map[string]*Session
	count    atomic.Int64
}

// NewRegistry builds an empty registry. The bus may be nil when lifecycle
// events are not consumed (tests).
func NewRegistry(cfg config.StreamConfig, logger *logging.Logger, bus evbus.Bus) *Registry {
	return &Registry{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
	}
}

// Create allocates a session with a fresh identifier and inserts it.
// Identifiers are never reused.
func (r *Registry) Create(outbound Outbound) *Session {
	id := uuid.New().String()
	sess := newSession(id, r.cfg.DefaultLanguage, r.cfg.FlushThreshold, outbound)
	r.sessions.Store(id, sess)
	r.count.Add(1)

	if r.logger != nil {
		r.logger.InfoTag("Session", "created %s (language=%s)", id, r.cfg.DefaultLanguage)
	}
	if r.bus != nil {
		r.bus.Publish(stats.TopicSessionCreated, id)
	}
	return sess
}

// Get looks a session up by identifier.
func (r *Registry) Get(id string) (*Session, bool) {
	value, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*Session), true
}

// Remove deletes the session and releases its buffers. Removing an unknown id
// is a no-op, not an error.
func (r *Registry) Remove(id string) {
	value, loaded := r.sessions.LoadAndDelete(id)
	if !loaded {
		return
	}
	r.count.Add(-1)

	sess := value.(*Session)
	sess.endTranscribing()
	sess.Audio.Reset()
	sess.Sentences.Drain()

	if r.logger != nil {
		r.logger.InfoTag("Session", "removed %s", id)
	}
	if r.bus != nil {
		r.bus.Publish(stats.TopicSessionClosed, id)
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return int(r.count.Load())
}
