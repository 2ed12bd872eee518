// Package stats aggregates lifecycle counters published on the event bus and
// surfaces them through the system status endpoint.
package stats

import (
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

// Event bus topics published by the session registry and controller.
const (
	TopicSessionCreated = "session.created"
	TopicSessionClosed  = "session.closed"
	TopicEngineFailure  = "engine.failure"
	TopicFlush          = "session.flush"
)

// Snapshot is a point-in-time view of the collected counters.
type Snapshot struct {
	SessionsOpened int64     `json:"sessions_opened"`
	SessionsClosed int64     `json:"sessions_closed"`
	Flushes        int64     `json:"flushes"`
	EngineFailures int64     `json:"engine_failures"`
	Since          time.Time `json:"since"`
}

// Collector subscribes to lifecycle topics and keeps running counters.
type Collector struct {
	opened   atomic.Int64
	closed   atomic.Int64
	flushes  atomic.Int64
	failures atomic.Int64
	since    time.Time
}

// NewCollector builds a collector and subscribes it to the bus.
func NewCollector(bus evbus.Bus) (*Collector, error) {
	c := &Collector{since: time.Now()}

	subscriptions := map[string]interface{}{
		TopicSessionCreated: func(string) { c.opened.Add(1) },
		TopicSessionClosed:  func(string) { c.closed.Add(1) },
		TopicFlush:          func(string) { c.flushes.Add(1) },
		TopicEngineFailure:  func(string, string) { c.failures.Add(1) },
	}
	for topic, handler := range subscriptions {
		if err := bus.Subscribe(topic, handler); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		SessionsOpened: c.opened.Load(),
		SessionsClosed: c.closed.Load(),
		Flushes:        c.flushes.Load(),
		EngineFailures: c.failures.Load(),
		Since:          c.since,
	}
}
