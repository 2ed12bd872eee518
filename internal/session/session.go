package session

import (
	"sync"

	"voicebridge-server-go/internal/engine"
)

// Outbound is the only path through which a session writes to its client.
// Implementations must preserve emission order.
type Outbound interface {
	Send(msg ServerMessage) error
}

// Session is the per-connection unit of transcription and translation state.
// All fields are owned by the connection's flow plus the controller's flush
// goroutine; the mutex covers the small mutable scalars they share.
type Session struct {
	ID string

	mu             sync.RWMutex
	targetLanguage string
	transcribing   bool
	format         string
	conv           *engine.Conversation

	Audio     *ChunkBuffer
	Sentences *SentenceBuffer

	outbound Outbound

	// flushMu serializes flushes for this session so transcription results
	// reach the client in submission order. A new buffer generation still
	// accumulates while a flush is outstanding.
	flushMu sync.Mutex
}

func newSession(id, defaultLanguage string, flushThreshold int, outbound Outbound) *Session {
	return &Session{
		ID:             id,
		targetLanguage: defaultLanguage,
		Audio:          NewChunkBuffer(flushThreshold),
		Sentences:      &SentenceBuffer{},
		outbound:       outbound,
	}
}

// Send pushes a message to the client over the session's outbound channel.
func (s *Session) Send(msg ServerMessage) error {
	return s.outbound.Send(msg)
}

// TargetLanguage returns the session's current target language code.
func (s *Session) TargetLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetLanguage
}

// SetTargetLanguage mutates only the target language; the transcribing state
// is untouched.
func (s *Session) SetTargetLanguage(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetLanguage = code
}

// IsTranscribing reports whether the session is between start and stop.
func (s *Session) IsTranscribing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcribing
}

// Format returns the audio mime type announced by the start command.
func (s *Session) Format() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format
}

// Conversation returns the engine-owned transcription context, nil while idle.
func (s *Session) Conversation() *engine.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv
}

func (s *Session) beginTranscribing(format string, conv *engine.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcribing = true
	s.format = format
	s.conv = conv
}

func (s *Session) endTranscribing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcribing = false
	s.conv = nil
}
