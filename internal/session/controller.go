package session

import (
	"context"
	"strings"

	evbus "github.com/asaskevich/EventBus"

	"voicebridge-server-go/internal/engine"
	"voicebridge-server-go/internal/platform/config"
	"voicebridge-server-go/internal/platform/logging"
	"voicebridge-server-go/internal/stats"
)

// Placeholder texts pushed on flagged results. A failed engine call degrades
// the message, never the session.
const (
	transcriptionPlaceholder = "Transcription unavailable."
	translationPlaceholder   = "Translation unavailable."
)

// Controller interprets inbound protocol messages, drives the session
// buffers, invokes the engine gateway and emits outbound messages. One
// controller serves every session; per-session state lives on the Session.
type Controller struct {
	registry *Registry
	gateway  engine.Gateway
	cfg      config.StreamConfig
	logger   *logging.Logger
	bus      evbus.Bus
}

// NewController wires the controller to its collaborators. The registry is
// passed explicitly; the controller owns no ambient state.
func NewController(registry *Registry, gateway engine.Gateway, cfg config.StreamConfig, logger *logging.Logger, bus evbus.Bus) *Controller {
	return &Controller{
		registry: registry,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
	}
}

// Greet announces the session identifier, sent once immediately after
// connect.
func (c *Controller) Greet(sess *Session) {
	c.send(sess, sessionMessage(sess.ID))
}

// HandleText processes one JSON control frame. Malformed or unknown commands
// are reported to the client; the connection stays open.
func (c *Controller) HandleText(ctx context.Context, sess *Session, payload []byte) {
	msg, err := DecodeClientMessage(payload)
	if err != nil || msg.Type == "" {
		c.logger.WarnTag("Session", "%s sent malformed command: %v", sess.ID, err)
		c.send(sess, protocolErrorMessage("malformed command"))
		return
	}

	switch msg.Type {
	case TypeStart:
		c.handleStart(sess, msg)
	case TypeSetLanguage:
		c.handleSetLanguage(sess, msg)
	case TypeStop:
		c.handleStop(ctx, sess)
	case TypeTranslateText:
		c.handleTranslateText(ctx, sess, msg)
	case TypeFlushText:
		c.handleFlushText(ctx, sess)
	default:
		c.logger.WarnTag("Session", "%s sent unknown command %q", sess.ID, msg.Type)
		c.send(sess, protocolErrorMessage("unknown command: "+msg.Type))
	}
}

// HandleBinary processes one binary audio frame. Frames arriving while idle
// are logged and dropped without a client-visible error.
func (c *Controller) HandleBinary(ctx context.Context, sess *Session, frame []byte) {
	if !sess.IsTranscribing() {
		c.logger.DebugTag("Session", "%s dropped %d audio bytes while idle", sess.ID, len(frame))
		return
	}

	sess.Audio.Append(frame)
	if sess.Audio.ShouldFlush() {
		// Drain on the inbound flow so later fragments start a fresh
		// generation while this one is transcribed.
		payload := sess.Audio.Drain()
		go c.flush(ctx, sess, payload)
	}
}

// HandleClose treats connection teardown as an implicit stop without a
// stopped acknowledgment, then removes the session. A flush still in flight
// finds the session gone and discards its result.
func (c *Controller) HandleClose(sess *Session) {
	c.registry.Remove(sess.ID)
}

func (c *Controller) handleStart(sess *Session, msg ClientMessage) {
	if sess.IsTranscribing() {
		return
	}

	sess.Audio.Reset()
	sess.beginTranscribing(msg.Format, c.gateway.NewConversation())
	c.logger.InfoTag("Session", "%s started transcribing (format=%s)", sess.ID, msg.Format)
	c.send(sess, startedMessage())
}

func (c *Controller) handleSetLanguage(sess *Session, msg ClientMessage) {
	if msg.Language == "" || !c.cfg.SupportsLanguage(msg.Language) {
		c.send(sess, protocolErrorMessage("unsupported language: "+msg.Language))
		return
	}

	sess.SetTargetLanguage(msg.Language)
	c.send(sess, languageSetMessage(msg.Language))
}

func (c *Controller) handleStop(ctx context.Context, sess *Session) {
	if !sess.IsTranscribing() {
		return
	}

	// Remaining audio is flushed synchronously before leaving the
	// transcribing state, even below the threshold.
	if payload := sess.Audio.Drain(); len(payload) > 0 {
		c.flush(ctx, sess, payload)
	}

	sess.endTranscribing()
	c.logger.InfoTag("Session", "%s stopped transcribing", sess.ID)
	c.send(sess, stoppedMessage())
}

// flush submits one buffer generation to the engine. Flushes for a session
// are serialized by flushMu so results reach the client in submission order;
// results for a session already removed from the registry are discarded.
func (c *Controller) flush(ctx context.Context, sess *Session, payload []byte) {
	sess.flushMu.Lock()
	defer sess.flushMu.Unlock()

	if c.bus != nil {
		c.bus.Publish(stats.TopicFlush, sess.ID)
	}

	transcript, err := c.gateway.Transcribe(ctx, payload, sess.Format(), sess.Conversation())

	if _, ok := c.registry.Get(sess.ID); !ok {
		c.logger.DebugTag("Session", "%s gone, discarding flush result", sess.ID)
		return
	}

	if err != nil {
		c.logger.ErrorTag("ASR", "session %s flush failed: %v", sess.ID, err)
		if c.bus != nil {
			c.bus.Publish(stats.TopicEngineFailure, sess.ID, "transcribe")
		}
		c.send(sess, transcriptionErrorMessage(transcriptionPlaceholder))
		return
	}

	transcript = strings.TrimSpace(transcript)
	c.logger.InfoASR("session %s transcript: %s", sess.ID, transcript)
	c.send(sess, transcriptionMessage(transcript))

	if transcript == "" {
		return
	}
	if target := sess.TargetLanguage(); target != c.cfg.EngineLanguage {
		c.translate(ctx, sess, transcript, target, c.cfg.EngineLanguage)
	}
}

func (c *Controller) handleTranslateText(ctx context.Context, sess *Session, msg ClientMessage) {
	if msg.Text == "" {
		c.send(sess, protocolErrorMessage("missing text"))
		return
	}

	sess.Sentences.Append(msg.Text)
	if sess.Sentences.IsComplete() {
		sentence := sess.Sentences.Drain()
		c.translate(ctx, sess, sentence, sess.TargetLanguage(), "")
	}
}

// handleFlushText releases any residual buffered text at end-of-input, even
// without a sentence boundary. No fragment is ever discarded.
func (c *Controller) handleFlushText(ctx context.Context, sess *Session) {
	if sess.Sentences.Len() == 0 {
		return
	}
	remainder := sess.Sentences.Drain()
	c.translate(ctx, sess, remainder, sess.TargetLanguage(), "")
}

func (c *Controller) translate(ctx context.Context, sess *Session, text, targetLang, sourceLang string) {
	translated, err := c.gateway.TranslateOnce(ctx, text, targetLang, sourceLang)
	if err != nil {
		c.logger.ErrorTag("LLM", "session %s translation failed: %v", sess.ID, err)
		if c.bus != nil {
			c.bus.Publish(stats.TopicEngineFailure, sess.ID, "translate")
		}
		c.send(sess, translationErrorMessage(translationPlaceholder, text, targetLang))
		return
	}
	c.logger.InfoLLM("session %s translated to %s: %s", sess.ID, targetLang, translated)
	c.send(sess, translationMessage(translated, text, targetLang))
}

func (c *Controller) send(sess *Session, msg ServerMessage) {
	if err := sess.Send(msg); err != nil {
		c.logger.WarnTag("Session", "%s outbound write failed: %v", sess.ID, err)
	}
}
