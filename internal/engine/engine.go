// Package engine wraps the external speech-understanding capability behind a
// small gateway: one-shot and streaming translation plus audio transcription.
// Every failure surfaces as an *EngineError so callers can degrade gracefully
// instead of tearing down their session.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// EngineError marks a failed call into the external engine. The session
// controller reports these to the client as flagged result messages and keeps
// the session alive.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("engine %s failed", e.Op)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsEngineError reports whether err is (or wraps) an EngineError.
func IsEngineError(err error) bool {
	var target *EngineError
	return errors.As(err, &target)
}

// StreamChunk is one fragment of a streaming translation. A chunk with a
// non-nil Err terminates the stream.
type StreamChunk struct {
	Content string
	Err     error
}

// Translator is the text translation capability.
type Translator interface {
	// TranslateOnce returns the trimmed translation of text into targetLang.
	TranslateOnce(ctx context.Context, text, targetLang, sourceLang string) (string, error)
	// TranslateStream re-emits the engine's incremental output as a lazy,
	// finite, single-pass channel. The channel is closed after the final
	// chunk; a chunk carrying an error is always the last one.
	TranslateStream(ctx context.Context, text, targetLang, sourceLang string) (<-chan StreamChunk, error)
}

// Transcriber is the speech-to-text capability.
type Transcriber interface {
	// Transcribe converts audio bytes into a transcript. When conv is non-nil
	// the engine reuses it as a running multi-turn context; a nil conv always
	// takes the single-shot path.
	Transcribe(ctx context.Context, audio []byte, mimeType string, conv *Conversation) (string, error)
	// NewConversation allocates a fresh engine-owned transcription context.
	NewConversation() *Conversation
}

// Gateway is the full engine capability consumed by the session controller
// and the one-shot HTTP handlers.
type Gateway interface {
	Translator
	Transcriber
}
