package engine

import (
	"strings"
	"sync"
)

// maxConversationSegments bounds the running context so long sessions do not
// grow requests without limit. Oldest segments are dropped first.
const maxConversationSegments = 8

// maxPromptChars caps the context prompt handed to the engine, which only
// honors a small trailing window anyway.
const maxPromptChars = 800

// Conversation is an opaque multi-turn transcription context owned by the
// engine. Callers create one per transcribing session and discard it on stop;
// they must not depend on its internal representation.
type Conversation struct {
	mu       sync.Mutex
	segments []string
}

// prompt joins the recent transcript segments into the context prompt for
// the next transcription call. Whole segments are dropped from the oldest
// side when the window overflows.
func (c *Conversation) prompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	start := 0
	for i := len(c.segments) - 1; i >= 0; i-- {
		total += len(c.segments[i]) + 1
		if total > maxPromptChars {
			start = i + 1
			break
		}
	}
	return strings.Join(c.segments[start:], " ")
}

func (c *Conversation) record(transcript string) {
	if transcript == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = append(c.segments, transcript)
	if excess := len(c.segments) - maxConversationSegments; excess > 0 {
		c.segments = c.segments[excess:]
	}
}

func (c *Conversation) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.segments)
}
