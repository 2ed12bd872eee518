package session

import (
	"regexp"
	"strings"
)

// sentenceEnd matches sentence-terminal punctuation, optionally followed by
// whitespace, at the very end of the buffered text. Heuristic: exact
// segmentation for every language is out of scope.
var sentenceEnd = regexp.MustCompile(`[.!?]\s*$`)

// SentenceBuffer accumulates text fragments and decides when a complete
// sentence is ready to be handed off for translation. It never calls the
// engine itself.
type SentenceBuffer struct {
	buf strings.Builder
}

// Append adds a text fragment to the buffer.
func (s *SentenceBuffer) Append(fragment string) {
	s.buf.WriteString(fragment)
}

// IsComplete reports whether the buffered text ends in sentence-terminal
// punctuation. At end-of-stream callers must drain regardless, so no fragment
// is ever discarded.
func (s *SentenceBuffer) IsComplete() bool {
	return sentenceEnd.MatchString(s.buf.String())
}

// Len returns the number of buffered bytes.
func (s *SentenceBuffer) Len() int {
	return s.buf.Len()
}

// Drain returns the buffered text and resets the buffer to empty.
func (s *SentenceBuffer) Drain() string {
	text := s.buf.String()
	s.buf.Reset()
	return text
}
