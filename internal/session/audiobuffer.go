package session

import "sync"

// DefaultFlushThreshold is the fragment count that triggers a flush. Fixed
// rather than adaptive: it bounds transcription latency against per-call
// overhead.
const DefaultFlushThreshold = 5

// ChunkBuffer accumulates binary audio fragments until they are drained for
// transcription. Drain is atomic relative to Append: fragments arriving while
// a flush is being prepared land in the next buffer generation, never lost,
// never reordered.
type ChunkBuffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	size      int
	threshold int
}

// NewChunkBuffer creates a buffer flushing at the given fragment count.
// A non-positive threshold falls back to DefaultFlushThreshold.
func NewChunkBuffer(threshold int) *ChunkBuffer {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &ChunkBuffer{threshold: threshold}
}

// Append adds one fragment in arrival order. The fragment is copied so the
// caller may reuse its slice.
func (b *ChunkBuffer) Append(fragment []byte) {
	chunk := make([]byte, len(fragment))
	copy(chunk, fragment)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)
}

// ShouldFlush reports whether the buffer has reached its flush threshold.
func (b *ChunkBuffer) ShouldFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks) >= b.threshold
}

// Len returns the number of buffered fragments.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Drain concatenates all buffered fragments and resets the buffer to empty.
// Returns nil when the buffer holds nothing.
func (b *ChunkBuffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks) == 0 {
		return nil
	}

	payload := make([]byte, 0, b.size)
	for _, chunk := range b.chunks {
		payload = append(payload, chunk...)
	}
	b.chunks = nil
	b.size = 0
	return payload
}

// Reset discards all buffered fragments.
func (b *ChunkBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.size = 0
}
