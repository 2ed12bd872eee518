package session

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
)

func TestChunkBuffer_ThresholdExact(t *testing.T) {
	buf := NewChunkBuffer(5)

	for i := 0; i < 4; i++ {
		buf.Append([]byte{byte(i)})
		if buf.ShouldFlush() {
			t.Fatalf("buffer flagged flush after %d fragments, threshold is 5", i+1)
		}
	}

	buf.Append([]byte{4})
	if !buf.ShouldFlush() {
		t.Fatal("buffer should flag flush at exactly 5 fragments")
	}
}

func TestChunkBuffer_DrainConcatenatesInOrder(t *testing.T) {
	buf := NewChunkBuffer(5)
	buf.Append([]byte("one"))
	buf.Append([]byte("two"))
	buf.Append([]byte("three"))

	got := buf.Drain()
	if !bytes.Equal(got, []byte("onetwothree")) {
		t.Errorf("drained %q, want %q", got, "onetwothree")
	}
	if buf.Len() != 0 {
		t.Errorf("buffer not empty after drain: %d fragments", buf.Len())
	}
	if buf.ShouldFlush() {
		t.Error("empty buffer should not flag flush")
	}
}

func TestChunkBuffer_DrainEmpty(t *testing.T) {
	buf := NewChunkBuffer(5)
	if got := buf.Drain(); got != nil {
		t.Errorf("draining empty buffer returned %v, want nil", got)
	}
}

func TestChunkBuffer_NoDataLossAcrossGenerations(t *testing.T) {
	buf := NewChunkBuffer(3)

	var appended, drained bytes.Buffer
	for i := 0; i < 10; i++ {
		fragment := []byte(fmt.Sprintf("frag%02d|", i))
		appended.Write(fragment)
		buf.Append(fragment)
		if buf.ShouldFlush() {
			drained.Write(buf.Drain())
		}
	}
	drained.Write(buf.Drain())

	if !bytes.Equal(appended.Bytes(), drained.Bytes()) {
		t.Errorf("data loss across generations:\nappended %q\ndrained  %q",
			appended.Bytes(), drained.Bytes())
	}
}

func TestChunkBuffer_AppendCopiesFragment(t *testing.T) {
	buf := NewChunkBuffer(5)
	fragment := []byte("abc")
	buf.Append(fragment)
	fragment[0] = 'x'

	if got := buf.Drain(); !bytes.Equal(got, []byte("abc")) {
		t.Errorf("buffer aliased caller slice: got %q", got)
	}
}

func TestChunkBuffer_DefaultThreshold(t *testing.T) {
	buf := NewChunkBuffer(0)
	for i := 0; i < DefaultFlushThreshold; i++ {
		buf.Append([]byte{0})
	}
	if !buf.ShouldFlush() {
		t.Errorf("expected default threshold %d to apply", DefaultFlushThreshold)
	}
}

func TestChunkBuffer_ConcurrentAppendDuringDrain(t *testing.T) {
	buf := NewChunkBuffer(100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var total int

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			buf.Append([]byte{byte(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			n := len(buf.Drain())
			mu.Lock()
			total += n
			mu.Unlock()
		}
	}()
	wg.Wait()

	total += len(buf.Drain())
	if total != 500 {
		t.Errorf("lost fragments under concurrency: drained %d bytes, want 500", total)
	}
}
