package session

import (
	"sync"
	"testing"

	"voicebridge-server-go/internal/platform/config"
)

func testStreamConfig() config.StreamConfig {
	return config.StreamConfig{
		FlushThreshold:     5,
		DefaultLanguage:    "en",
		EngineLanguage:     "en",
		SupportedLanguages: []string{"en", "es", "fr", "de"},
	}
}

type nopOutbound struct{}

func (nopOutbound) Send(msg ServerMessage) error { return nil }

func TestRegistry_CreateGetRemove(t *testing.T) {
	reg := NewRegistry(testStreamConfig(), nil, nil)

	sess := reg.Create(nopOutbound{})
	if sess.ID == "" {
		t.Fatal("created session has empty id")
	}
	if sess.TargetLanguage() != "en" {
		t.Errorf("expected default language en, got %s", sess.TargetLanguage())
	}
	if sess.IsTranscribing() {
		t.Error("new session should be idle")
	}

	got, ok := reg.Get(sess.ID)
	if !ok || got != sess {
		t.Fatal("lookup did not return the created session")
	}

	reg.Remove(sess.ID)
	if _, ok := reg.Get(sess.ID); ok {
		t.Error("session still present after remove")
	}
	if reg.Count() != 0 {
		t.Errorf("count = %d after remove, want 0", reg.Count())
	}
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	reg := NewRegistry(testStreamConfig(), nil, nil)
	reg.Remove("never-existed")
	if reg.Count() != 0 {
		t.Errorf("count = %d, want 0", reg.Count())
	}
}

func TestRegistry_UniqueIDs(t *testing.T) {
	reg := NewRegistry(testStreamConfig(), nil, nil)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess := reg.Create(nopOutbound{})
		if seen[sess.ID] {
			t.Fatalf("id %s reused", sess.ID)
		}
		seen[sess.ID] = true
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(testStreamConfig(), nil, nil)

	var wg sync.WaitGroup
	ids := make(chan string, 200)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := reg.Create(nopOutbound{})
			ids <- sess.ID
		}()
	}
	wg.Wait()
	close(ids)

	var collected []string
	for id := range ids {
		if _, ok := reg.Get(id); !ok {
			t.Errorf("session %s missing after concurrent create", id)
		}
		collected = append(collected, id)
	}
	if reg.Count() != 100 {
		t.Errorf("count = %d, want 100", reg.Count())
	}

	for _, id := range collected {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			reg.Remove(id)
		}(id)
	}
	wg.Wait()

	if reg.Count() != 0 {
		t.Errorf("count = %d after concurrent removes, want 0", reg.Count())
	}
}

func TestRegistry_RemoveDiscardsBuffers(t *testing.T) {
	reg := NewRegistry(testStreamConfig(), nil, nil)
	sess := reg.Create(nopOutbound{})
	sess.Audio.Append([]byte("audio"))
	sess.Sentences.Append("text")

	reg.Remove(sess.ID)

	if sess.Audio.Len() != 0 {
		t.Error("audio buffer not discarded on remove")
	}
	if sess.Sentences.Len() != 0 {
		t.Error("sentence buffer not discarded on remove")
	}
	if sess.IsTranscribing() {
		t.Error("session still transcribing after remove")
	}
}
