package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"voicebridge-server-go/internal/engine"
	"voicebridge-server-go/internal/platform/config"
	"voicebridge-server-go/internal/session"
)

type stubGateway struct {
	transcript string
}

func (s *stubGateway) Transcribe(ctx context.Context, audio []byte, mimeType string, conv *engine.Conversation) (string, error) {
	return s.transcript, nil
}

func (s *stubGateway) NewConversation() *engine.Conversation {
	return &engine.Conversation{}
}

func (s *stubGateway) TranslateOnce(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	return targetLang + ":" + text, nil
}

func (s *stubGateway) TranslateStream(ctx context.Context, text, targetLang, sourceLang string) (<-chan engine.StreamChunk, error) {
	out := make(chan engine.StreamChunk, 1)
	out <- engine.StreamChunk{Content: targetLang + ":" + text}
	close(out)
	return out, nil
}

func newTestServer(t *testing.T, gw engine.Gateway) (*httptest.Server, *Hub) {
	t.Helper()

	cfg := config.StreamConfig{
		FlushThreshold:     5,
		DefaultLanguage:    "en",
		EngineLanguage:     "en",
		SupportedLanguages: []string{"en", "es"},
	}
	registry := session.NewRegistry(cfg, nil, nil)
	ctrl := session.NewController(registry, gw, cfg, nil, nil)

	hub := NewHub(nil)
	router := NewRouter(hub, nil, RouterOptions{})
	router.SetHandlerBuilder(NewHandlerBuilder(registry, ctrl, nil))

	srv := httptest.NewServer(http.HandlerFunc(router.Handle))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) session.ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg session.ServerMessage
	if err := sonic.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode %q: %v", payload, err)
	}
	return msg
}

func writeCommand(t *testing.T, conn *websocket.Conn, msg session.ClientMessage) {
	t.Helper()
	data, err := sonic.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestStreamHandler_GreetsOnConnect(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{})
	conn := dial(t, srv)

	greet := readServerMessage(t, conn)
	if greet.Type != session.TypeSession {
		t.Fatalf("first message type = %q, want %q", greet.Type, session.TypeSession)
	}
	if greet.SessionID == "" {
		t.Error("greeting carries no session id")
	}
}

func TestStreamHandler_TranscriptionRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{transcript: "round trip"})
	conn := dial(t, srv)
	readServerMessage(t, conn) // greeting

	writeCommand(t, conn, session.ClientMessage{Type: session.TypeStart, Format: "audio/webm"})
	if msg := readServerMessage(t, conn); msg.Type != session.TypeStarted {
		t.Fatalf("expected started, got %v", msg)
	}

	for i := 0; i < 5; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, []byte{byte(i)}); err != nil {
			t.Fatalf("binary write: %v", err)
		}
	}

	msg := readServerMessage(t, conn)
	if msg.Type != session.TypeTranscription || msg.Text != "round trip" {
		t.Fatalf("expected transcription, got %v", msg)
	}

	writeCommand(t, conn, session.ClientMessage{Type: session.TypeStop})
	if msg := readServerMessage(t, conn); msg.Type != session.TypeStopped {
		t.Fatalf("expected stopped, got %v", msg)
	}
}

func TestStreamHandler_LanguageAndTranslation(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{transcript: "hola"})
	conn := dial(t, srv)
	readServerMessage(t, conn) // greeting

	writeCommand(t, conn, session.ClientMessage{Type: session.TypeSetLanguage, Language: "es"})
	if msg := readServerMessage(t, conn); msg.Type != session.TypeLanguageSet || msg.Language != "es" {
		t.Fatalf("expected languageSet es, got %v", msg)
	}

	writeCommand(t, conn, session.ClientMessage{Type: session.TypeStart, Format: "audio/wav"})
	readServerMessage(t, conn) // started

	for i := 0; i < 5; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, []byte{byte(i)}); err != nil {
			t.Fatalf("binary write: %v", err)
		}
	}

	transcription := readServerMessage(t, conn)
	if transcription.Type != session.TypeTranscription {
		t.Fatalf("expected transcription first, got %v", transcription)
	}
	translation := readServerMessage(t, conn)
	if translation.Type != session.TypeTranslation {
		t.Fatalf("expected translation, got %v", translation)
	}
	if translation.TargetLanguage != "es" || translation.SourceText != "hola" {
		t.Errorf("translation fields wrong: %v", translation)
	}
}

func TestStreamHandler_ProtocolErrorKeepsConnection(t *testing.T) {
	srv, _ := newTestServer(t, &stubGateway{})
	conn := dial(t, srv)
	readServerMessage(t, conn) // greeting

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"warp"}`)); err != nil {
		t.Fatal(err)
	}
	if msg := readServerMessage(t, conn); msg.Type != session.TypeError {
		t.Fatalf("expected error message, got %v", msg)
	}

	// Connection still serves commands.
	writeCommand(t, conn, session.ClientMessage{Type: session.TypeStart, Format: "audio/wav"})
	if msg := readServerMessage(t, conn); msg.Type != session.TypeStarted {
		t.Fatalf("connection unusable after protocol error: %v", msg)
	}
}

func TestHub_CloseStaleReapsIdleSessions(t *testing.T) {
	srv, hub := newTestServer(t, &stubGateway{})
	conn := dial(t, srv)
	readServerMessage(t, conn) // greeting

	// A fresh connection is not stale.
	if reaped := hub.CloseStale(time.Minute); reaped != 0 {
		t.Fatalf("reaped %d fresh sessions", reaped)
	}
	if hub.Count() != 1 {
		t.Fatalf("hub count = %d, want 1", hub.Count())
	}

	// Rewind the connection's activity clock past the timeout.
	hub.sessions.Range(func(_, value any) bool {
		sess := value.(*Session)
		sess.conn.lastActive.Store(time.Now().Add(-time.Hour).UnixNano())
		return true
	})

	if reaped := hub.CloseStale(time.Minute); reaped != 1 {
		t.Fatalf("reaped %d sessions, want 1", reaped)
	}
	if hub.Count() != 0 {
		t.Fatalf("hub count = %d after reap, want 0", hub.Count())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("read succeeded on a reaped connection")
	}
}

func TestHub_TracksSessions(t *testing.T) {
	srv, hub := newTestServer(t, &stubGateway{})
	conn := dial(t, srv)
	readServerMessage(t, conn) // greeting

	if hub.Count() != 1 {
		t.Fatalf("hub count = %d, want 1", hub.Count())
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Fatal("session not unregistered after close")
	}
}
