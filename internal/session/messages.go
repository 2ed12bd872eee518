package session

import (
	"github.com/bytedance/sonic"
)

// Client command types.
const (
	TypeStart         = "start"
	TypeSetLanguage   = "setLanguage"
	TypeStop          = "stop"
	TypeTranslateText = "translateText"
	TypeFlushText     = "flushText"
)

// Server message types.
const (
	TypeSession       = "session"
	TypeStarted       = "started"
	TypeStopped       = "stopped"
	TypeLanguageSet   = "languageSet"
	TypeTranscription = "transcription"
	TypeTranslation   = "translation"
	TypeError         = "error"
)

// ClientMessage is a decoded JSON control frame from the client.
type ClientMessage struct {
	Type     string `json:"type"`
	Format   string `json:"format,omitempty"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ServerMessage is a JSON frame pushed to the client. The Error field carries
// true on flagged transcription/translation results and a message string on
// protocol errors; it stays absent otherwise.
type ServerMessage struct {
	Type           string      `json:"type"`
	SessionID      string      `json:"sessionId,omitempty"`
	Message        string      `json:"message,omitempty"`
	Language       string      `json:"language,omitempty"`
	Text           string      `json:"text,omitempty"`
	SourceText     string      `json:"sourceText,omitempty"`
	TargetLanguage string      `json:"targetLanguage,omitempty"`
	Error          interface{} `json:"error,omitempty"`
}

// DecodeClientMessage parses a text frame into a client command.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := sonic.Unmarshal(payload, &msg); err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}

// EncodeServerMessage renders a server message as a JSON text frame.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	return sonic.Marshal(msg)
}

func sessionMessage(id string) ServerMessage {
	return ServerMessage{Type: TypeSession, SessionID: id}
}

func startedMessage() ServerMessage {
	return ServerMessage{Type: TypeStarted, Message: "transcription started"}
}

func stoppedMessage() ServerMessage {
	return ServerMessage{Type: TypeStopped, Message: "transcription stopped"}
}

func languageSetMessage(language string) ServerMessage {
	return ServerMessage{Type: TypeLanguageSet, Language: language}
}

func transcriptionMessage(text string) ServerMessage {
	return ServerMessage{Type: TypeTranscription, Text: text}
}

func transcriptionErrorMessage(placeholder string) ServerMessage {
	return ServerMessage{Type: TypeTranscription, Text: placeholder, Error: true}
}

func translationMessage(text, sourceText, targetLanguage string) ServerMessage {
	return ServerMessage{
		Type:           TypeTranslation,
		Text:           text,
		SourceText:     sourceText,
		TargetLanguage: targetLanguage,
	}
}

func translationErrorMessage(placeholder, sourceText, targetLanguage string) ServerMessage {
	return ServerMessage{
		Type:           TypeTranslation,
		Text:           placeholder,
		SourceText:     sourceText,
		TargetLanguage: targetLanguage,
		Error:          true,
	}
}

func protocolErrorMessage(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Error: message}
}
