package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"voicebridge-server-go/internal/platform/config"
	"voicebridge-server-go/internal/platform/logging"
)

// DevFallbackTranscript is returned by Transcribe when every engine path has
// failed and the dev_fallback flag is set. Clearly labeled so it can never be
// mistaken for real output.
const DevFallbackTranscript = "[dev-fallback] transcription unavailable"

// OpenAI implements Gateway on top of an OpenAI-compatible chat completions
// API. It is safe for concurrent use by multiple sessions.
type OpenAI struct {
	client *openai.Client
	cfg    config.EngineConfig
	logger *logging.Logger
}

// NewOpenAI builds the gateway from engine configuration. An API key is
// required unless dev_fallback is set, in which case engine calls fail and
// transcription degrades to the labeled placeholder.
func NewOpenAI(cfg config.EngineConfig, logger *logging.Logger) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if !cfg.DevFallback {
			return nil, fmt.Errorf("missing engine API key")
		}
		apiKey = "dev-placeholder"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// translationDirective instructs the engine to answer with the translation
// only, no explanation text.
func translationDirective(targetLang, sourceLang string) string {
	var b strings.Builder
	b.WriteString("You are a translation engine. Translate the user's text")
	if sourceLang != "" && sourceLang != "auto" {
		fmt.Fprintf(&b, " from %s", sourceLang)
	}
	fmt.Fprintf(&b, " into %s.", targetLang)
	b.WriteString(" Respond with the translation only, no explanations, no quotes.")
	return b.String()
}

// audioFormatForMime maps a client mime type onto the engine's audio format
// label. Unknown types default to wav.
func audioFormatForMime(mimeType string) string {
	mime := strings.ToLower(mimeType)
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	switch strings.TrimSpace(mime) {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/ogg", "audio/opus":
		return "ogg"
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/flac":
		return "flac"
	default:
		return "wav"
	}
}

func (g *OpenAI) maxTokens() int {
	if g.cfg.MaxTokens > 0 {
		return g.cfg.MaxTokens
	}
	return 500
}

// TranslateOnce implements Translator.
func (g *OpenAI) TranslateOnce(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translationDirective(targetLang, sourceLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: g.maxTokens(),
	})
	if err != nil {
		return "", &EngineError{Op: "translate", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &EngineError{Op: "translate", Err: fmt.Errorf("empty response")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// TranslateStream implements Translator.
func (g *OpenAI) TranslateStream(ctx context.Context, text, targetLang, sourceLang string) (<-chan StreamChunk, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translationDirective(targetLang, sourceLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Stream:    true,
		MaxTokens: g.maxTokens(),
	})
	if err != nil {
		return nil, &EngineError{Op: "translate-stream", Err: err}
	}

	chunks := make(chan StreamChunk, 10)
	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				// io.EOF is normal completion; anything else terminates
				// the stream with an engine error chunk.
				if !isStreamEnd(err) {
					chunks <- StreamChunk{Err: &EngineError{Op: "translate-stream", Err: err}}
				}
				return
			}
			if len(response.Choices) > 0 {
				if content := response.Choices[0].Delta.Content; content != "" {
					select {
					case chunks <- StreamChunk{Content: content}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return chunks, nil
}

func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF)
}

// NewConversation implements Transcriber.
func (g *OpenAI) NewConversation() *Conversation {
	return &Conversation{}
}

// Transcribe implements Transcriber. The live multi-turn path is tried first
// when a conversation is attached, feeding the running context to the engine
// as the transcription prompt; on error it falls back to a context-free
// single-shot request. With dev_fallback set a placeholder transcript keeps
// local development alive when both paths fail.
func (g *OpenAI) Transcribe(ctx context.Context, audio []byte, mimeType string, conv *Conversation) (string, error) {
	var liveErr error
	if conv != nil {
		text, err := g.transcribeLive(ctx, audio, mimeType, conv)
		if err == nil {
			return text, nil
		}
		liveErr = err
		if g.logger != nil {
			g.logger.WarnTag("ASR", "live transcription failed, falling back to single-shot: %v", err)
		}
	}

	text, err := g.transcribeOnce(ctx, audio, mimeType)
	if err == nil {
		return text, nil
	}

	if g.cfg.DevFallback {
		if g.logger != nil {
			g.logger.WarnTag("ASR", "all transcription paths failed, returning dev placeholder: %v", err)
		}
		return DevFallbackTranscript, nil
	}

	if liveErr != nil {
		return "", &EngineError{Op: "transcribe", Err: fmt.Errorf("live: %v; single-shot: %w", liveErr, err)}
	}
	return "", &EngineError{Op: "transcribe", Err: err}
}

// transcribeLive runs the transcription with the conversation's running
// context attached as the engine prompt, then records the result so the next
// flush of the same session carries it forward.
func (g *OpenAI) transcribeLive(ctx context.Context, audio []byte, mimeType string, conv *Conversation) (string, error) {
	resp, err := g.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio." + audioFormatForMime(mimeType),
		Prompt:   conv.prompt(),
	})
	if err != nil {
		return "", err
	}

	transcript := strings.TrimSpace(resp.Text)
	conv.record(transcript)
	return transcript, nil
}

// transcribeOnce is the single-shot fallback via the audio transcription API.
func (g *OpenAI) transcribeOnce(ctx context.Context, audio []byte, mimeType string) (string, error) {
	resp, err := g.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio." + audioFormatForMime(mimeType),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
