package speech

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voicebridge-server-go/internal/engine"
	"voicebridge-server-go/internal/platform/config"
	"voicebridge-server-go/internal/platform/errors"
	"voicebridge-server-go/internal/platform/logging"
	httptransport "voicebridge-server-go/internal/transport/http"
)

// maxUploadBytes caps one-shot audio uploads at 25 MB, the engine's own
// transcription payload limit.
const maxUploadBytes = 25 << 20

// Service exposes one-shot transcription and translation over HTTP,
// complementing the streaming websocket surface.
type Service struct {
	config  *config.Config
	gateway engine.Gateway
	logger  *logging.Logger
}

// NewService creates the speech HTTP service.
func NewService(cfg *config.Config, gateway engine.Gateway, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.Wrap(errors.KindConfig, "speech.new", "config is required", nil)
	}
	if gateway == nil {
		return nil, errors.Wrap(errors.KindConfig, "speech.new", "engine gateway is required", nil)
	}

	return &Service{
		config:  cfg,
		gateway: gateway,
		logger:  logger,
	}, nil
}

// Register wires the speech routes into the API group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/translate", s.handleTranslate)
	router.POST("/translate/stream", s.handleTranslateStream)
	router.POST("/transcribe", s.handleTranscribe)

	s.logger.InfoTag("HTTP", "speech service routes registered")
	return nil
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage"`
}

type translateResponse struct {
	Text           string `json:"text"`
	SourceText     string `json:"sourceText"`
	TargetLanguage string `json:"targetLanguage"`
}

func (s *Service) bindTranslateRequest(c *gin.Context) (translateRequest, bool) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "text is required", nil)
		return req, false
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = s.config.Stream.DefaultLanguage
	}
	if !s.config.Stream.SupportsLanguage(req.TargetLanguage) {
		httptransport.RespondError(c, http.StatusBadRequest, "unsupported language: "+req.TargetLanguage, nil)
		return req, false
	}
	return req, true
}

// handleTranslate translates a complete text in one call.
func (s *Service) handleTranslate(c *gin.Context) {
	req, ok := s.bindTranslateRequest(c)
	if !ok {
		return
	}

	translated, err := s.gateway.TranslateOnce(c.Request.Context(), req.Text, req.TargetLanguage, req.SourceLanguage)
	if err != nil {
		s.logger.ErrorTag("LLM", "translate request failed: %v", err)
		httptransport.RespondError(c, http.StatusBadGateway, "translation failed", nil)
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, translateResponse{
		Text:           translated,
		SourceText:     req.Text,
		TargetLanguage: req.TargetLanguage,
	}, "")
}

// handleTranslateStream translates a text and streams the result as
// server-sent events, one chunk per event, terminated by a done event.
func (s *Service) handleTranslateStream(c *gin.Context) {
	req, ok := s.bindTranslateRequest(c)
	if !ok {
		return
	}

	chunks, err := s.gateway.TranslateStream(c.Request.Context(), req.Text, req.TargetLanguage, req.SourceLanguage)
	if err != nil {
		s.logger.ErrorTag("LLM", "stream translate request failed: %v", err)
		httptransport.RespondError(c, http.StatusBadGateway, "translation failed", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		chunk, open := <-chunks
		if !open {
			c.SSEvent("done", "")
			return false
		}
		if chunk.Err != nil {
			s.logger.ErrorTag("LLM", "stream translate aborted: %v", chunk.Err)
			c.SSEvent("error", gin.H{"message": "translation failed"})
			return false
		}
		c.SSEvent("chunk", gin.H{"text": chunk.Content})
		return true
	})
}

type transcribeRequest struct {
	Audio  string `json:"audio"`
	Format string `json:"format"`
}

// handleTranscribe accepts audio as a multipart upload (field "audio") or as
// base64 in a JSON body and returns the transcript.
func (s *Service) handleTranscribe(c *gin.Context) {
	audio, format, ok := s.readAudio(c)
	if !ok {
		return
	}
	if len(audio) == 0 {
		httptransport.RespondError(c, http.StatusBadRequest, "audio is required", nil)
		return
	}

	transcript, err := s.gateway.Transcribe(c.Request.Context(), audio, format, nil)
	if err != nil {
		s.logger.ErrorTag("ASR", "transcribe request failed: %v", err)
		httptransport.RespondError(c, http.StatusBadGateway, "transcription failed", nil)
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"text": strings.TrimSpace(transcript),
	}, "")
}

func (s *Service) readAudio(c *gin.Context) (audio []byte, format string, ok bool) {
	contentType := c.ContentType()

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := c.Request.FormFile("audio")
		if err != nil {
			httptransport.RespondError(c, http.StatusBadRequest, "missing audio file: "+err.Error(), nil)
			return nil, "", false
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			httptransport.RespondError(c, http.StatusBadRequest, "failed to read audio: "+err.Error(), nil)
			return nil, "", false
		}
		if len(data) > maxUploadBytes {
			httptransport.RespondError(c, http.StatusRequestEntityTooLarge, "audio exceeds upload limit", nil)
			return nil, "", false
		}
		return data, header.Header.Get("Content-Type"), true
	}

	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "audio must be base64 encoded", nil)
		return nil, "", false
	}
	if len(data) > maxUploadBytes {
		httptransport.RespondError(c, http.StatusRequestEntityTooLarge, "audio exceeds upload limit", nil)
		return nil, "", false
	}
	return data, req.Format, true
}
