package enrich

import (
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/drissea/reelsync/pkg/config"
)

// Transcriber turns a media stream into text.
type Transcriber interface {
	Transcribe(ctx context.Context, media io.Reader, filename string) (string, error)
}

// GroqTranscriber transcribes through Groq's OpenAI-compatible audio endpoint.
type GroqTranscriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

// NewGroqTranscriber creates a transcriber from the configured credentials.
func NewGroqTranscriber(cfg *config.TranscribeConfig, logger *zap.Logger) (*GroqTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient.Timeout = cfg.Timeout
	} else {
		clientCfg.HTTPClient.Timeout = 120 * time.Second
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-large-v3"
	}

	logger = logger.With(zap.String("component", "transcriber"))
	logger.Info("Transcriber initialized", zap.String("model", model))

	return &GroqTranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		logger:   logger,
	}, nil
}

// Transcribe streams the media into the speech-to-text API and returns the
// recognized text. The filename only carries the container format hint.
func (t *GroqTranscriber) Transcribe(ctx context.Context, media io.Reader, filename string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   media,
		FilePath: filename,
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	return resp.Text, nil
}
