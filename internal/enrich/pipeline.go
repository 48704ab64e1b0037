package enrich

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/models"
	"github.com/drissea/reelsync/pkg/telemetry"
)

// Pipeline downloads reel videos and attaches transcripts to them.
type Pipeline struct {
	transcriber Transcriber
	http        *http.Client
	logger      *zap.Logger
}

// NewPipeline creates an enrichment pipeline around a transcriber.
func NewPipeline(transcriber Transcriber, downloadTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if downloadTimeout <= 0 {
		downloadTimeout = 60 * time.Second
	}
	return &Pipeline{
		transcriber: transcriber,
		http:        &http.Client{Timeout: downloadTimeout},
		logger:      logger.With(zap.String("component", "enrich")),
	}
}

// Enrich transcribes one reel's video and writes the transcript onto the
// post. Reels without a video URL are skipped. The boolean reports whether a
// transcript was attached; on failure the post is left untouched.
func (p *Pipeline) Enrich(ctx context.Context, post *models.Post) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "enrich.transcribe")
	defer span.End()

	if post.VideoURL == "" {
		p.logger.Debug("Skipping reel without video", zap.String("shortcode", post.Shortcode))
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, post.VideoURL, nil)
	if err != nil {
		return false, fmt.Errorf("invalid video url: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("video download returned status %d", resp.StatusCode)
	}

	// The body streams straight into the transcription upload.
	text, err := p.transcriber.Transcribe(ctx, resp.Body, "input.mp4")
	if err != nil {
		return false, err
	}

	post.Transcription = text
	post.IsTranscribed = true
	return true, nil
}

// EnrichAll transcribes a batch of reels, stopping early when the context is
// cancelled. It returns how many transcripts were attached and how many
// attempts failed; reels without video count as neither.
func (p *Pipeline) EnrichAll(ctx context.Context, posts []*models.Post) (ok, failed int) {
	for _, post := range posts {
		if ctx.Err() != nil {
			return ok, failed
		}
		enriched, err := p.Enrich(ctx, post)
		if err != nil {
			failed++
			p.logger.Warn("Transcription failed",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
			continue
		}
		if enriched {
			ok++
		}
	}
	return ok, failed
}
