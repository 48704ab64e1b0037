package vecindex

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vector "github.com/upstash/vector-go"
	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/mediastore"
	"github.com/drissea/reelsync/internal/models"
	"github.com/drissea/reelsync/pkg/config"
	"github.com/drissea/reelsync/pkg/telemetry"
)

// Index pushes reels into an Upstash vector index. Embeddings are computed
// server-side from the text blob, so upserts carry raw text plus metadata.
type Index struct {
	index  *vector.Index
	logger *zap.Logger
}

// Match is one search hit from the index.
type Match struct {
	Shortcode string                 `json:"shortcode"`
	Score     float32                `json:"score"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// New creates a vector index client
func New(cfg *config.VectorConfig, logger *zap.Logger) (*Index, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("vector index url and token are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	idx := vector.NewIndexWith(vector.Options{
		Url:    cfg.URL,
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
	})

	logger = logger.With(zap.String("component", "vector-index"))
	logger.Info("Vector index client initialized", zap.String("url", cfg.URL))

	return &Index{index: idx, logger: logger}, nil
}

// UpsertPost indexes one reel under its shortcode. Reels with no indexable
// text are skipped; the boolean reports whether an upsert happened. The
// owning account fills the creator fields of the metadata and may be nil,
// in which case those fields stay empty.
func (ix *Index) UpsertPost(ctx context.Context, post *models.Post, account *models.Account) (bool, error) {
	_, span := telemetry.StartSpan(ctx, "vecindex.upsert")
	defer span.End()

	text := BuildText(post)
	if text == "" {
		ix.logger.Debug("Skipping reel with no indexable text",
			zap.String("shortcode", post.Shortcode))
		return false, nil
	}

	err := ix.index.UpsertData(vector.UpsertData{
		Id:       post.Shortcode,
		Data:     text,
		Metadata: buildMetadata(post, account),
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert %s: %w", post.Shortcode, err)
	}
	return true, nil
}

// Exists reports whether a reel is already present in the index
func (ix *Index) Exists(ctx context.Context, shortcode string) (bool, error) {
	_, span := telemetry.StartSpan(ctx, "vecindex.fetch")
	defer span.End()

	vectors, err := ix.index.Fetch(vector.Fetch{Ids: []string{shortcode}})
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s: %w", shortcode, err)
	}
	return len(vectors) > 0 && vectors[0].Id != "", nil
}

// Query runs a semantic search over indexed reels
func (ix *Index) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	_, span := telemetry.StartSpan(ctx, "vecindex.query")
	defer span.End()

	if topK <= 0 {
		topK = 10
	}
	scores, err := ix.index.QueryData(vector.QueryData{
		Data:            text,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	matches := make([]Match, 0, len(scores))
	for _, s := range scores {
		matches = append(matches, Match{
			Shortcode: s.Id,
			Score:     s.Score,
			Metadata:  s.Metadata,
		})
	}
	return matches, nil
}

// buildMetadata flattens a reel plus its creator into the metadata schema
// stored alongside the embedding. Every key is always present so queries can
// filter on any of them. Upstream video URLs expire, so only mirrored ones
// are kept.
func buildMetadata(post *models.Post, account *models.Account) map[string]interface{} {
	videoURL := post.VideoURL
	if mediastore.IsUpstreamHosted(videoURL) {
		videoURL = ""
	}
	thumbnailURL := post.ThumbnailURL
	if mediastore.IsUpstreamHosted(thumbnailURL) {
		thumbnailURL = ""
	}

	fullName, profilePicURL := "", ""
	if account != nil {
		fullName = account.FullName
		profilePicURL = account.ProfilePicURL
	}

	return map[string]interface{}{
		"shortcode":          post.Shortcode,
		"user_id":            post.UserID,
		"username":           post.Username,
		"full_name":          fullName,
		"profile_pic_url":    profilePicURL,
		"caption":            post.Caption,
		"transcription":      post.Transcription,
		"framewatch":         post.Framewatch,
		"video_url":          videoURL,
		"thumbnail_url":      thumbnailURL,
		"permalink":          post.Permalink,
		"view_count":         post.ViewCount,
		"like_count":         post.LikeCount,
		"comment_count":      post.CommentCount,
		"taken_at":           post.TakenAt.Unix(),
		"created_at":         timestamp(post.CreatedAt),
		"updated_at":         timestamp(post.UpdatedAt),
		"audio_type":         post.AudioType,
		"audio_title":        post.AudioTitle,
		"is_original_audio":  post.IsOriginalAudio,
		"has_collaborators":  post.HasCollaborators,
		"collaborator_count": post.CollaboratorCount,
	}
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
