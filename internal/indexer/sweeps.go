package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/instagram"
	"github.com/drissea/reelsync/internal/mediastore"
	"github.com/drissea/reelsync/internal/models"
	"github.com/drissea/reelsync/pkg/telemetry"
)

// TranscribeBacklog works through stored reels with original audio that never
// got a transcript, attaching one and refreshing the search index. An empty
// username sweeps all accounts.
func (s *Sync) TranscribeBacklog(ctx context.Context, username string, limit int) (ok, failed int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.transcribe_backlog")
	defer span.End()

	if s.enricher == nil {
		return 0, 0, fmt.Errorf("transcription is not configured")
	}
	if limit <= 0 {
		limit = 100
	}

	userID := ""
	var account *models.Account
	if username != "" {
		account, err = s.accounts.GetByUsername(ctx, username)
		if err != nil {
			return 0, 0, err
		}
		if account == nil {
			return 0, 0, fmt.Errorf("%s: %w", username, ErrUnknownAccount)
		}
		userID = account.UserID
	}

	posts, err := s.posts.ListUntranscribed(ctx, userID, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list untranscribed reels: %w", err)
	}
	s.logger.Info("Transcribing backlog",
		zap.String("username", username),
		zap.Int("reels", len(posts)))

	owners := map[string]*models.Account{}
	if account != nil {
		owners[account.UserID] = account
	}
	owner := func(userID string) *models.Account {
		if a, cached := owners[userID]; cached {
			return a
		}
		a, err := s.accounts.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn("Failed to load reel owner",
				zap.String("user_id", userID),
				zap.Error(err))
			a = nil
		}
		owners[userID] = a
		return a
	}

	for _, post := range posts {
		if ctx.Err() != nil {
			return ok, failed, ctx.Err()
		}
		// A reel that already carries a transcript only needs its flag
		// repaired.
		if post.Transcription == "" {
			enriched, err := s.enricher.Enrich(ctx, post)
			if err != nil {
				failed++
				s.logger.Warn("Backlog transcription failed",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
				continue
			}
			if !enriched {
				continue
			}
		}
		if err := s.posts.SetTranscription(ctx, post.Shortcode, post.Transcription); err != nil {
			failed++
			s.logger.Warn("Failed to store transcript",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
			continue
		}
		ok++
		if s.vector != nil {
			if _, err := s.vector.UpsertPost(ctx, post, owner(post.UserID)); err != nil {
				s.logger.Warn("Failed to refresh index after transcription",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
			}
		}
	}

	// The backlog is drained for this account once a sweep comes back
	// shorter than its limit.
	if account != nil && failed == 0 && len(posts) < limit {
		s.advanceStatus(ctx, account, models.StatusTranscribed, s.logger)
	}
	return ok, failed, nil
}

// MigrateMediaURLs rewrites reels that still point at expiring upstream media
// to mirrored copies. The stored upstream URLs carry expired signatures, so
// each such reel's detail is re-fetched for fresh ones; engagement counts are
// refreshed from the same response. Reels gone upstream are skipped.
func (s *Sync) MigrateMediaURLs(ctx context.Context, username string) (migrated int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.migrate_media_urls")
	defer span.End()

	if s.media == nil {
		return 0, fmt.Errorf("media store is not configured")
	}

	userID := ""
	if username != "" {
		account, err := s.accounts.GetByUsername(ctx, username)
		if err != nil {
			return 0, err
		}
		if account == nil {
			return 0, fmt.Errorf("%s: %w", username, ErrUnknownAccount)
		}
		userID = account.UserID
	}

	err = s.posts.ForEachPost(ctx, userID, 100, func(post *models.Post) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		staleThumb := post.ThumbnailURL != "" && mediastore.IsUpstreamHosted(post.ThumbnailURL)
		staleVideo := s.cfg.Media.UploadVideos && post.VideoURL != "" && mediastore.IsUpstreamHosted(post.VideoURL)
		if !staleThumb && !staleVideo {
			return nil
		}

		detail, err := s.source.GetClipDetail(ctx, post.Shortcode)
		if err != nil {
			if errors.Is(err, instagram.ErrNotFound) {
				s.logger.Info("Reel gone upstream", zap.String("shortcode", post.Shortcode))
			} else {
				s.logger.Warn("Failed to fetch reel detail",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
			}
			return nil
		}

		newThumb, newVideo := "", ""
		if staleThumb {
			src := detail.ThumbnailURL
			if src == "" {
				src = post.ThumbnailURL
			}
			url, err := s.media.PutIfAbsent(ctx, src,
				mediastore.ThumbnailKey(post.Shortcode), "image/jpeg")
			if err != nil {
				s.logger.Warn("Failed to migrate thumbnail",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
			} else {
				newThumb = url
			}
		}
		if staleVideo {
			src := detail.VideoURL
			if src == "" {
				src = post.VideoURL
			}
			url, err := s.media.PutIfAbsent(ctx, src,
				mediastore.VideoKey(post.Shortcode), "video/mp4")
			if err != nil {
				s.logger.Warn("Failed to migrate video",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
			} else {
				newVideo = url
			}
		}
		if newThumb == "" && newVideo == "" {
			return nil
		}
		if err := s.posts.SetMediaURLs(ctx, post.Shortcode, newVideo, newThumb); err != nil {
			s.logger.Warn("Failed to update media URLs",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
			return nil
		}
		if err := s.posts.UpdateCounts(ctx, post.Shortcode,
			detail.ViewCount, detail.LikeCount, detail.CommentCount); err != nil {
			s.logger.Warn("Failed to update counts",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
		}
		migrated++
		return nil
	})
	if err != nil {
		return migrated, err
	}

	s.logger.Info("Media URL migration finished",
		zap.String("username", username),
		zap.Int("migrated", migrated))
	return migrated, nil
}

// RefreshCounts re-reads engagement counters for an account's most recent
// stored reels.
func (s *Sync) RefreshCounts(ctx context.Context, username string, limit int) (updated int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.refresh_counts")
	defer span.End()

	if username == "" {
		return 0, fmt.Errorf("username is required")
	}
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, fmt.Errorf("%s: %w", username, ErrUnknownAccount)
	}
	if limit <= 0 {
		limit = 50
	}

	posts, err := s.posts.ListByUser(ctx, account.UserID, limit, 0)
	if err != nil {
		return 0, err
	}

	for _, post := range posts {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}
		detail, err := s.source.GetClipDetail(ctx, post.Shortcode)
		if err != nil {
			if errors.Is(err, instagram.ErrNotFound) {
				s.logger.Info("Reel gone upstream", zap.String("shortcode", post.Shortcode))
			} else {
				s.logger.Warn("Failed to fetch reel detail",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
			}
			continue
		}
		if err := s.posts.UpdateCounts(ctx, post.Shortcode,
			detail.ViewCount, detail.LikeCount, detail.CommentCount); err != nil {
			s.logger.Warn("Failed to update counts",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
			continue
		}
		updated++
	}

	s.logger.Info("Count refresh finished",
		zap.String("username", username),
		zap.Int("updated", updated))
	return updated, nil
}

// ReindexAccount pushes an account's stored reels into the search index,
// skipping ones already present unless force is set.
func (s *Sync) ReindexAccount(ctx context.Context, username string, force bool) (indexed, skipped int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.reindex_account")
	defer span.End()

	if s.vector == nil {
		return 0, 0, fmt.Errorf("vector index is not configured")
	}
	if username == "" {
		return 0, 0, fmt.Errorf("username is required")
	}
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return 0, 0, err
	}
	if account == nil {
		return 0, 0, fmt.Errorf("%s: %w", username, ErrUnknownAccount)
	}

	err = s.posts.ForEachPost(ctx, account.UserID, 100, func(post *models.Post) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !force {
			present, err := s.vector.Exists(ctx, post.Shortcode)
			if err != nil {
				return fmt.Errorf("failed to check index for %s: %w", post.Shortcode, err)
			}
			if present {
				skipped++
				return nil
			}
		}
		ok, err := s.vector.UpsertPost(ctx, post, account)
		if err != nil {
			s.logger.Warn("Failed to index reel",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
			return nil
		}
		if ok {
			indexed++
		} else {
			skipped++
		}
		return nil
	})
	if err != nil {
		return indexed, skipped, err
	}

	s.advanceStatus(ctx, account, models.StatusIndexed, s.logger)
	s.logger.Info("Reindex finished",
		zap.String("username", username),
		zap.Int("indexed", indexed),
		zap.Int("skipped", skipped))
	return indexed, skipped, nil
}
