package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/indexer"
	"github.com/drissea/reelsync/internal/models"
)

// syncAccountHandler kicks off a background sync for one account. The call
// returns 202 as soon as the run is scheduled; progress lands in the logs.
func (r *Router) syncAccountHandler(c *gin.Context) {
	username := normalizeUsername(c.Param("username"))
	if username == "" {
		abortWithError(c, http.StatusBadRequest, "username is required")
		return
	}

	opts, err := parseSyncOptions(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	// A known account that is mid-sync is rejected up front. Unknown accounts
	// are resolved by the run itself, which takes the same per-account lock.
	if account, err := r.accounts.GetByUsername(c.Request.Context(), username); err == nil && account != nil {
		if r.syncer.IsRunning(account.UserID) {
			abortWithError(c, http.StatusConflict, "sync already in progress")
			return
		}
	}

	go func() {
		summary, err := r.syncer.SyncAccount(context.Background(), username, opts)
		if err != nil {
			if errors.Is(err, indexer.ErrSyncInProgress) {
				r.logger.Info("Sync request lost the lock race",
					zap.String("username", username))
				return
			}
			r.logger.Error("Background sync failed",
				zap.String("username", username),
				zap.Error(err))
			return
		}
		r.logger.Info("Background sync finished",
			zap.String("username", username),
			zap.Int("new", summary.New),
			zap.Int("indexed", summary.Indexed),
			zap.Duration("duration", summary.Duration))
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "accepted",
		"username": username,
		"mode":     string(opts.Mode),
	})
}

// getAccountHandler returns the stored record for one account
func (r *Router) getAccountHandler(c *gin.Context) {
	username := normalizeUsername(c.Param("username"))

	account, err := r.accounts.GetByUsername(c.Request.Context(), username)
	if err != nil {
		r.logger.Error("Account lookup failed",
			zap.String("username", username),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "account lookup failed")
		return
	}
	if account == nil {
		abortWithError(c, http.StatusNotFound, "account not found")
		return
	}

	c.JSON(http.StatusOK, accountResponse(account))
}

// listReelsHandler returns an account's stored reels, newest first
func (r *Router) listReelsHandler(c *gin.Context) {
	username := normalizeUsername(c.Param("username"))

	account, err := r.accounts.GetByUsername(c.Request.Context(), username)
	if err != nil {
		r.logger.Error("Account lookup failed",
			zap.String("username", username),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "account lookup failed")
		return
	}
	if account == nil {
		abortWithError(c, http.StatusNotFound, "account not found")
		return
	}

	limit := parseLimit(c, 20, 100)
	offset := parseOffset(c)

	posts, err := r.posts.ListByUser(c.Request.Context(), account.UserID, limit, offset)
	if err != nil {
		r.logger.Error("Reel listing failed",
			zap.String("username", username),
			zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "reel listing failed")
		return
	}

	result := make([]map[string]interface{}, len(posts))
	for i, post := range posts {
		result[i] = reelResponse(post)
	}

	c.JSON(http.StatusOK, gin.H{
		"username": account.Username,
		"count":    len(result),
		"reels":    result,
	})
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "@")))
}

func parseSyncOptions(c *gin.Context) (indexer.Options, error) {
	opts := indexer.Options{Mode: indexer.ModeAuto}
	switch mode := c.Query("mode"); mode {
	case "", "auto":
	case "full":
		opts.Mode = indexer.ModeFull
	case "incremental":
		opts.Mode = indexer.ModeIncremental
	default:
		return opts, fmt.Errorf("unknown sync mode %q", mode)
	}
	if raw := c.Query("max_posts"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("max_posts must be a non-negative integer")
		}
		opts.MaxPosts = n
	}
	if raw := c.Query("max_age_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("max_age_days must be a non-negative integer")
		}
		opts.MaxAgeDays = n
	}
	return opts, nil
}

// parseLimit reads the limit query param, clamped to the given maximum
func parseLimit(c *gin.Context, def, max int) int {
	limit := def
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	if limit < 1 {
		limit = def
	}
	return limit
}

func parseOffset(c *gin.Context) int {
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// accountResponse shapes a stored account for API output
func accountResponse(account *models.Account) map[string]interface{} {
	return map[string]interface{}{
		"user_id":         account.UserID,
		"username":        account.Username,
		"full_name":       account.FullName,
		"bio":             account.Biography,
		"category":        account.Category,
		"follower_count":  account.FollowerCount,
		"following_count": account.FollowingCount,
		"media_count":     account.MediaCount,
		"profile_pic_url": account.ProfilePicURL,
		"public_email":    account.PublicEmail,
		"status":          string(account.Status),
		"updated_at":      account.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// reelResponse shapes a stored reel for API output
func reelResponse(post *models.Post) map[string]interface{} {
	resp := map[string]interface{}{
		"shortcode":     post.Shortcode,
		"user_id":       post.UserID,
		"username":      post.Username,
		"caption":       post.Caption,
		"video_url":     post.VideoURL,
		"thumbnail_url": post.ThumbnailURL,
		"permalink":     post.Permalink,
		"view_count":    post.ViewCount,
		"like_count":    post.LikeCount,
		"comment_count": post.CommentCount,
		"taken_at":      post.TakenAt.UTC().Format(time.RFC3339),
		"audio": map[string]interface{}{
			"type":        string(post.AudioType),
			"title":       post.AudioTitle,
			"artist":      post.AudioArtist,
			"is_original": post.IsOriginalAudio,
		},
	}
	if post.HasCollaborators {
		resp["collaborators"] = post.Collaborators
	}
	if post.IsTranscribed {
		resp["transcription"] = post.Transcription
	}
	return resp
}
