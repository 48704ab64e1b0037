package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/drissea/reelsync/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AccountRepository provides account-related database operations
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// GetByID retrieves an account by its upstream user ID
func (r *AccountRepository) GetByID(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByUsername retrieves an account by username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// Upsert inserts the account or refreshes its profile fields when the user ID
// is already known. Status is only written on insert so sync progress is never
// reset by a profile refresh.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "full_name", "bio", "category",
			"follower_count", "following_count", "media_count",
			"profile_pic_url", "public_email", "updated_at",
		}),
	}).Create(account).Error
}

// UpdateStatus moves an account to the given sync status
func (r *AccountRepository) UpdateStatus(ctx context.Context, userID string, status models.AccountStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ?", userID).
		Update("status", status).Error
}

// PostRepository provides reel-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByShortcode retrieves a reel by shortcode
func (r *PostRepository) GetByShortcode(ctx context.Context, shortcode string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("shortcode = ?", shortcode).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Exists reports whether a reel with the given shortcode is stored
func (r *PostRepository) Exists(ctx context.Context, shortcode string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("shortcode = ?", shortcode).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create creates a new reel
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// MergeUpdate refreshes the upstream-derived fields of an existing reel.
// Enrichment columns (transcription, framewatch) are left untouched.
func (r *PostRepository) MergeUpdate(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("shortcode = ?", post.Shortcode).
		Updates(map[string]interface{}{
			"media_id":           post.MediaID,
			"user_id":            post.UserID,
			"username":           post.Username,
			"caption":            post.Caption,
			"video_url":          post.VideoURL,
			"thumbnail_url":      post.ThumbnailURL,
			"permalink":          post.Permalink,
			"view_count":         post.ViewCount,
			"like_count":         post.LikeCount,
			"comment_count":      post.CommentCount,
			"play_count":         post.PlayCount,
			"taken_at":           post.TakenAt,
			"audio_type":         post.AudioType,
			"audio_title":        post.AudioTitle,
			"audio_artist":       post.AudioArtist,
			"audio_id":           post.AudioID,
			"is_original_audio":  post.IsOriginalAudio,
			"collaborators":      post.Collaborators,
			"has_collaborators":  post.HasCollaborators,
			"collaborator_count": post.CollaboratorCount,
		}).Error
}

// UpdateCounts refreshes only the engagement counters of a reel. The view and
// play counters track the same upstream number.
func (r *PostRepository) UpdateCounts(ctx context.Context, shortcode string, views, likes, comments int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("shortcode = ?", shortcode).
		Updates(map[string]interface{}{
			"view_count":    views,
			"play_count":    views,
			"like_count":    likes,
			"comment_count": comments,
		}).Error
}

// SetTranscription stores a finished transcript for a reel
func (r *PostRepository) SetTranscription(ctx context.Context, shortcode, text string) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("shortcode = ?", shortcode).
		Updates(map[string]interface{}{
			"transcription":  text,
			"is_transcribed": true,
		}).Error
}

// SetMediaURLs rewrites the stored media URLs of a reel. Empty values are
// skipped so a partial migration never blanks a column.
func (r *PostRepository) SetMediaURLs(ctx context.Context, shortcode, videoURL, thumbnailURL string) error {
	updates := map[string]interface{}{}
	if videoURL != "" {
		updates["video_url"] = videoURL
	}
	if thumbnailURL != "" {
		updates["thumbnail_url"] = thumbnailURL
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("shortcode = ?", shortcode).
		Updates(updates).Error
}

// ListByUser retrieves a page of reels for one account, newest first
func (r *PostRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("taken_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListUntranscribed retrieves reels with original audio that still lack a
// transcript. An empty userID selects across all accounts.
func (r *PostRepository) ListUntranscribed(ctx context.Context, userID string, limit int) ([]*models.Post, error) {
	query := r.db.WithContext(ctx).
		Where("is_transcribed = ? AND is_original_audio = ?", false, true)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var posts []*models.Post
	if err := query.Order("taken_at DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ForEachPost streams reels in batches through fn. An empty userID walks the
// whole table. Returning an error from fn stops the walk.
func (r *PostRepository) ForEachPost(ctx context.Context, userID string, batchSize int, fn func(*models.Post) error) error {
	query := r.db.WithContext(ctx).Model(&models.Post{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var batch []*models.Post
	return query.FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, post := range batch {
			if err := fn(post); err != nil {
				return err
			}
		}
		return nil
	}).Error
}
