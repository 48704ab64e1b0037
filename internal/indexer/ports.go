package indexer

import (
	"context"
	"time"

	"github.com/drissea/reelsync/internal/instagram"
	"github.com/drissea/reelsync/internal/models"
)

// SourceClient is the slice of the upstream API the sync pipeline consumes.
type SourceClient interface {
	ResolveProfile(ctx context.Context, username string) (*instagram.Profile, error)
	ListClips(ctx context.Context, userID string, pageSize int, cursor string) (*instagram.ClipPage, error)
	GetClipDetail(ctx context.Context, shortcode string) (*instagram.ClipDetail, error)
}

// AccountStore persists creator accounts.
type AccountStore interface {
	GetByID(ctx context.Context, userID string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Upsert(ctx context.Context, account *models.Account) error
	UpdateStatus(ctx context.Context, userID string, status models.AccountStatus) error
}

// PostStore persists reels.
type PostStore interface {
	GetByShortcode(ctx context.Context, shortcode string) (*models.Post, error)
	Exists(ctx context.Context, shortcode string) (bool, error)
	Create(ctx context.Context, post *models.Post) error
	MergeUpdate(ctx context.Context, post *models.Post) error
	UpdateCounts(ctx context.Context, shortcode string, views, likes, comments int64) error
	SetTranscription(ctx context.Context, shortcode, text string) error
	SetMediaURLs(ctx context.Context, shortcode, videoURL, thumbnailURL string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error)
	ListUntranscribed(ctx context.Context, userID string, limit int) ([]*models.Post, error)
	ForEachPost(ctx context.Context, userID string, batchSize int, fn func(*models.Post) error) error
}

// MediaStore mirrors upstream media into durable storage.
type MediaStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	PutIfAbsent(ctx context.Context, sourceURL, key, contentType string) (string, error)
}

// VectorIndex holds the searchable representation of reels.
type VectorIndex interface {
	UpsertPost(ctx context.Context, post *models.Post, account *models.Account) (bool, error)
	Exists(ctx context.Context, shortcode string) (bool, error)
}

// Enricher attaches transcripts to reels.
type Enricher interface {
	Enrich(ctx context.Context, post *models.Post) (bool, error)
	EnrichAll(ctx context.Context, posts []*models.Post) (ok, failed int)
}

// SyncLocker guards one sync per account across processes.
type SyncLocker interface {
	AcquireSyncLock(userID string, ttl time.Duration) (bool, error)
	ReleaseSyncLock(userID string) error
}

// Deps bundles the collaborators a Sync needs. Media, Vector, Enricher and
// Locker may be nil when the matching integration is not configured.
type Deps struct {
	Source   SourceClient
	Accounts AccountStore
	Posts    PostStore
	Media    MediaStore
	Vector   VectorIndex
	Enricher Enricher
	Locker   SyncLocker
}
