package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drissea/reelsync/internal/cache"
	"github.com/drissea/reelsync/internal/instagram"
	"github.com/drissea/reelsync/internal/mediastore"
	"github.com/drissea/reelsync/internal/models"
	"github.com/drissea/reelsync/pkg/config"
	"github.com/drissea/reelsync/pkg/logging"
	"github.com/drissea/reelsync/pkg/telemetry"
)

// Mode selects how much history a sync walks.
type Mode string

const (
	// ModeAuto picks full for accounts never fully synced, incremental after.
	ModeAuto Mode = "auto"
	// ModeFull walks the whole history back to the age cutoff.
	ModeFull Mode = "full"
	// ModeIncremental stops at the first already-stored reel.
	ModeIncremental Mode = "incremental"
)

// Options tune one sync run. Zero values fall back to configured defaults.
type Options struct {
	Mode       Mode
	MaxPosts   int
	MaxAgeDays int
}

// Summary reports what one account sync did.
type Summary struct {
	Username   string        `json:"username"`
	UserID     string        `json:"user_id"`
	Mode       Mode          `json:"mode"`
	Fetched    int           `json:"fetched"`
	New        int           `json:"new"`
	Skipped    int           `json:"skipped"`
	Dropped    int           `json:"dropped"`
	EnrichedOK int           `json:"enriched_ok"`
	EnrichFail int           `json:"enrich_failed"`
	Persisted  int           `json:"persisted"`
	Indexed    int           `json:"indexed"`
	Duration   time.Duration `json:"duration"`
}

var (
	// ErrSyncInProgress is returned when an account is already being synced
	ErrSyncInProgress = errors.New("account sync already in progress")
	// ErrUnknownAccount is returned for usernames that were never synced
	ErrUnknownAccount = errors.New("account is not tracked")
)

// Sync coordinates account synchronization end to end: profile lookup, clip
// fetch, media mirroring, transcript enrichment, persistence and search
// indexing.
type Sync struct {
	cfg      *config.Config
	source   SourceClient
	accounts AccountStore
	posts    PostStore
	media    MediaStore
	vector   VectorIndex
	enricher Enricher
	locker   SyncLocker
	logger   *zap.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// NewSync creates a new sync manager
func NewSync(cfg *config.Config, deps Deps) *Sync {
	return &Sync{
		cfg:      cfg,
		source:   deps.Source,
		accounts: deps.Accounts,
		posts:    deps.Posts,
		media:    deps.Media,
		vector:   deps.Vector,
		enricher: deps.Enricher,
		locker:   deps.Locker,
		logger:   logging.GetLogger().With(zap.String("component", "indexer")),
		running:  make(map[string]struct{}),
	}
}

// SyncAccount runs the pipeline for one account and reports what changed.
// Concurrent syncs of the same account are rejected with ErrSyncInProgress.
func (s *Sync) SyncAccount(ctx context.Context, username string, opts Options) (*Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.sync_account")
	defer span.End()

	start := time.Now()
	logger := s.logger.With(zap.String("username", username))

	profile, err := s.source.ResolveProfile(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", username, err)
	}

	if !s.tryLock(profile.UserID) {
		return nil, fmt.Errorf("%s: %w", username, ErrSyncInProgress)
	}
	defer s.unlock(profile.UserID)

	existing, err := s.accounts.GetByID(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	account := accountFromProfile(profile)
	s.mirrorAvatar(ctx, account, logger)
	if existing != nil {
		account.Status = existing.Status
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	summary := &Summary{
		Username: profile.Username,
		UserID:   profile.UserID,
		Mode:     s.resolveMode(opts.Mode, existing),
	}
	logger.Info("Starting account sync",
		zap.String("user_id", profile.UserID),
		zap.String("mode", string(summary.Mode)),
		zap.Int64("media_count", profile.MediaCount))

	var posts []models.Post
	if summary.Mode == ModeFull {
		posts, err = s.fetchAll(ctx, profile.UserID, opts, summary, logger)
	} else {
		posts, err = s.fetchNew(ctx, profile.UserID, opts, summary, logger)
	}
	if err != nil {
		return nil, err
	}

	fresh, err := s.partition(ctx, posts, summary, logger)
	if err != nil {
		return nil, err
	}

	s.dedupeMedia(ctx, fresh, logger)
	s.enrich(ctx, fresh, summary, logger)
	persisted := s.persist(ctx, fresh, summary, logger)
	s.index(ctx, persisted, account, summary, logger)

	if err := ctx.Err(); err != nil {
		summary.Duration = time.Since(start)
		return summary, err
	}

	if summary.Mode == ModeFull && summary.Persisted+summary.Skipped > 0 {
		s.advanceStatus(ctx, account, models.StatusExtracted, logger)
		if s.vector != nil {
			s.advanceStatus(ctx, account, models.StatusIndexed, logger)
		}
	}

	summary.Duration = time.Since(start)
	logger.Info("Account sync finished",
		zap.String("mode", string(summary.Mode)),
		zap.Int("fetched", summary.Fetched),
		zap.Int("new", summary.New),
		zap.Int("skipped", summary.Skipped),
		zap.Int("persisted", summary.Persisted),
		zap.Int("indexed", summary.Indexed),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// Result pairs an account with its sync outcome.
type Result struct {
	Username string
	Summary  *Summary
	Err      error
}

// SyncAccounts syncs several accounts through a bounded worker pool. One
// failing account does not stop the others.
func (s *Sync) SyncAccounts(ctx context.Context, usernames []string, opts Options) []Result {
	workers := s.cfg.Sync.MaxWorkers
	if workers <= 0 {
		workers = 3
	}

	results := make([]Result, len(usernames))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, username := range usernames {
		i, username := i, username
		g.Go(func() error {
			summary, err := s.SyncAccount(ctx, username, opts)
			if err != nil {
				s.logger.Error("Account sync failed",
					zap.String("username", username),
					zap.Error(err))
			}
			results[i] = Result{Username: username, Summary: summary, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// IsRunning reports whether a sync currently holds the account's lock.
func (s *Sync) IsRunning(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[userID]
	return ok
}

// tryLock claims the in-process slot for an account, then the distributed
// lock when one is configured. A lost Redis is tolerated; the in-process
// lock still protects this instance.
func (s *Sync) tryLock(userID string) bool {
	s.mu.Lock()
	if _, held := s.running[userID]; held {
		s.mu.Unlock()
		return false
	}
	s.running[userID] = struct{}{}
	s.mu.Unlock()

	if s.locker != nil {
		ok, err := s.locker.AcquireSyncLock(userID, s.cfg.Sync.LockTTL)
		if err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
			s.logger.Warn("Distributed sync lock unavailable", zap.Error(err))
			return true
		}
		if err == nil && !ok {
			s.mu.Lock()
			delete(s.running, userID)
			s.mu.Unlock()
			return false
		}
	}
	return true
}

func (s *Sync) unlock(userID string) {
	if s.locker != nil {
		if err := s.locker.ReleaseSyncLock(userID); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
			s.logger.Warn("Failed to release sync lock",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	s.mu.Lock()
	delete(s.running, userID)
	s.mu.Unlock()
}

func (s *Sync) resolveMode(mode Mode, existing *models.Account) Mode {
	if mode == ModeFull || mode == ModeIncremental {
		return mode
	}
	if existing == nil || existing.Status == models.StatusInitial {
		return ModeFull
	}
	return ModeIncremental
}

func (s *Sync) maxPosts(opts Options) int {
	if opts.MaxPosts > 0 {
		return opts.MaxPosts
	}
	return s.cfg.Sync.MaxPosts
}

// cutoff returns the oldest post date a full sync still accepts. The zero
// time disables age filtering.
func (s *Sync) cutoff(opts Options) time.Time {
	days := opts.MaxAgeDays
	if days <= 0 {
		days = s.cfg.Sync.MaxAgeDays
	}
	if days <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

// fetchAll walks the clip history newest-first until the age cutoff, the
// post cap, or the end of the listing.
func (s *Sync) fetchAll(ctx context.Context, userID string, opts Options, summary *Summary, logger *zap.Logger) ([]models.Post, error) {
	cutoff := s.cutoff(opts)
	limit := s.maxPosts(opts)

	var collected []models.Post
	cursor := ""
	for {
		page, err := s.source.ListClips(ctx, userID, s.cfg.Instagram.PageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list clips: %w", err)
		}
		summary.Fetched += len(page.Posts)

		pastCutoff := 0
		for i := range page.Posts {
			post := page.Posts[i]
			if !cutoff.IsZero() && !post.TakenAt.IsZero() && post.TakenAt.Before(cutoff) {
				pastCutoff++
				continue
			}
			collected = append(collected, post)
			if limit > 0 && len(collected) >= limit {
				logger.Info("Reached post cap", zap.Int("cap", limit))
				return collected, nil
			}
		}

		// A page of nothing but old posts means the rest of the history is
		// older still.
		if len(page.Posts) > 0 && pastCutoff == len(page.Posts) {
			logger.Debug("Entire page past the age cutoff, stopping")
			return collected, nil
		}
		if !page.HasMore || page.NextCursor == "" {
			return collected, nil
		}
		cursor = page.NextCursor
	}
}

// fetchNew walks newest-first and stops at the first reel already stored. No
// further pages are requested past that boundary.
func (s *Sync) fetchNew(ctx context.Context, userID string, opts Options, summary *Summary, logger *zap.Logger) ([]models.Post, error) {
	limit := s.maxPosts(opts)

	var collected []models.Post
	cursor := ""
	for {
		page, err := s.source.ListClips(ctx, userID, s.cfg.Instagram.PageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list clips: %w", err)
		}
		summary.Fetched += len(page.Posts)

		for i := range page.Posts {
			post := page.Posts[i]
			if post.Shortcode != "" {
				known, err := s.posts.Exists(ctx, post.Shortcode)
				if err != nil {
					return nil, fmt.Errorf("failed to check %s: %w", post.Shortcode, err)
				}
				if known {
					logger.Debug("Hit known reel, stopping",
						zap.String("shortcode", post.Shortcode))
					return collected, nil
				}
			}
			collected = append(collected, post)
			if limit > 0 && len(collected) >= limit {
				return collected, nil
			}
		}

		if !page.HasMore || page.NextCursor == "" {
			return collected, nil
		}
		cursor = page.NextCursor
	}
}

// partition validates the fetched batch and separates reels that are already
// stored. In a full sync, known reels get their upstream-derived fields
// refreshed in place instead of being re-created.
func (s *Sync) partition(ctx context.Context, posts []models.Post, summary *Summary, logger *zap.Logger) ([]*models.Post, error) {
	fresh := make([]*models.Post, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))

	for i := range posts {
		post := &posts[i]
		if post.Shortcode == "" {
			summary.Dropped++
			logger.Warn("Dropping reel without shortcode",
				zap.String("media_id", post.MediaID))
			continue
		}
		// Pinned reels repeat across pages.
		if _, dup := seen[post.Shortcode]; dup {
			continue
		}
		seen[post.Shortcode] = struct{}{}

		if summary.Mode == ModeFull {
			known, err := s.posts.Exists(ctx, post.Shortcode)
			if err != nil {
				return nil, fmt.Errorf("failed to check %s: %w", post.Shortcode, err)
			}
			if known {
				summary.Skipped++
				if err := s.posts.MergeUpdate(ctx, post); err != nil {
					logger.Warn("Failed to refresh reel",
						zap.String("shortcode", post.Shortcode),
						zap.Error(err))
				}
				continue
			}
		}
		fresh = append(fresh, post)
	}

	summary.New = len(fresh)
	return fresh, nil
}

// dedupeMedia rehosts thumbnails (and videos when enabled) for reels about
// to be stored. A failed mirror keeps the upstream URL so the reel stays
// usable until the next migration sweep.
func (s *Sync) dedupeMedia(ctx context.Context, posts []*models.Post, logger *zap.Logger) {
	if s.media == nil {
		return
	}
	for _, post := range posts {
		if ctx.Err() != nil {
			return
		}
		if post.ThumbnailURL != "" && mediastore.IsUpstreamHosted(post.ThumbnailURL) {
			url, err := s.media.PutIfAbsent(ctx, post.ThumbnailURL,
				mediastore.ThumbnailKey(post.Shortcode), "image/jpeg")
			if err != nil {
				logger.Warn("Failed to mirror thumbnail",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
			} else {
				post.ThumbnailURL = url
			}
		}
		if s.cfg.Media.UploadVideos && post.VideoURL != "" && mediastore.IsUpstreamHosted(post.VideoURL) {
			url, err := s.media.PutIfAbsent(ctx, post.VideoURL,
				mediastore.VideoKey(post.Shortcode), "video/mp4")
			if err != nil {
				logger.Warn("Failed to mirror video",
					zap.String("shortcode", post.Shortcode),
					zap.Error(err))
			} else {
				post.VideoURL = url
			}
		}
	}
}

func (s *Sync) enrich(ctx context.Context, posts []*models.Post, summary *Summary, logger *zap.Logger) {
	if s.enricher == nil || len(posts) == 0 {
		return
	}
	ok, failed := s.enricher.EnrichAll(ctx, posts)
	summary.EnrichedOK = ok
	summary.EnrichFail = failed
	if failed > 0 {
		logger.Warn("Some reels could not be transcribed", zap.Int("failed", failed))
	}
}

// persist stores the new reels one by one; a single bad row never sinks the
// batch.
func (s *Sync) persist(ctx context.Context, posts []*models.Post, summary *Summary, logger *zap.Logger) []*models.Post {
	persisted := make([]*models.Post, 0, len(posts))
	for _, post := range posts {
		if ctx.Err() != nil {
			break
		}
		if err := s.posts.Create(ctx, post); err != nil {
			logger.Warn("Failed to store reel",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
			continue
		}
		persisted = append(persisted, post)
	}
	summary.Persisted = len(persisted)
	return persisted
}

func (s *Sync) index(ctx context.Context, posts []*models.Post, account *models.Account, summary *Summary, logger *zap.Logger) {
	if s.vector == nil {
		return
	}
	for _, post := range posts {
		if ctx.Err() != nil {
			return
		}
		indexed, err := s.vector.UpsertPost(ctx, post, account)
		if err != nil {
			logger.Warn("Failed to index reel",
				zap.String("shortcode", post.Shortcode),
				zap.Error(err))
			continue
		}
		if indexed {
			summary.Indexed++
		}
	}
}

// advanceStatus is the only place sync moves an account's status forward.
// Regressions and repeats are filtered by the status ranking.
func (s *Sync) advanceStatus(ctx context.Context, account *models.Account, next models.AccountStatus, logger *zap.Logger) {
	if !account.Status.CanAdvance(next) {
		return
	}
	if err := s.accounts.UpdateStatus(ctx, account.UserID, next); err != nil {
		logger.Warn("Failed to advance account status",
			zap.String("from", string(account.Status)),
			zap.String("to", string(next)),
			zap.Error(err))
		return
	}
	account.Status = next
}

// mirrorAvatar rehosts the profile picture. Failures leave the upstream URL
// in place.
func (s *Sync) mirrorAvatar(ctx context.Context, account *models.Account, logger *zap.Logger) {
	if s.media == nil || account.ProfilePicURL == "" || !mediastore.IsUpstreamHosted(account.ProfilePicURL) {
		return
	}
	key := mediastore.ProfileKey(account.UserID, account.ProfilePicURL)
	contentType := "image/" + mediastore.ExtFromURL(account.ProfilePicURL)
	url, err := s.media.PutIfAbsent(ctx, account.ProfilePicURL, key, contentType)
	if err != nil {
		logger.Warn("Failed to mirror profile picture", zap.Error(err))
		return
	}
	account.ProfilePicURL = url
}

func accountFromProfile(p *instagram.Profile) *models.Account {
	return &models.Account{
		UserID:         p.UserID,
		Username:       p.Username,
		FullName:       p.FullName,
		Biography:      p.Biography,
		Category:       p.Category,
		FollowerCount:  p.FollowerCount,
		FollowingCount: p.FollowingCount,
		MediaCount:     p.MediaCount,
		ProfilePicURL:  p.ProfilePicURL,
		PublicEmail:    p.PublicEmail,
		Status:         models.StatusInitial,
	}
}
