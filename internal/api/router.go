package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/cache"
	"github.com/drissea/reelsync/internal/db"
	"github.com/drissea/reelsync/internal/indexer"
	"github.com/drissea/reelsync/internal/instagram"
	"github.com/drissea/reelsync/internal/models"
	"github.com/drissea/reelsync/internal/vecindex"
	"github.com/drissea/reelsync/pkg/logging"
)

// AccountReader reads stored creator accounts.
type AccountReader interface {
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
}

// PostReader reads stored reels.
type PostReader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error)
}

// SyncRunner starts account syncs and answers lock queries.
type SyncRunner interface {
	SyncAccount(ctx context.Context, username string, opts indexer.Options) (*indexer.Summary, error)
	IsRunning(userID string) bool
}

// Searcher runs semantic queries over indexed reels.
type Searcher interface {
	Query(ctx context.Context, text string, topK int) ([]vecindex.Match, error)
}

// SourceSearcher is the upstream search passthrough.
type SourceSearcher interface {
	SearchAccounts(ctx context.Context, query string, limit int) ([]instagram.AccountHit, error)
	SearchClips(ctx context.Context, tag string, limit int) ([]models.Post, error)
}

// Deps carries the router's collaborators. DB and Cache may be nil in tests;
// Search and Source may be nil when the matching integration is not
// configured, and their endpoints answer 503.
type Deps struct {
	DB       *db.DB
	Cache    *cache.Cache
	Accounts AccountReader
	Posts    PostReader
	Syncer   SyncRunner
	Search   Searcher
	Source   SourceSearcher
}

// Router sets up API routes
type Router struct {
	db       *db.DB
	cache    *cache.Cache
	accounts AccountReader
	posts    PostReader
	syncer   SyncRunner
	search   Searcher
	source   SourceSearcher
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	return &Router{
		db:       deps.DB,
		cache:    deps.Cache,
		accounts: deps.Accounts,
		posts:    deps.Posts,
		syncer:   deps.Syncer,
		search:   deps.Search,
		source:   deps.Source,
		logger:   logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.HEAD("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/v1")
	{
		v1.POST("/accounts/:username/sync", r.syncAccountHandler)
		v1.GET("/accounts/:username", r.getAccountHandler)
		v1.GET("/accounts/:username/reels", r.listReelsHandler)
		v1.GET("/search", r.searchHandler)
		v1.GET("/search/accounts", r.searchAccountsHandler)
		v1.GET("/search/tags/:tag/reels", r.searchTagReelsHandler)
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	if r.db != nil {
		if err := r.db.Health(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{
				"status":  "unavailable",
				"service": "reelsync-api",
			})
			return
		}
	}
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "reelsync-api",
	})
}
