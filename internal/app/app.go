package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/drissea/reelsync/internal/cache"
	"github.com/drissea/reelsync/internal/db"
	"github.com/drissea/reelsync/internal/enrich"
	"github.com/drissea/reelsync/internal/indexer"
	"github.com/drissea/reelsync/internal/instagram"
	"github.com/drissea/reelsync/internal/mediastore"
	"github.com/drissea/reelsync/internal/vecindex"
	"github.com/drissea/reelsync/pkg/config"
	"github.com/drissea/reelsync/pkg/logging"
)

// App wires the shared dependency graph used by both binaries. Optional
// integrations stay nil when their configuration is absent.
type App struct {
	Config   *config.Config
	DB       *db.DB
	Cache    *cache.Cache
	Client   *instagram.Client
	Media    *mediastore.Store
	Vector   *vecindex.Index
	Enricher *enrich.Pipeline
	Accounts *db.AccountRepository
	Posts    *db.PostRepository
	Sync     *indexer.Sync

	logger *zap.Logger
}

// New builds the application graph from configuration. The database and
// upstream client are required; media store, vector index, transcription and
// Redis all degrade to disabled when unconfigured.
func New(cfg *config.Config) (*App, error) {
	logger := logging.GetLogger()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		redisCache = nil
	}

	client, err := instagram.New(&cfg.Instagram, logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}

	app := &App{
		Config: cfg,
		DB:     database,
		Cache:  redisCache,
		Client: client,
		logger: logger,
	}

	if cfg.Media.Enabled {
		app.Media, err = mediastore.New(&cfg.Media, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create media store: %w", err)
		}
	} else {
		logger.Info("Media store disabled, keeping upstream URLs")
	}

	if cfg.Vector.Enabled {
		app.Vector, err = vecindex.New(&cfg.Vector, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create vector index: %w", err)
		}
	} else {
		logger.Info("Vector index disabled")
	}

	if cfg.Transcribe.Enabled {
		transcriber, err := enrich.NewGroqTranscriber(&cfg.Transcribe, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
		app.Enricher = enrich.NewPipeline(transcriber, cfg.Media.DownloadTimeout, logger)
	} else {
		logger.Info("Transcription disabled")
	}

	repo := db.NewRepository(database.DB)
	app.Accounts = db.NewAccountRepository(repo)
	app.Posts = db.NewPostRepository(repo)

	// Interface fields are only assigned from non-nil concrete values so the
	// orchestrator's nil checks keep working.
	deps := indexer.Deps{
		Source:   client,
		Accounts: app.Accounts,
		Posts:    app.Posts,
	}
	if app.Media != nil {
		deps.Media = app.Media
	}
	if app.Vector != nil {
		deps.Vector = app.Vector
	}
	if app.Enricher != nil {
		deps.Enricher = app.Enricher
	}
	if redisCache != nil {
		deps.Locker = redisCache
	}
	app.Sync = indexer.NewSync(cfg, deps)

	return app, nil
}

// Close releases held connections
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn("Failed to close database connection", zap.Error(err))
		}
	}
}
