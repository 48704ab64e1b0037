package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drissea/reelsync/internal/app"
	"github.com/drissea/reelsync/internal/indexer"
	"github.com/drissea/reelsync/pkg/config"
	"github.com/drissea/reelsync/pkg/logging"
	"github.com/drissea/reelsync/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		mode              string
		maxPosts          int
		maxAgeDays        int
		workers           int
		transcribeBacklog bool
		migrateURLs       bool
		refreshCounts     bool
		reindex           bool
		force             bool
	)

	flag.StringVar(&mode, "mode", "auto", "Sync mode: auto, full or incremental")
	flag.IntVar(&maxPosts, "max-posts", 0, "Stop after this many reels per account (0 = configured default)")
	flag.IntVar(&maxAgeDays, "max-age-days", 0, "Full sync age cutoff in days (0 = configured default)")
	flag.IntVar(&workers, "workers", 0, "Concurrent account syncs (0 = configured default)")
	flag.BoolVar(&transcribeBacklog, "transcribe-backlog", false, "Transcribe stored reels that are missing transcripts instead of syncing")
	flag.BoolVar(&migrateURLs, "migrate-urls", false, "Re-mirror upstream-hosted media URLs instead of syncing")
	flag.BoolVar(&refreshCounts, "refresh-counts", false, "Refresh engagement counts for stored reels instead of syncing")
	flag.BoolVar(&reindex, "reindex", false, "Backfill the vector index from stored reels instead of syncing")
	flag.BoolVar(&force, "force", false, "With -reindex, rewrite entries that already exist")
	flag.Parse()

	usernames := flag.Args()

	opts := indexer.Options{MaxPosts: maxPosts, MaxAgeDays: maxAgeDays}
	switch mode {
	case "auto":
		opts.Mode = indexer.ModeAuto
	case "full":
		opts.Mode = indexer.ModeFull
	case "incremental":
		opts.Mode = indexer.ModeIncremental
	default:
		return fmt.Errorf("unknown sync mode %q", mode)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if workers > 0 {
		cfg.Sync.MaxWorkers = workers
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Reelsync")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer telemetryShutdown()

	// Build the application graph
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	// Cancel in-flight work on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Interrupt received, stopping...")
		cancel()
	}()

	switch {
	case transcribeBacklog:
		return runTranscribeBacklog(ctx, application, usernames, maxPosts)
	case migrateURLs:
		return runMigrateURLs(ctx, application, usernames)
	case refreshCounts:
		return runRefreshCounts(ctx, application, usernames, maxPosts)
	case reindex:
		return runReindex(ctx, application, usernames, force)
	}

	if len(usernames) == 0 {
		return fmt.Errorf("no usernames given")
	}

	results := application.Sync.SyncAccounts(ctx, usernames, opts)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("%-24s ERROR %v\n", res.Username, res.Err)
			continue
		}
		s := res.Summary
		fmt.Printf("%-24s %-11s fetched=%d new=%d skipped=%d enriched=%d indexed=%d in %s\n",
			s.Username, s.Mode, s.Fetched, s.New, s.Skipped, s.EnrichedOK, s.Indexed,
			s.Duration.Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(results))
	}
	return nil
}

func runTranscribeBacklog(ctx context.Context, application *app.App, usernames []string, limit int) error {
	if len(usernames) == 0 {
		return fmt.Errorf("-transcribe-backlog needs at least one username")
	}
	for _, username := range usernames {
		ok, failed, err := application.Sync.TranscribeBacklog(ctx, username, limit)
		if err != nil {
			return fmt.Errorf("%s: %w", username, err)
		}
		fmt.Printf("%-24s transcribed=%d failed=%d\n", username, ok, failed)
	}
	return nil
}

func runMigrateURLs(ctx context.Context, application *app.App, usernames []string) error {
	// With no usernames the migration walks every stored reel
	if len(usernames) == 0 {
		usernames = []string{""}
	}
	for _, username := range usernames {
		migrated, err := application.Sync.MigrateMediaURLs(ctx, username)
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(username), err)
		}
		fmt.Printf("%-24s migrated=%d\n", displayName(username), migrated)
	}
	return nil
}

func runRefreshCounts(ctx context.Context, application *app.App, usernames []string, limit int) error {
	if len(usernames) == 0 {
		return fmt.Errorf("-refresh-counts needs at least one username")
	}
	for _, username := range usernames {
		updated, err := application.Sync.RefreshCounts(ctx, username, limit)
		if err != nil {
			return fmt.Errorf("%s: %w", username, err)
		}
		fmt.Printf("%-24s refreshed=%d\n", username, updated)
	}
	return nil
}

func runReindex(ctx context.Context, application *app.App, usernames []string, force bool) error {
	if len(usernames) == 0 {
		return fmt.Errorf("-reindex needs at least one username")
	}
	for _, username := range usernames {
		indexed, skipped, err := application.Sync.ReindexAccount(ctx, username, force)
		if err != nil {
			return fmt.Errorf("%s: %w", username, err)
		}
		fmt.Printf("%-24s indexed=%d skipped=%d\n", username, indexed, skipped)
	}
	return nil
}

func displayName(username string) string {
	if username == "" {
		return "(all)"
	}
	return username
}
