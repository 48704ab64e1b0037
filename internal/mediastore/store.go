package mediastore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/drissea/reelsync/pkg/config"
	"github.com/drissea/reelsync/pkg/telemetry"
)

// Store mirrors upstream media into an S3-compatible bucket fronted by a
// public CDN. Objects are addressed by deterministic keys, so the same media
// always lands on the same object and re-uploads become head checks.
type Store struct {
	client  *minio.Client
	bucket  string
	cdnBase string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a media store backed by the configured bucket.
func New(cfg *config.MediaConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" {
		return nil, fmt.Errorf("media store endpoint and credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("media store bucket is required")
	}

	// The endpoint is configured as a full URL; the client wants host only.
	endpoint := cfg.Endpoint
	secure := true
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme != "http"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	downloadTimeout := cfg.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = 60 * time.Second
	}

	logger = logger.With(zap.String("component", "media-store"))
	logger.Info("Media store initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("cdn", cfg.CDNBaseURL))

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		cdnBase: strings.TrimSuffix(cfg.CDNBaseURL, "/"),
		http:    &http.Client{Timeout: downloadTimeout},
		logger:  logger,
	}, nil
}

// Exists reports whether an object is already stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}

// PutIfAbsent stores the media behind sourceURL under key unless an object
// with that key already exists, and returns the public CDN URL either way.
// The download is streamed straight into the upload.
func (s *Store) PutIfAbsent(ctx context.Context, sourceURL, key, contentType string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "mediastore.put_if_absent")
	defer span.End()

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return s.PublicURL(key), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid source url: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source download returned status %d", resp.StatusCode)
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, resp.Body, resp.ContentLength,
		minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug("Uploaded media object", zap.String("key", key))
	return s.PublicURL(key), nil
}

// PublicURL returns the CDN-facing URL for a stored object.
func (s *Store) PublicURL(key string) string {
	return s.cdnBase + "/" + key
}
