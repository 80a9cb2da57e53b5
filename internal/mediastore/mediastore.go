// Package mediastore provides tiered local-disk + S3 storage for VOX
// recording segments and aircraft photos, with local-cache pruning and an
// upload reconciler for crash recovery.
package mediastore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the S3 backing tier. An empty Bucket disables S3 and
// Store falls back to local-disk-only.
type Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Prefix         string
	PresignExpiry  time.Duration
	LocalCache     bool
	CacheRetention time.Duration
	CacheMaxGB     int
}

func (c Config) Enabled() bool { return c.Bucket != "" }

// Store abstracts media storage backends (local disk, S3, or tiered).
type Store interface {
	// Save stores data under key. Key format: {kind}/{feedOrHex}/{filename},
	// e.g. "recordings/feed1/feed1_1700000000000.wav" or "photos/ADFEB4/1.jpg".
	Save(ctx context.Context, key string, data []byte, contentType string) error
	LocalPath(key string) string
	URL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) bool
	Type() string
}

// BackgroundService is a stoppable background goroutine.
type BackgroundService interface {
	Start()
	Stop()
}

// New builds a Store from cfg. Returns the store plus any background
// services (cache pruner, upload reconciler) the caller must Start/Stop.
func New(cfg Config, mediaDir string, log zerolog.Logger) (Store, []BackgroundService, error) {
	if !cfg.Enabled() {
		return NewLocalStore(mediaDir), nil, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("s3 init failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("s3 startup check failed (bucket=%q endpoint=%q): %w", cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("s3 media store connection verified")

	if !cfg.LocalCache {
		return s3store, nil, nil
	}

	local := NewLocalStore(mediaDir)
	tiered := NewTieredStore(s3store, local, log)

	var services []BackgroundService
	if cfg.CacheRetention > 0 || cfg.CacheMaxGB > 0 {
		services = append(services, NewCachePruner(mediaDir, cfg.CacheRetention, cfg.CacheMaxGB, s3store, log))
	}
	services = append(services, NewUploadReconciler(mediaDir, s3store, log))

	return tiered, services, nil
}
