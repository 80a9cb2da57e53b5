package mediastore

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// TieredStore combines local disk (source of truth) with S3 (durable
// backup). Writes land locally first and are never blocked on S3; reads
// check local first and fall back to S3, caching on hit.
type TieredStore struct {
	s3    *S3Store
	local *LocalStore
	log   zerolog.Logger
}

func NewTieredStore(s3 *S3Store, local *LocalStore, log zerolog.Logger) *TieredStore {
	return &TieredStore{s3: s3, local: local, log: log.With().Str("component", "tiered_media_store").Logger()}
}

func (s *TieredStore) Save(ctx context.Context, key string, data []byte, ct string) error {
	if err := s.local.Save(ctx, key, data, ct); err != nil {
		return err
	}
	go func() {
		if err := s.s3.Save(context.Background(), key, data, ct); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("s3 backup write failed, reconciler will retry")
		}
	}()
	return nil
}

func (s *TieredStore) LocalPath(key string) string { return s.local.LocalPath(key) }

func (s *TieredStore) URL(ctx context.Context, key string) (string, error) { return s.s3.URL(ctx, key) }

func (s *TieredStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if r, err := s.local.Open(ctx, key); err == nil {
		return r, nil
	}
	r, err := s.s3.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return nil, err
	}
	if cacheErr := s.local.Save(ctx, key, data, ""); cacheErr != nil {
		s.log.Warn().Err(cacheErr).Str("key", key).Msg("failed to cache s3 file locally")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *TieredStore) Exists(ctx context.Context, key string) bool {
	if s.local.Exists(ctx, key) {
		return true
	}
	return s.s3.Exists(ctx, key)
}

func (s *TieredStore) Type() string { return "tiered" }

func (s *TieredStore) S3Store() *S3Store { return s.s3 }
