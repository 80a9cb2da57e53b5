// Package photos fetches and caches a reference photo per registration,
// triggered for each bus message that carries a tail number and skipped
// when a photo for it was fetched recently.
package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/mediastore"
	"github.com/airwave/airwave/internal/model"
)

// photoStore is the subset of store.Store the fetcher depends on.
type photoStore interface {
	HasRecentPhoto(ctx context.Context, registration string, maxAge time.Duration) (bool, error)
	SaveAircraftPhoto(ctx context.Context, photo *model.AircraftPhoto) error
}

// Fetcher downloads one photo per registration from a configured HTTP API
// and stores it via mediastore, deduping against recently-fetched rows.
type Fetcher struct {
	baseURL     string
	minRefetch  time.Duration
	httpClient  *http.Client
	mediaStore  mediastore.Store
	store       photoStore
	log         zerolog.Logger
}

func New(baseURL string, minRefetch time.Duration, ms mediastore.Store, store photoStore, log zerolog.Logger) *Fetcher {
	if minRefetch <= 0 {
		minRefetch = 30 * 24 * time.Hour
	}
	return &Fetcher{
		baseURL:    baseURL,
		minRefetch: minRefetch,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		mediaStore: ms,
		store:      store,
		log:        log.With().Str("component", "photo_fetcher").Logger(),
	}
}

// FetchIfNeeded fetches and stores a photo for registration unless one was
// already fetched within the configured refetch interval. A failed request,
// a 404 or any other non-200 response is logged (or ignored) and returns nil;
// errors are returned only for store, media-store and body-read faults.
func (f *Fetcher) FetchIfNeeded(ctx context.Context, registration string) error {
	if registration == "" || f.baseURL == "" {
		return nil
	}

	recent, err := f.store.HasRecentPhoto(ctx, registration, f.minRefetch)
	if err != nil {
		return fmt.Errorf("photos: check recent: %w", err)
	}
	if recent {
		return nil
	}

	url := fmt.Sprintf("%s/%s.jpg", f.baseURL, registration)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("photos: build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.log.Warn().Err(err).Str("registration", registration).Msg("photo fetch failed, skipping")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		f.log.Warn().Int("status", resp.StatusCode).Str("registration", registration).Msg("photo fetch non-200, skipping")
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("photos: read body: %w", err)
	}

	key := fmt.Sprintf("photos/%s/%d.jpg", registration, time.Now().UnixMilli())
	if err := f.mediaStore.Save(ctx, key, data, "image/jpeg"); err != nil {
		return fmt.Errorf("photos: save: %w", err)
	}

	photo := &model.AircraftPhoto{
		Registration: registration,
		FilePath:     key,
		FileSize:     int64(len(data)),
		FetchedAt:    time.Now().UTC(),
	}
	if err := f.store.SaveAircraftPhoto(ctx, photo); err != nil {
		return fmt.Errorf("photos: persist: %w", err)
	}
	f.log.Info().Str("registration", registration).Int("bytes", len(data)).Msg("photo fetched")
	return nil
}
