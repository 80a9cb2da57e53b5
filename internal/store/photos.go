package store

import (
	"context"
	"time"

	"github.com/airwave/airwave/internal/model"
)

// SaveAircraftPhoto records a fetched photo file for a registration.
func (s *Store) SaveAircraftPhoto(ctx context.Context, photo *model.AircraftPhoto) error {
	return s.Pool.QueryRow(ctx, `
		INSERT INTO aircraft_photos (registration, filepath, filesize, fetched_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, photo.Registration, photo.FilePath, photo.FileSize, photo.FetchedAt).Scan(&photo.ID)
}

// GetPhotosForRegistration returns all known photos for a registration, most
// recently fetched first.
func (s *Store) GetPhotosForRegistration(ctx context.Context, registration string) ([]*model.AircraftPhoto, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, registration, filepath, filesize, fetched_at
		FROM aircraft_photos
		WHERE registration = $1
		ORDER BY fetched_at DESC
	`, registration)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AircraftPhoto
	for rows.Next() {
		p := &model.AircraftPhoto{}
		if err := rows.Scan(&p.ID, &p.Registration, &p.FilePath, &p.FileSize, &p.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasRecentPhoto reports whether registration has a photo fetched within
// the last maxAge, to avoid re-fetching on every sighting.
func (s *Store) HasRecentPhoto(ctx context.Context, registration string, maxAge time.Duration) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM aircraft_photos
			WHERE registration = $1 AND fetched_at > $2
		)
	`, registration, time.Now().Add(-maxAge)).Scan(&exists)
	return exists, err
}
