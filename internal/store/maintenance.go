package store

import (
	"context"
	"fmt"
	"time"
)

// PurgeOlderThan deletes rows older than the given retention period. Table
// and column names are hardcoded by callers, never user input.
func (s *Store) PurgeOlderThan(ctx context.Context, table, timeColumn string, retention time.Duration) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < now() - $1::interval`, table, timeColumn)
	tag, err := s.Pool.Exec(ctx, query, retention.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CleanupResult reports what Cleanup deleted.
type CleanupResult struct {
	MessagesDeleted   int64
	AircraftDeleted   int64
	PhotosDeleted     int64
	RecordingsDeleted int64
}

// Cleanup deletes expired rows per the configured retention windows and
// compacts the messages table with VACUUM. messageRetentionDays bounds
// messages/eam_messages/atc_recordings, aircraftStaleHours bounds stale
// aircraft_tracking rows, and photoRetentionDays bounds aircraft_photos.
func (s *Store) Cleanup(ctx context.Context, messageRetentionDays, aircraftStaleHours, photoRetentionDays int) (CleanupResult, error) {
	var r CleanupResult
	var err error

	r.MessagesDeleted, err = s.PurgeOlderThan(ctx, "messages", "timestamp", time.Duration(messageRetentionDays)*24*time.Hour)
	if err != nil {
		return r, err
	}
	if _, err = s.PurgeOlderThan(ctx, "eam_messages", "last_detected", time.Duration(messageRetentionDays)*24*time.Hour); err != nil {
		return r, err
	}
	r.RecordingsDeleted, err = s.PurgeOlderThan(ctx, "atc_recordings", "start_time", time.Duration(messageRetentionDays)*24*time.Hour)
	if err != nil {
		return r, err
	}
	r.AircraftDeleted, err = s.PurgeOlderThan(ctx, "aircraft_tracking", "updated_at", time.Duration(aircraftStaleHours)*time.Hour)
	if err != nil {
		return r, err
	}
	r.PhotosDeleted, err = s.PurgeOlderThan(ctx, "aircraft_photos", "fetched_at", time.Duration(photoRetentionDays)*24*time.Hour)
	if err != nil {
		return r, err
	}

	if _, err := s.Pool.Exec(ctx, `VACUUM (ANALYZE) messages`); err != nil {
		s.log.Warn().Err(err).Msg("post-cleanup vacuum failed")
	}

	s.log.Info().
		Int64("messages_deleted", r.MessagesDeleted).
		Int64("aircraft_deleted", r.AircraftDeleted).
		Int64("photos_deleted", r.PhotosDeleted).
		Int64("recordings_deleted", r.RecordingsDeleted).
		Msg("store cleanup complete")

	return r, nil
}
