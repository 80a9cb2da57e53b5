package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/airwave/airwave/internal/model"
)

// SaveRecording persists an immutable RecordingSegment row.
func (s *Store) SaveRecording(ctx context.Context, seg *model.RecordingSegment) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO atc_recordings (segment_id, feed_id, start_time, duration_ms, filepath, filesize, transcribed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (segment_id) DO NOTHING
	`, seg.SegmentID, seg.FeedID, seg.StartTime, seg.DurationMs, seg.FilePath, seg.FileSize, seg.Transcribed)
	return err
}

// SaveTranscription fills in a segment's transcription fields exactly once.
func (s *Store) SaveTranscription(ctx context.Context, segmentID, text string, segments []model.TranscriptSegment) error {
	segJSON, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO atc_transcriptions (segment_id, text, segments_json)
		VALUES ($1, $2, $3)
		ON CONFLICT (segment_id) DO NOTHING
	`, segmentID, text, segJSON); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE atc_recordings SET transcribed = true WHERE segment_id = $1
	`, segmentID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetRecordingsInTimeWindow returns segments for feedId whose start_time
// falls within [t-windowSec, t+windowSec], ordered by start_time, capped at 10.
func (s *Store) GetRecordingsInTimeWindow(ctx context.Context, feedID string, t time.Time, windowSec int) ([]*model.RecordingSegment, error) {
	lo := t.Add(-time.Duration(windowSec) * time.Second)
	hi := t.Add(time.Duration(windowSec) * time.Second)

	rows, err := s.Pool.Query(ctx, `
		SELECT r.segment_id, r.feed_id, r.start_time, r.duration_ms, r.filepath, r.filesize, r.transcribed,
			COALESCE(t.text, ''), t.transcribed_at
		FROM atc_recordings r
		LEFT JOIN atc_transcriptions t ON t.segment_id = r.segment_id
		WHERE r.feed_id = $1 AND r.start_time BETWEEN $2 AND $3
		ORDER BY r.start_time ASC
		LIMIT 10
	`, feedID, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RecordingSegment
	for rows.Next() {
		seg := &model.RecordingSegment{}
		if err := rows.Scan(&seg.SegmentID, &seg.FeedID, &seg.StartTime, &seg.DurationMs, &seg.FilePath, &seg.FileSize,
			&seg.Transcribed, &seg.TranscriptionText, &seg.TranscribedAt); err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}
