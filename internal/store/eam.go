package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/airwave/airwave/internal/model"
)

// SaveEAMMessage upserts by (feed_id, message_body, header) within a
// 5-minute window of an existing row's last_detected: a repeat within the
// window bumps last_detected and repeat_count instead of inserting a new row.
func (s *Store) SaveEAMMessage(ctx context.Context, eam *model.EAMMessage) error {
	segIDs, err := json.Marshal(eam.SegmentIDs)
	if err != nil {
		return err
	}

	var existingID string
	err = s.Pool.QueryRow(ctx, `
		SELECT id FROM eam_messages
		WHERE feed_id = $1 AND message_body = $2 AND COALESCE(header, '') = COALESCE($3, '')
			AND last_detected >= $4 - interval '5 minutes'
		ORDER BY last_detected DESC
		LIMIT 1
	`, eam.FeedID, eam.MessageBody, eam.Header, eam.LastDetected).Scan(&existingID)

	if err == nil {
		_, err = s.Pool.Exec(ctx, `
			UPDATE eam_messages SET last_detected = $2, repeat_count = repeat_count + 1,
				segment_ids = $3, confidence = GREATEST(confidence, $4)
			WHERE id = $1
		`, existingID, eam.LastDetected, segIDs, eam.Confidence)
		return err
	}
	if err != pgx.ErrNoRows {
		return err
	}

	_, err = s.Pool.Exec(ctx, `
		INSERT INTO eam_messages (
			id, feed_id, type, header, message_body, message_length, confidence,
			first_detected, last_detected, segment_ids, multi_segment, raw_transcription,
			codeword, time_code, authentication, repeat_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, eam.ID, eam.FeedID, string(eam.Type), eam.Header, eam.MessageBody, eam.MessageLength, eam.Confidence,
		eam.FirstDetected, eam.LastDetected, segIDs, eam.MultiSegment, eam.RawTranscription,
		eam.Codeword, eam.TimeCode, eam.Authentication, 0)
	return err
}

// GetEAMMessagesRecent returns the most recently detected EAMs.
func (s *Store) GetEAMMessagesRecent(ctx context.Context, limit int) ([]*model.EAMMessage, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, feed_id, type, COALESCE(header, ''), message_body, COALESCE(message_length, 0), confidence,
			first_detected, last_detected, segment_ids, multi_segment, COALESCE(raw_transcription, ''), repeat_count
		FROM eam_messages
		ORDER BY last_detected DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.EAMMessage
	for rows.Next() {
		e := &model.EAMMessage{}
		var eamType string
		var segIDs []byte
		if err := rows.Scan(&e.ID, &e.FeedID, &eamType, &e.Header, &e.MessageBody, &e.MessageLength, &e.Confidence,
			&e.FirstDetected, &e.LastDetected, &segIDs, &e.MultiSegment, &e.RawTranscription, &e.RepeatCount); err != nil {
			return nil, err
		}
		e.Type = model.EAMType(eamType)
		_ = json.Unmarshal(segIDs, &e.SegmentIDs)
		out = append(out, e)
	}
	return out, rows.Err()
}
