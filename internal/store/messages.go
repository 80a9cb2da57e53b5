package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/airwave/airwave/internal/model"
)

// SaveMessage inserts a message once, updates the daily statistics row, and
// refreshes the aircraft_tracking last-seen fields when the message carries
// an identity. It is idempotent on msg.ID: a duplicate insert is a no-op and
// returns false.
func (s *Store) SaveMessage(ctx context.Context, msg *model.Message) (bool, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (
			id, timestamp, source_type, source_station, source_frequency, source_api,
			flight, tail, hex, airline,
			lat, lon, altitude_ft, coordinates,
			ground_speed, heading, vertical_rate, on_ground, squawk,
			text_body, label, category, flight_phase,
			oooi_event, oooi_time, cpdlc_type, hfgcs_type,
			valid, validation_errors, message_number
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, $21, $22, $23,
			$24, $25, $26, $27,
			$28, $29, $30
		)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`,
		msg.ID, msg.Timestamp, string(msg.SourceType), msg.Source.StationID, nullFloat(msg.Source.Frequency), msg.Source.API,
		identityField(msg, "flight"), identityField(msg, "tail"), identityField(msg, "hex"), identityField(msg, "airline"),
		positionField(msg, "lat"), positionField(msg, "lon"), positionField(msg, "alt"), positionString(msg),
		kinematicsField(msg, "gs"), kinematicsField(msg, "heading"), kinematicsField(msg, "vrate"), onGround(msg), squawk(msg),
		msg.Text, msg.Label, string(msg.Category), string(msg.Phase),
		oooiField(msg, "event"), oooiField(msg, "time"), msg.CPDLCType, msg.HFGCSType,
		msg.Validation.Valid, validationErrorsJSON(msg.Validation.Errors), msg.MessageNumber,
	).Scan(&id)

	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO statistics (day, source_type, message_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (day, source_type) DO UPDATE SET message_count = statistics.message_count + 1
	`, msg.Timestamp.UTC().Truncate(24*time.Hour), string(msg.SourceType)); err != nil {
		return false, err
	}

	if msg.Identity != nil && (msg.Identity.Hex != "" || msg.Identity.Flight != "" || msg.Identity.Tail != "") {
		if err := upsertAircraftLastSeenTx(ctx, tx, msg); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetMessagesRecent returns the most recent messages, newest first.
func (s *Store) GetMessagesRecent(ctx context.Context, limit int) ([]*model.Message, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, timestamp, source_type, text_body, label, category, flight_phase,
			flight, tail, hex, airline, valid
		FROM messages
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// SearchMessages performs a full-text search over text/flight/tail/airline.
func (s *Store) SearchMessages(ctx context.Context, query string, limit int) ([]*model.Message, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, timestamp, source_type, text_body, label, category, flight_phase,
			flight, tail, hex, airline, valid
		FROM messages
		WHERE search_vector @@ plainto_tsquery('english', $1)
		ORDER BY timestamp DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetMessagesByFlight returns messages matching the identifier against
// either flight or tail.
func (s *Store) GetMessagesByFlight(ctx context.Context, identifier string, limit int) ([]*model.Message, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, timestamp, source_type, text_body, label, category, flight_phase,
			flight, tail, hex, airline, valid
		FROM messages
		WHERE flight = $1 OR tail = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, identifier, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]*model.Message, error) {
	var out []*model.Message
	for rows.Next() {
		m := &model.Message{Identity: &model.Identity{}}
		var flight, tail, hex, airline *string
		if err := rows.Scan(
			&m.ID, &m.Timestamp, &m.SourceType, &m.Text, &m.Label, &m.Category, &m.Phase,
			&flight, &tail, &hex, &airline, &m.Validation.Valid,
		); err != nil {
			return nil, err
		}
		m.Identity.Flight = deref(flight)
		m.Identity.Tail = deref(tail)
		m.Identity.Hex = deref(hex)
		m.Identity.Airline = deref(airline)
		if m.Identity.Flight == "" && m.Identity.Tail == "" && m.Identity.Hex == "" && m.Identity.Airline == "" {
			m.Identity = nil
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func identityField(m *model.Message, field string) string {
	if m.Identity == nil {
		return ""
	}
	switch field {
	case "flight":
		return m.Identity.Flight
	case "tail":
		return m.Identity.Tail
	case "hex":
		return m.Identity.Hex
	case "airline":
		return m.Identity.Airline
	}
	return ""
}

func positionField(m *model.Message, field string) *float64 {
	if m.Position == nil {
		return nil
	}
	switch field {
	case "lat":
		return &m.Position.Lat
	case "lon":
		return &m.Position.Lon
	case "alt":
		return &m.Position.AltitudeFt
	}
	return nil
}

func positionString(m *model.Message) string {
	if m.Position == nil {
		return ""
	}
	return m.Position.Coordinates
}

func kinematicsField(m *model.Message, field string) *float64 {
	if m.Kinematics == nil {
		return nil
	}
	switch field {
	case "gs":
		return &m.Kinematics.GroundSpeed
	case "heading":
		return &m.Kinematics.Heading
	case "vrate":
		return &m.Kinematics.VerticalRate
	}
	return nil
}

func onGround(m *model.Message) *bool {
	if m.Kinematics == nil {
		return nil
	}
	return &m.Kinematics.OnGround
}

func squawk(m *model.Message) string {
	if m.Kinematics == nil {
		return ""
	}
	return m.Kinematics.Squawk
}

func oooiField(m *model.Message, field string) string {
	if m.OOOI == nil {
		return ""
	}
	if field == "event" {
		return m.OOOI.Event
	}
	return m.OOOI.Time
}

func validationErrorsJSON(errs []string) []byte {
	if len(errs) == 0 {
		return []byte("[]")
	}
	b, _ := json.Marshal(errs)
	return b
}
