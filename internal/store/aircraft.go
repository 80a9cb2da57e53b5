package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/airwave/airwave/internal/model"
)

// upsertAircraftLastSeenTx updates the durable aircraft_tracking row's
// last-seen fields inside an existing transaction. The live in-memory view
// lives in internal/tracker; this durable copy survives restarts.
func upsertAircraftLastSeenTx(ctx context.Context, tx pgx.Tx, msg *model.Message) error {
	var hex, flight, tail *string
	if msg.Identity.Hex != "" {
		hex = &msg.Identity.Hex
	}
	if msg.Identity.Flight != "" {
		flight = &msg.Identity.Flight
	}
	if msg.Identity.Tail != "" {
		tail = &msg.Identity.Tail
	}

	if hex != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO aircraft_tracking (hex, flight, tail, airline, last_lat, last_lon, last_altitude_ft,
				last_ground_speed, last_heading, last_vertical_rate, last_message_at, flight_phase, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
			ON CONFLICT (hex) DO UPDATE SET
				flight = COALESCE(EXCLUDED.flight, aircraft_tracking.flight),
				tail = COALESCE(EXCLUDED.tail, aircraft_tracking.tail),
				airline = COALESCE(EXCLUDED.airline, aircraft_tracking.airline),
				last_lat = COALESCE(EXCLUDED.last_lat, aircraft_tracking.last_lat),
				last_lon = COALESCE(EXCLUDED.last_lon, aircraft_tracking.last_lon),
				last_altitude_ft = COALESCE(EXCLUDED.last_altitude_ft, aircraft_tracking.last_altitude_ft),
				last_ground_speed = COALESCE(EXCLUDED.last_ground_speed, aircraft_tracking.last_ground_speed),
				last_heading = COALESCE(EXCLUDED.last_heading, aircraft_tracking.last_heading),
				last_vertical_rate = COALESCE(EXCLUDED.last_vertical_rate, aircraft_tracking.last_vertical_rate),
				last_message_at = EXCLUDED.last_message_at,
				flight_phase = EXCLUDED.flight_phase,
				updated_at = now()
		`, hex, flight, tail, identityField(msg, "airline"),
			positionField(msg, "lat"), positionField(msg, "lon"), positionField(msg, "alt"),
			kinematicsField(msg, "gs"), kinematicsField(msg, "heading"), kinematicsField(msg, "vrate"),
			msg.Timestamp, string(msg.Phase))
		return err
	}

	// No hex: best-effort update by flight/tail, no insert (avoids creating
	// duplicate rows for transient flight/tail-only sightings).
	if flight != nil {
		_, err := tx.Exec(ctx, `
			UPDATE aircraft_tracking SET last_message_at = $2, flight_phase = $3, updated_at = now()
			WHERE flight = $1 AND last_message_at < $2
		`, *flight, msg.Timestamp, string(msg.Phase))
		return err
	}
	return nil
}

// ActiveAircraftRow is a durable snapshot row, distinct from the live
// in-memory tracker view.
type ActiveAircraftRow struct {
	Hex            string
	Flight         string
	Tail           string
	Airline        string
	LastLat        float64
	LastLon        float64
	LastAltitudeFt float64
	FlightPhase    string
	Military       bool
}

// GetActiveAircraft returns the most recently updated durable aircraft rows.
func (s *Store) GetActiveAircraft(ctx context.Context, limit int) ([]ActiveAircraftRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT hex, flight, tail, airline, last_lat, last_lon, last_altitude_ft, flight_phase, military
		FROM aircraft_tracking
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveAircraftRow
	for rows.Next() {
		var r ActiveAircraftRow
		var hex, flight, tail, airline, phase *string
		var lat, lon, alt *float64
		if err := rows.Scan(&hex, &flight, &tail, &airline, &lat, &lon, &alt, &phase, &r.Military); err != nil {
			return nil, err
		}
		r.Hex, r.Flight, r.Tail, r.Airline, r.FlightPhase = deref(hex), deref(flight), deref(tail), deref(airline), deref(phase)
		if lat != nil {
			r.LastLat = *lat
		}
		if lon != nil {
			r.LastLon = *lon
		}
		if alt != nil {
			r.LastAltitudeFt = *alt
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AircraftTrack bundles everything C7's getAircraftTrack returns: the
// durable metadata and last position plus the message history for the same
// identity. GetAircraftTrack leaves TrackPoints empty.
type AircraftTrack struct {
	TrackPoints    []model.TrackPoint
	LastPosition   *model.Position
	Metadata       ActiveAircraftRow
	MessageHistory []*model.Message
}

// GetAircraftTrack resolves identifier across hex, flight, and tail and
// returns the durable metadata plus recent message history. Track point
// history itself is served from the live tracker (internal/tracker), which
// is the authoritative bounded ring; the store only persists last-known state.
func (s *Store) GetAircraftTrack(ctx context.Context, identifier string) (*AircraftTrack, error) {
	var r ActiveAircraftRow
	var hex, flight, tail, airline, phase *string
	var lat, lon, alt *float64
	err := s.Pool.QueryRow(ctx, `
		SELECT hex, flight, tail, airline, last_lat, last_lon, last_altitude_ft, flight_phase, military
		FROM aircraft_tracking
		WHERE hex = $1 OR flight = $1 OR tail = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, identifier).Scan(&hex, &flight, &tail, &airline, &lat, &lon, &alt, &phase, &r.Military)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Hex, r.Flight, r.Tail, r.Airline, r.FlightPhase = deref(hex), deref(flight), deref(tail), deref(airline), deref(phase)
	if lat != nil {
		r.LastLat = *lat
	}
	if lon != nil {
		r.LastLon = *lon
	}
	if alt != nil {
		r.LastAltitudeFt = *alt
	}

	history, err := s.GetMessagesByFlight(ctx, identifier, 200)
	if err != nil {
		return nil, err
	}

	var lastPos *model.Position
	if lat != nil && lon != nil {
		lastPos = &model.Position{Lat: r.LastLat, Lon: r.LastLon, AltitudeFt: r.LastAltitudeFt}
	}

	return &AircraftTrack{Metadata: r, LastPosition: lastPos, MessageHistory: history}, nil
}
