package store

import (
	"context"
)

// HexRegistration is one row of the hex→registration lookup table loaded
// at boot for identity resolution.
type HexRegistration struct {
	Hex          string
	Registration string
	AircraftType string
	Airline      string
}

// LoadHexRegistrations returns the full hex_to_registration table.
func (s *Store) LoadHexRegistrations(ctx context.Context) ([]HexRegistration, error) {
	rows, err := s.Pool.Query(ctx, `SELECT hex, registration, COALESCE(aircraft_type, ''), COALESCE(airline, '') FROM hex_to_registration`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HexRegistration
	for rows.Next() {
		var r HexRegistration
		if err := rows.Scan(&r.Hex, &r.Registration, &r.AircraftType, &r.Airline); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertHexRegistration inserts or updates one hex→registration mapping.
func (s *Store) UpsertHexRegistration(ctx context.Context, r HexRegistration) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO hex_to_registration (hex, registration, aircraft_type, airline)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (hex) DO UPDATE SET registration = EXCLUDED.registration,
			aircraft_type = EXCLUDED.aircraft_type, airline = EXCLUDED.airline
	`, r.Hex, r.Registration, r.AircraftType, r.Airline)
	return err
}

// SavePhoto records a fetched aircraft photo.
func (s *Store) SavePhoto(ctx context.Context, registration, filepath string, filesize int64) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO aircraft_photos (registration, filepath, filesize) VALUES ($1, $2, $3)
	`, registration, filepath, filesize)
	return err
}
