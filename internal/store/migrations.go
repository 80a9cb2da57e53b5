package store

import "context"

// migration defines a single idempotent schema migration, applied after
// InitSchema for databases created by an older version of AirWave.
type migration struct {
	name  string
	sql   string
	check string // query returning true if already applied
}

var migrations = []migration{
	{
		name:  "add messages.station_id rename guard",
		sql:   `ALTER TABLE messages ADD COLUMN IF NOT EXISTS source_station text`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'messages' AND column_name = 'source_station')`,
	},
	{
		name:  "add eam_messages.repeat_count",
		sql:   `ALTER TABLE eam_messages ADD COLUMN IF NOT EXISTS repeat_count int NOT NULL DEFAULT 0`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'eam_messages' AND column_name = 'repeat_count')`,
	},
	{
		name:  "add aircraft_tracking military flag",
		sql:   `ALTER TABLE aircraft_tracking ADD COLUMN IF NOT EXISTS military boolean NOT NULL DEFAULT false`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'aircraft_tracking' AND column_name = 'military')`,
	},
}

// Migrate runs all pending idempotent migrations. A failure here is Fatal
// since subsequent queries depend on the resulting columns existing.
func (s *Store) Migrate(ctx context.Context) error {
	var pending []migration
	for _, m := range migrations {
		if m.check != "" {
			var exists bool
			if err := s.Pool.QueryRow(ctx, m.check).Scan(&exists); err == nil && exists {
				continue
			}
		}
		pending = append(pending, m)
	}

	if len(pending) == 0 {
		return nil
	}

	for _, m := range pending {
		s.log.Info().Str("migration", m.name).Msg("applying schema migration")
		if _, err := s.Pool.Exec(ctx, m.sql); err != nil {
			return err
		}
	}
	return nil
}
