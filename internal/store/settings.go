package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// GetSetting returns the raw JSON value for category+key, or ("", false, nil)
// if unset.
func (s *Store) GetSetting(ctx context.Context, category, key string) (string, bool, error) {
	var value []byte
	err := s.Pool.QueryRow(ctx, `
		SELECT value_json FROM settings WHERE category = $1 AND key = $2
	`, category, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

// SetSetting upserts a category+key override.
func (s *Store) SetSetting(ctx context.Context, category, key, valueJSON string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO settings (category, key, value_json, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (category, key) DO UPDATE SET value_json = EXCLUDED.value_json, updated_at = now()
	`, category, key, valueJSON)
	return err
}

// ListSettings returns every override in a category, for Config Manager boot-time load.
func (s *Store) ListSettings(ctx context.Context, category string) (map[string]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT key, value_json FROM settings WHERE category = $1`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = string(value)
	}
	return out, rows.Err()
}
