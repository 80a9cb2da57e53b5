package store

import "context"

// DailyStat is one (day, source_type) aggregate row.
type DailyStat struct {
	Day         string
	SourceType  string
	MessageCount int64
}

// GetDailyStats returns the last n days of per-source-type message counts.
func (s *Store) GetDailyStats(ctx context.Context, days int) ([]DailyStat, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT day::text, source_type, message_count
		FROM statistics
		WHERE day >= (now() - ($1 || ' days')::interval)::date
		ORDER BY day DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyStat
	for rows.Next() {
		var d DailyStat
		if err := rows.Scan(&d.Day, &d.SourceType, &d.MessageCount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
