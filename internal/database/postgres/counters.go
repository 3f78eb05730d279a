package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facebot/internal/database"
)

// IncrCounter increments the named counter for day (YYYY-MM-DD).
// The field name is validated against the known counter set before being
// interpolated into the statement.
func (s *Store) IncrCounter(ctx context.Context, day, field string) error {
	if !database.ValidCounter(field) {
		return database.ErrUnknownCounter
	}

	query := fmt.Sprintf(`
		INSERT INTO counters (day, %s)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET %s = counters.%s + 1
	`, field, field, field)

	if _, err := s.pool.Exec(ctx, query, day); err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}
	return nil
}

// GetCounters returns recorded days ordered newest first, up to limit.
func (s *Store) GetCounters(ctx context.Context, limit int) ([]database.DayCounters, error) {
	query := `
		SELECT to_char(day, 'YYYY-MM-DD'), train, predict, label, retrain
		FROM counters
		ORDER BY day DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	var out []database.DayCounters
	for rows.Next() {
		var c database.DayCounters
		if err := rows.Scan(&c.Day, &c.Train, &c.Predict, &c.Label, &c.Retrain); err != nil {
			return nil, fmt.Errorf("scan counters: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counters: %w", err)
	}
	return out, nil
}
