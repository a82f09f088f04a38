package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoRuns is returned by LatestRun on an empty store.
var ErrNoRuns = errors.New("no report runs stored")

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	q := `
SELECT run_id, created_at, stations, trips
FROM report_runs
ORDER BY created_at DESC
LIMIT 1`
	var run Run
	var created string
	if err := s.db.QueryRowContext(ctx, q).Scan(&run.ID, &created, &run.Stations, &run.Trips); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNoRuns
		}
		return Run{}, fmt.Errorf("query latest run: %w", err)
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("run %s created_at %q: %w", run.ID, created, err)
	}
	run.CreatedAt = t
	return run, nil
}
