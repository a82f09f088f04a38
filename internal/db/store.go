package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bikeshare-analytics/internal/report"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run describes one batch execution.
type Run struct {
	ID        string
	CreatedAt time.Time
	Stations  int
	Trips     int
}

// Store writes station reports to Postgres or SQLite.
type Store struct {
	db      *sql.DB
	backend string
}

// NewStore wraps an open database. backend is Postgres or SQLite.
func NewStore(db *sql.DB, backend string) (*Store, error) {
	switch backend {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
	return &Store{db: db, backend: backend}, nil
}

// Backend reports Postgres or SQLite.
func (s *Store) Backend() string { return s.backend }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the report tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", s.backend, err)
		}
	}
	return nil
}

// bind rewrites ? placeholders to the backend's positional form.
func (s *Store) bind(q string) string {
	if s.backend != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveRun stores run and its rows in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, rows []report.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		s.bind(`INSERT INTO report_runs (run_id, created_at, stations, trips) VALUES (?, ?, ?, ?)`),
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Stations, run.Trips)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.bind(`
INSERT INTO station_reports (run_id, row_no, station_id, station_name, total_trips,
    avg_duration, avg_distance, max_duration, max_distance, percent_one_way, imbalance)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare station insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.ExecContext(ctx, run.ID, i, r.StationID, r.StationName, r.TotalTrips,
			r.AvgDuration, r.AvgDistance, r.MaxDuration, r.MaxDistance, r.PercentOneWay, r.Imbalance)
		if err != nil {
			return fmt.Errorf("insert station %d: %w", r.StationID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// ReportRows returns the rows stored for runID in report order.
func (s *Store) ReportRows(ctx context.Context, runID string) ([]report.Row, error) {
	rs, err := s.db.QueryContext(ctx, s.bind(`
SELECT station_id, station_name, total_trips, avg_duration, avg_distance,
       max_duration, max_distance, percent_one_way, imbalance
FROM station_reports WHERE run_id = ? ORDER BY row_no`), runID)
	if err != nil {
		return nil, fmt.Errorf("query station reports: %w", err)
	}
	defer rs.Close()

	var out []report.Row
	for rs.Next() {
		var r report.Row
		var avgDur, avgDist, maxDist, pct sql.NullFloat64
		var maxDur sql.NullInt64
		if err := rs.Scan(&r.StationID, &r.StationName, &r.TotalTrips, &avgDur, &avgDist,
			&maxDur, &maxDist, &pct, &r.Imbalance); err != nil {
			return nil, err
		}
		r.AvgDuration = nullFloat(avgDur)
		r.AvgDistance = nullFloat(avgDist)
		r.MaxDistance = nullFloat(maxDist)
		r.PercentOneWay = nullFloat(pct)
		if maxDur.Valid {
			v := int(maxDur.Int64)
			r.MaxDuration = &v
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
