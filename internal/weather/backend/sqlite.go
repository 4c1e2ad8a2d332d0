package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/i474232898/weather-edge/internal/weather"
)

// SQLiteReader implements weather.Reader over a local SQLite file holding
// the same tables as the hosted backend.
type SQLiteReader struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and migrates its schema.
func OpenSQLite(path string) (*SQLiteReader, error) {
	if path == "" {
		path = "data/weather.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	r := &SQLiteReader{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying database.
func (r *SQLiteReader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteReader) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			station_id TEXT PRIMARY KEY,
			city TEXT,
			state TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station_id TEXT NOT NULL,
			date TEXT NOT NULL,
			observed_high REAL,
			observed_low REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_observations_date ON observations(date);`,
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station_id TEXT,
			source TEXT,
			created_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS forecasts_daily (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER,
			station_id TEXT,
			target_date TEXT,
			forecast_high REAL,
			forecast_low REAL
		);`,
		`CREATE TABLE IF NOT EXISTS forecast_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station_id TEXT NOT NULL,
			run_id INTEGER,
			target_date TEXT,
			err_high REAL,
			err_low REAL,
			mae REAL,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_errors_created ON forecast_errors(created_at);`,
		`CREATE TABLE IF NOT EXISTS dashboard_stats (
			station_id TEXT,
			source TEXT,
			kind TEXT,
			lead_days INTEGER,
			n INTEGER,
			bias REAL,
			mae REAL,
			rmse REAL,
			pct_within_1f REAL
		);`,
		`CREATE TABLE IF NOT EXISTS best_bets (
			station_id TEXT,
			city_name TEXT,
			target_type TEXT,
			target_date TEXT,
			bin_even REAL,
			bin_odd REAL,
			p_yes REAL,
			margin REAL,
			edge_ratio REAL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// RecentObservations returns the newest observations joined with their location.
func (r *SQLiteReader) RecentObservations(ctx context.Context, limit int) ([]weather.Observation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.station_id, o.date, o.observed_high, o.observed_low, l.city, l.state
		FROM observations o
		LEFT JOIN locations l ON l.station_id = o.station_id
		ORDER BY o.date DESC, o.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []weather.Observation
	for rows.Next() {
		var (
			o           weather.Observation
			high, low   sql.NullFloat64
			city, state sql.NullString
		)
		if err := rows.Scan(&o.StationID, &o.Date, &high, &low, &city, &state); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.ObservedHigh = nullFloat(high)
		o.ObservedLow = nullFloat(low)
		if city.Valid {
			o.Location = &weather.LocationRef{City: city.String, State: state.String}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// RecentForecastErrors returns the newest forecast errors with location and source.
func (r *SQLiteReader) RecentForecastErrors(ctx context.Context, limit int) ([]weather.ForecastError, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.station_id, e.target_date, e.err_high, e.err_low, e.mae, e.created_at, l.city, fr.source
		FROM forecast_errors e
		LEFT JOIN locations l ON l.station_id = e.station_id
		LEFT JOIN forecast_runs fr ON fr.id = e.run_id
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query forecast errors: %w", err)
	}
	defer rows.Close()

	var out []weather.ForecastError
	for rows.Next() {
		var (
			e                          weather.ForecastError
			target, created, city, src sql.NullString
			errHigh, errLow, mae       sql.NullFloat64
		)
		if err := rows.Scan(&e.StationID, &target, &errHigh, &errLow, &mae, &created, &city, &src); err != nil {
			return nil, fmt.Errorf("scan forecast error: %w", err)
		}
		e.TargetDate = target.String
		e.CreatedAt = created.String
		e.ErrHigh = nullFloat(errHigh)
		e.ErrLow = nullFloat(errLow)
		e.MAE = nullFloat(mae)
		if city.Valid {
			e.Location = &weather.LocationRef{City: city.String}
		}
		if src.Valid {
			e.ForecastRun = &weather.ForecastRunRef{Source: src.String}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DashboardStats returns the stats rows for one kind and lead time, best MAE first.
func (r *SQLiteReader) DashboardStats(ctx context.Context, kind weather.StatKind, leadDays int) ([]weather.DashboardStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT station_id, source, kind, lead_days, n, bias, mae, rmse, pct_within_1f
		FROM dashboard_stats
		WHERE kind = ? AND lead_days = ?
		ORDER BY mae ASC`, string(kind), leadDays)
	if err != nil {
		return nil, fmt.Errorf("query dashboard stats: %w", err)
	}
	defer rows.Close()

	var out []weather.DashboardStat
	for rows.Next() {
		var s weather.DashboardStat
		var k string
		if err := rows.Scan(&s.StationID, &s.Source, &k, &s.LeadDays, &s.N, &s.Bias, &s.MAE, &s.RMSE, &s.PctWithin1F); err != nil {
			return nil, fmt.Errorf("scan dashboard stat: %w", err)
		}
		s.Kind = weather.StatKind(k)
		out = append(out, s)
	}
	return out, rows.Err()
}

// BestBets returns the best bets ordered by edge ratio.
func (r *SQLiteReader) BestBets(ctx context.Context, limit int) ([]weather.BestBet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT station_id, IFNULL(city_name, ''), target_type, target_date, bin_even, bin_odd, p_yes, margin, edge_ratio
		FROM best_bets
		ORDER BY edge_ratio DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query best bets: %w", err)
	}
	defer rows.Close()

	var out []weather.BestBet
	for rows.Next() {
		var b weather.BestBet
		if err := rows.Scan(&b.StationID, &b.CityName, &b.TargetType, &b.TargetDate, &b.BinEven, &b.BinOdd, &b.PYes, &b.Margin, &b.EdgeRatio); err != nil {
			return nil, fmt.Errorf("scan best bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Count returns the row count of a whitelisted table.
func (r *SQLiteReader) Count(ctx context.Context, table string) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
