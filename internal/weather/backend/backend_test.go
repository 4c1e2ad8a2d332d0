package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-edge/internal/weather"
)

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("0-24/3573")
	require.NoError(t, err)
	assert.Equal(t, 3573, n)

	n, err = parseContentRange("*/0")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, bad := range []string{"", "0-24", "0-24/", "*/abc", "*/*"} {
		_, err := parseContentRange(bad)
		assert.ErrorIs(t, err, errBadCount, bad)
	}
}

func TestSupabaseReader_Observations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/observations", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon", r.Header.Get("Authorization"))
		assert.Equal(t, "date.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Contains(t, r.URL.Query().Get("select"), "locations(city,state)")
		fmt.Fprint(w, `[{"date":"2026-03-02","observed_high":61.5,"observed_low":null,"station_id":"KNYC","locations":{"city":"New York","state":"NY"}}]`)
	}))
	defer server.Close()

	reader := NewSupabaseReader(server.Client(), server.URL+"/", "anon")
	rows, err := reader.RecentObservations(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 61.5, *rows[0].ObservedHigh)
	assert.Nil(t, rows[0].ObservedLow)
	assert.Equal(t, "New York", rows[0].Location.City)
}

func TestSupabaseReader_DashboardStatsFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "eq.both", q.Get("kind"))
		assert.Equal(t, "eq.1", q.Get("lead_days"))
		assert.Equal(t, "mae.asc", q.Get("order"))
		fmt.Fprint(w, `[{"station_id":"KNYC","source":"gfs","kind":"both","lead_days":1,"n":30,"bias":0.3,"mae":1.2,"rmse":1.6,"pct_within_1f":0.55}]`)
	}))
	defer server.Close()

	reader := NewSupabaseReader(server.Client(), server.URL, "anon")
	rows, err := reader.DashboardStats(context.Background(), weather.KindBoth, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 30, rows[0].N)
	assert.Equal(t, 0.55, rows[0].PctWithin1F)
}

func TestSupabaseReader_Count(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "*/1234")
	}))
	defer server.Close()

	reader := NewSupabaseReader(server.Client(), server.URL, "anon")
	n, err := reader.Count(context.Background(), weather.TableForecastsDaily)
	require.NoError(t, err)
	assert.Equal(t, 1234, n)

	_, err = reader.Count(context.Background(), "users; drop")
	assert.ErrorIs(t, err, errUnknownTable)
}

func TestSupabaseReader_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	reader := NewSupabaseReader(server.Client(), server.URL, "anon")
	_, err := reader.BestBets(context.Background(), 10)
	assert.Error(t, err)
}

func openTestSQLite(t *testing.T) *SQLiteReader {
	t.Helper()
	r, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func exec(t *testing.T, r *SQLiteReader, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := r.db.Exec(s)
		require.NoError(t, err, s)
	}
}

func TestSQLiteReader_Observations(t *testing.T) {
	r := openTestSQLite(t)
	exec(t, r,
		`INSERT INTO locations (station_id, city, state) VALUES ('KNYC', 'New York', 'NY')`,
		`INSERT INTO observations (station_id, date, observed_high, observed_low) VALUES
			('KNYC', '2026-03-01', 50, 40),
			('KNYC', '2026-03-02', 58, NULL),
			('KXYZ', '2026-03-02', 70, 60)`,
	)

	rows, err := r.RecentObservations(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2026-03-02", rows[0].Date)
	assert.Equal(t, "2026-03-02", rows[1].Date)

	var nyc, xyz weather.Observation
	for _, o := range rows {
		if o.StationID == "KNYC" {
			nyc = o
		} else {
			xyz = o
		}
	}
	assert.Nil(t, nyc.ObservedLow)
	assert.Equal(t, "New York", nyc.Location.City)
	assert.Nil(t, xyz.Location)
}

func TestSQLiteReader_ForecastErrors(t *testing.T) {
	r := openTestSQLite(t)
	exec(t, r,
		`INSERT INTO forecast_runs (id, station_id, source) VALUES (1, 'KNYC', 'gfs')`,
		`INSERT INTO forecast_errors (station_id, run_id, target_date, err_high, err_low, mae, created_at) VALUES
			('KNYC', 1, '2026-03-01', 2.5, -1, 1.75, '2026-03-02T00:00:00Z'),
			('KNYC', 99, '2026-03-02', NULL, NULL, NULL, '2026-03-03T00:00:00Z')`,
	)

	rows, err := r.RecentForecastErrors(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Nil(t, rows[0].MAE)
	assert.Nil(t, rows[0].ForecastRun)
	assert.Equal(t, "gfs", rows[1].ForecastRun.Source)
	assert.Equal(t, 1.75, *rows[1].MAE)
}

func TestSQLiteReader_StatsBetsCount(t *testing.T) {
	r := openTestSQLite(t)
	exec(t, r,
		`INSERT INTO dashboard_stats VALUES
			('KNYC', 'gfs', 'both', 1, 30, 0.5, 2.0, 2.5, 0.4),
			('KMIA', 'ecmwf', 'both', 1, 30, -0.2, 1.1, 1.4, 0.7),
			('KMIA', 'ecmwf', 'high', 1, 30, -0.2, 0.9, 1.4, 0.7)`,
		`INSERT INTO best_bets VALUES
			('KNYC', 'New York', 'high', '2026-03-03', 56, 57, 0.4, 2, 1.6),
			('KMIA', NULL, 'low', '2026-03-03', 70, 71, 0.6, 1, 2.4)`,
	)

	stats, err := r.DashboardStats(context.Background(), weather.KindBoth, 1)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "KMIA", stats[0].StationID)
	assert.Equal(t, weather.KindBoth, stats[0].Kind)

	bets, err := r.BestBets(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, bets, 2)
	assert.Equal(t, "KMIA", bets[0].StationID)
	assert.Equal(t, "", bets[0].CityName)

	n, err := r.Count(context.Background(), weather.TableDashboardStats)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = r.Count(context.Background(), "sqlite_master")
	assert.ErrorIs(t, err, errUnknownTable)
}
