package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-edge/internal/upstream"
	"github.com/i474232898/weather-edge/internal/weather"
)

// SupabaseReader implements weather.Reader over the PostgREST API of a
// Supabase project using the anonymous key.
type SupabaseReader struct {
	restURL    string
	anonKey    string
	httpClient *http.Client
	policy     upstream.Policy
	circuit    *gobreaker.CircuitBreaker
}

// NewSupabaseReader creates a reader for the project at projectURL.
func NewSupabaseReader(client *http.Client, projectURL, anonKey string) *SupabaseReader {
	return &SupabaseReader{
		restURL:    strings.TrimRight(projectURL, "/") + "/rest/v1",
		anonKey:    anonKey,
		httpClient: client,
		policy: upstream.Policy{
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
		circuit: upstream.NewBreaker("supabase"),
	}
}

// RecentObservations returns the newest observations with their location.
func (r *SupabaseReader) RecentObservations(ctx context.Context, limit int) ([]weather.Observation, error) {
	q := url.Values{}
	q.Set("select", "date,observed_high,observed_low,station_id,locations(city,state)")
	q.Set("order", "date.desc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []weather.Observation
	if err := r.selectRows(ctx, weather.TableObservations, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentForecastErrors returns the newest forecast errors with location and source.
func (r *SupabaseReader) RecentForecastErrors(ctx context.Context, limit int) ([]weather.ForecastError, error) {
	q := url.Values{}
	q.Set("select", "target_date,err_high,err_low,mae,station_id,created_at,locations(city),forecast_runs(source)")
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []weather.ForecastError
	if err := r.selectRows(ctx, weather.TableForecastErrors, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// DashboardStats returns the stats rows for one kind and lead time, best MAE first.
func (r *SupabaseReader) DashboardStats(ctx context.Context, kind weather.StatKind, leadDays int) ([]weather.DashboardStat, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("kind", "eq."+string(kind))
	q.Set("lead_days", "eq."+strconv.Itoa(leadDays))
	q.Set("order", "mae.asc")

	var rows []weather.DashboardStat
	if err := r.selectRows(ctx, weather.TableDashboardStats, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// BestBets returns the best bets ordered by edge ratio.
func (r *SupabaseReader) BestBets(ctx context.Context, limit int) ([]weather.BestBet, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "edge_ratio.desc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []weather.BestBet
	if err := r.selectRows(ctx, weather.TableBestBets, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Count asks PostgREST for an exact count without fetching rows.
func (r *SupabaseReader) Count(ctx context.Context, table string) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("select", "*")
	resp, err := upstream.Do(ctx, r.httpClient, r.policy, r.circuit, func(ctx context.Context) (*http.Request, error) {
		req, err := r.newRequest(ctx, http.MethodHead, table, q)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Prefer", "count=exact")
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	defer resp.Body.Close()

	return parseContentRange(resp.Header.Get("Content-Range"))
}

func (r *SupabaseReader) selectRows(ctx context.Context, table string, q url.Values, out interface{}) error {
	resp, err := upstream.Do(ctx, r.httpClient, r.policy, r.circuit, func(ctx context.Context) (*http.Request, error) {
		return r.newRequest(ctx, http.MethodGet, table, q)
	})
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

func (r *SupabaseReader) newRequest(ctx context.Context, method, table string, q url.Values) (*http.Request, error) {
	u := fmt.Sprintf("%s/%s?%s", r.restURL, table, q.Encode())
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", r.anonKey)
	req.Header.Set("Authorization", "Bearer "+r.anonKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// parseContentRange reads the total from a PostgREST Content-Range header,
// e.g. "0-24/3573" or "*/0".
func parseContentRange(v string) (int, error) {
	i := strings.LastIndex(v, "/")
	if i < 0 || i == len(v)-1 {
		return 0, fmt.Errorf("%w: content-range %q", errBadCount, v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: content-range %q", errBadCount, v)
	}
	return n, nil
}
