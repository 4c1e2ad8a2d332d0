package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	obs      []Observation
	errs     []ForecastError
	stats    []DashboardStat
	bets     []BestBet
	counts   map[string]int
	failWith error

	gotKind  StatKind
	gotLead  int
	gotLimit int
}

func (r *fakeReader) RecentObservations(_ context.Context, limit int) ([]Observation, error) {
	r.gotLimit = limit
	return r.obs, r.failWith
}

func (r *fakeReader) RecentForecastErrors(_ context.Context, limit int) ([]ForecastError, error) {
	r.gotLimit = limit
	return r.errs, r.failWith
}

func (r *fakeReader) DashboardStats(_ context.Context, kind StatKind, leadDays int) ([]DashboardStat, error) {
	r.gotKind, r.gotLead = kind, leadDays
	return r.stats, r.failWith
}

func (r *fakeReader) BestBets(_ context.Context, limit int) ([]BestBet, error) {
	r.gotLimit = limit
	return r.bets, r.failWith
}

func (r *fakeReader) Count(_ context.Context, table string) (int, error) {
	return r.counts[table], r.failWith
}

type fakeHealthStore struct {
	saved []HealthReport
}

func (s *fakeHealthStore) SaveReport(report HealthReport) { s.saved = append(s.saved, report) }

func (s *fakeHealthStore) GetLatest() (HealthReport, error) {
	if len(s.saved) == 0 {
		return HealthReport{}, errors.New("empty")
	}
	return s.saved[len(s.saved)-1], nil
}

func (s *fakeHealthStore) GetRange(from, to time.Time) ([]HealthReport, error) {
	return s.saved, nil
}

func TestServiceOverview(t *testing.T) {
	reader := &fakeReader{
		obs: []Observation{obs("KNYC", "2", 50, ""), obs("KNYC", "1", 45, "")},
		errs: []ForecastError{
			{StationID: "KNYC", MAE: f(3)},
		},
	}
	svc := NewService(reader, &fakeHealthStore{})

	got, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Volatility, 1)
	require.Len(t, got.Busts, 1)
	assert.Equal(t, forecastErrorWindow, reader.gotLimit)
}

func TestServiceStatsPassesFilters(t *testing.T) {
	reader := &fakeReader{stats: []DashboardStat{{StationID: "KNYC", MAE: 1}}}
	svc := NewService(reader, &fakeHealthStore{})

	got, err := svc.Stats(context.Background(), KindHigh, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, KindHigh, reader.gotKind)
	assert.Equal(t, 3, reader.gotLead)
}

func TestServiceBetsDefaultLimit(t *testing.T) {
	reader := &fakeReader{bets: []BestBet{{EdgeRatio: 2}}}
	svc := NewService(reader, &fakeHealthStore{})

	got, err := svc.Bets(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBetLimit, reader.gotLimit)
	assert.Equal(t, 1, got.Summary.StrongEdgeBets)
	assert.Equal(t, "Strong Edge", got.Bets[0].Tier)
}

func TestServiceReaderFailure(t *testing.T) {
	reader := &fakeReader{failWith: errors.New("backend down")}
	svc := NewService(reader, &fakeHealthStore{})

	_, err := svc.Overview(context.Background())
	assert.ErrorIs(t, err, reader.failWith)
	_, err = svc.ErrorDistribution(context.Background())
	assert.ErrorIs(t, err, reader.failWith)
}

func TestServiceCheckHealth(t *testing.T) {
	reader := &fakeReader{counts: map[string]int{
		TableForecastsDaily: 2000,
		TableObservations:   10,
		TableForecastErrors: 0,
	}}
	health := &fakeHealthStore{}
	svc := NewService(reader, health)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	got, err := svc.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, now, got.CheckedAt)
	require.Len(t, health.saved, 1)

	latest, err := svc.LatestHealth()
	require.NoError(t, err)
	assert.Equal(t, got.ID, latest.ID)
}

func TestServiceCheckHealthFailureStoresNothing(t *testing.T) {
	health := &fakeHealthStore{}
	svc := NewService(&fakeReader{failWith: errors.New("boom")}, health)

	_, err := svc.CheckHealth(context.Background())
	assert.Error(t, err)
	assert.Empty(t, health.saved)
}
