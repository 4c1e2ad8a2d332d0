package weather

import (
	"context"
	"time"
)

// Reader abstracts the read-only backend holding observations, forecast errors
// and the pre-computed stats and best bets views.
type Reader interface {
	RecentObservations(ctx context.Context, limit int) ([]Observation, error)
	RecentForecastErrors(ctx context.Context, limit int) ([]ForecastError, error)
	DashboardStats(ctx context.Context, kind StatKind, leadDays int) ([]DashboardStat, error)
	BestBets(ctx context.Context, limit int) ([]BestBet, error)
	Count(ctx context.Context, table string) (int, error)
}

// HealthStore is the contract the in-memory health history store satisfies.
type HealthStore interface {
	SaveReport(report HealthReport)
	GetLatest() (HealthReport, error)
	GetRange(from, to time.Time) ([]HealthReport, error)
}
