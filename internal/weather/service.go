package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	observationWindow   = 50
	forecastErrorWindow = 20
	distributionWindow  = 500
	DefaultBetLimit     = 100
)

// Overview is the landing dashboard: volatility matrix and truth tracker.
type Overview struct {
	Volatility []Swing `json:"volatility"`
	Busts      []Bust  `json:"busts"`
}

// BetsView is the best bets list with its summary.
type BetsView struct {
	Bets    []RankedBet `json:"bets"`
	Summary BetSummary  `json:"summary"`
}

// Service composes backend reads with the dashboard transforms and keeps the
// health history.
type Service struct {
	reader Reader
	health HealthStore
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(reader Reader, health HealthStore) *Service {
	return &Service{
		reader: reader,
		health: health,
		now:    time.Now,
	}
}

// Overview loads both landing sections. Either failing fails the whole view.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	swings, err := s.Volatility(ctx)
	if err != nil {
		return Overview{}, err
	}
	busts, err := s.Busts(ctx)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Volatility: swings, Busts: busts}, nil
}

// Volatility returns the stations with the most extreme day-over-day swings.
func (s *Service) Volatility(ctx context.Context) ([]Swing, error) {
	obs, err := s.reader.RecentObservations(ctx, observationWindow)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	return Volatility(obs, DefaultSwingLimit), nil
}

// Busts returns the recent forecasts with the worst MAE.
func (s *Service) Busts(ctx context.Context) ([]Bust, error) {
	errs, err := s.reader.RecentForecastErrors(ctx, forecastErrorWindow)
	if err != nil {
		return nil, fmt.Errorf("load forecast errors: %w", err)
	}
	return WorstBusts(errs, DefaultBustLimit), nil
}

// Stats returns the model performance matrix for one kind and lead time.
func (s *Service) Stats(ctx context.Context, kind StatKind, leadDays int) ([]AnnotatedStat, error) {
	stats, err := s.reader.DashboardStats(ctx, kind, leadDays)
	if err != nil {
		return nil, fmt.Errorf("load dashboard stats: %w", err)
	}
	return AnnotateStats(stats), nil
}

// Bets returns the best bets ranked by edge plus their summary.
func (s *Service) Bets(ctx context.Context, limit int) (BetsView, error) {
	if limit <= 0 {
		limit = DefaultBetLimit
	}
	bets, err := s.reader.BestBets(ctx, limit)
	if err != nil {
		return BetsView{}, fmt.Errorf("load best bets: %w", err)
	}
	return BetsView{Bets: RankBets(bets), Summary: SummarizeBets(bets)}, nil
}

// ErrorDistribution histograms the most recent forecast errors.
func (s *Service) ErrorDistribution(ctx context.Context) ([]ErrorBin, error) {
	errs, err := s.reader.RecentForecastErrors(ctx, distributionWindow)
	if err != nil {
		return nil, fmt.Errorf("load forecast errors: %w", err)
	}
	return ErrorDistribution(errs), nil
}

// CheckHealth counts the tracked tables, grades them and stores the report.
// Nothing is stored when any count fails.
func (s *Service) CheckHealth(ctx context.Context) (HealthReport, error) {
	counts := make(map[string]int)
	for _, table := range HealthTables() {
		n, err := s.reader.Count(ctx, table)
		if err != nil {
			return HealthReport{}, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}

	report := EvaluateHealth(uuid.NewString(), counts, s.now())
	s.health.SaveReport(report)

	logrus.WithFields(logrus.Fields{
		"report":            report.ID,
		TableForecastsDaily: counts[TableForecastsDaily],
		TableObservations:   counts[TableObservations],
		TableForecastErrors: counts[TableForecastErrors],
	}).Debug("health check stored")
	return report, nil
}

// LatestHealth delegates to the health store.
func (s *Service) LatestHealth() (HealthReport, error) {
	return s.health.GetLatest()
}

// HealthRange delegates to the health store.
func (s *Service) HealthRange(from, to time.Time) ([]HealthReport, error) {
	return s.health.GetRange(from, to)
}
