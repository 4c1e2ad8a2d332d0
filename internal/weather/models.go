package weather

import (
	"time"
)

// Backend table names.
const (
	TableLocations      = "locations"
	TableObservations   = "observations"
	TableForecastRuns   = "forecast_runs"
	TableForecastErrors = "forecast_errors"
	TableForecastsDaily = "forecasts_daily"
	TableDashboardStats = "dashboard_stats"
	TableBestBets       = "best_bets"
)

// StatKind selects which temperature the dashboard stats were computed for.
type StatKind string

const (
	KindHigh StatKind = "high"
	KindLow  StatKind = "low"
	KindBoth StatKind = "both"
)

// LocationRef is the embedded locations row returned with joined selects.
type LocationRef struct {
	City  string `json:"city"`
	State string `json:"state,omitempty"`
}

// ForecastRunRef is the embedded forecast_runs row.
type ForecastRunRef struct {
	Source string `json:"source"`
}

// Observation is one daily observed high/low for a station.
type Observation struct {
	StationID    string       `json:"station_id"`
	Date         string       `json:"date"`
	ObservedHigh *float64     `json:"observed_high"`
	ObservedLow  *float64     `json:"observed_low"`
	Location     *LocationRef `json:"locations"`
}

// ForecastError is the scored miss of one forecast run against observations.
type ForecastError struct {
	StationID   string          `json:"station_id"`
	TargetDate  string          `json:"target_date"`
	ErrHigh     *float64        `json:"err_high"`
	ErrLow      *float64        `json:"err_low"`
	MAE         *float64        `json:"mae"`
	CreatedAt   string          `json:"created_at,omitempty"`
	Location    *LocationRef    `json:"locations"`
	ForecastRun *ForecastRunRef `json:"forecast_runs"`
}

// DashboardStat is a pre-aggregated accuracy row per station and model source.
type DashboardStat struct {
	StationID   string   `json:"station_id"`
	Source      string   `json:"source"`
	Kind        StatKind `json:"kind"`
	LeadDays    int      `json:"lead_days"`
	N           int      `json:"n"`
	Bias        float64  `json:"bias"`
	MAE         float64  `json:"mae"`
	RMSE        float64  `json:"rmse"`
	PctWithin1F float64  `json:"pct_within_1f"`
}

// BestBet is one row of the backend best bets view.
type BestBet struct {
	StationID  string  `json:"station_id"`
	CityName   string  `json:"city_name"`
	TargetType string  `json:"target_type"`
	TargetDate string  `json:"target_date"`
	BinEven    float64 `json:"bin_even"`
	BinOdd     float64 `json:"bin_odd"`
	PYes       float64 `json:"p_yes"`
	Margin     float64 `json:"margin"`
	EdgeRatio  float64 `json:"edge_ratio"`
}

// Severity grades a day-over-day swing.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityElevated Severity = "elevated"
	SeverityExtreme  Severity = "extreme"
)

// Swing is a station's day-over-day change in observed high.
type Swing struct {
	StationID string   `json:"station_id"`
	City      string   `json:"city"`
	TempNow   float64  `json:"temp_now"`
	TempPrev  float64  `json:"temp_prev"`
	Delta     float64  `json:"delta"`
	Date      string   `json:"date"`
	Severity  Severity `json:"severity"`
}

// Bust is a forecast with a large mean absolute error.
type Bust struct {
	StationID  string   `json:"station_id"`
	City       string   `json:"city"`
	Source     string   `json:"source"`
	TargetDate string   `json:"target_date"`
	ErrHigh    *float64 `json:"err_high"`
	ErrLow     *float64 `json:"err_low"`
	MAE        float64  `json:"mae"`
}

// BiasDirection says whether a model runs hot or cold.
type BiasDirection string

const (
	BiasHot     BiasDirection = "hot"
	BiasCold    BiasDirection = "cold"
	BiasNeutral BiasDirection = "neutral"
)

// AnnotatedStat adds display flags to a DashboardStat.
type AnnotatedStat struct {
	DashboardStat
	BiasDirection BiasDirection `json:"bias_direction"`
	Tight         bool          `json:"tight"`
	Accurate      bool          `json:"accurate"`
}

// RankedBet is a BestBet with its edge tier.
type RankedBet struct {
	BestBet
	Tier string `json:"tier"`
}

// BetSummary aggregates the active best bets.
type BetSummary struct {
	ActiveMarkets  int     `json:"active_markets"`
	AvgEdgeRatio   float64 `json:"avg_edge_ratio"`
	StrongEdgeBets int     `json:"strong_edge_bets"`
	AvgPYes        float64 `json:"avg_p_yes"`
}

// ErrorBin is one bucket of the forecast error histogram.
type ErrorBin struct {
	Bin   string `json:"bin"`
	Value int    `json:"value"`
	Count int    `json:"count"`
}

// TableHealth is the row count and readiness of one backend table.
type TableHealth struct {
	Label  string `json:"label"`
	Table  string `json:"table"`
	Count  int    `json:"count"`
	Status string `json:"status"`
}

// HealthReport is a point-in-time data density check.
type HealthReport struct {
	ID        string        `json:"id"`
	CheckedAt time.Time     `json:"checked_at"` // always UTC
	Tables    []TableHealth `json:"tables"`
}
