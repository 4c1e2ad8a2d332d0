package weather

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/i474232898/weather-edge/internal/common"
)

const (
	DefaultSwingLimit = 6
	DefaultBustLimit  = 8

	strongEdge = 2.0
	goodEdge   = 1.5
)

// Volatility computes day-over-day swings in observed high per station.
// obs must be ordered by date descending; stations with fewer than two usable
// rows are skipped. The result is ordered by absolute delta, largest first.
func Volatility(obs []Observation, top int) []Swing {
	if top <= 0 {
		top = DefaultSwingLimit
	}

	var order []string
	byStation := make(map[string][]Observation)
	for _, o := range obs {
		if o.ObservedHigh == nil {
			continue
		}
		if _, ok := byStation[o.StationID]; !ok {
			order = append(order, o.StationID)
		}
		byStation[o.StationID] = append(byStation[o.StationID], o)
	}

	swings := make([]Swing, 0, len(order))
	for _, id := range order {
		list := byStation[id]
		if len(list) < 2 {
			continue
		}
		latest, previous := list[0], list[1]
		delta := *latest.ObservedHigh - *previous.ObservedHigh

		swings = append(swings, Swing{
			StationID: latest.StationID,
			City:      common.FirstNonEmpty(cityOf(latest.Location), latest.StationID),
			TempNow:   *latest.ObservedHigh,
			TempPrev:  *previous.ObservedHigh,
			Delta:     delta,
			Date:      latest.Date,
			Severity:  swingSeverity(delta),
		})
	}

	sort.SliceStable(swings, func(i, j int) bool {
		return math.Abs(swings[i].Delta) > math.Abs(swings[j].Delta)
	})
	if len(swings) > top {
		swings = swings[:top]
	}
	return swings
}

func swingSeverity(delta float64) Severity {
	switch d := math.Abs(delta); {
	case d >= 10:
		return SeverityExtreme
	case d >= 5:
		return SeverityElevated
	default:
		return SeverityNormal
	}
}

// WorstBusts returns the forecasts with the highest MAE, skipping rows
// without one.
func WorstBusts(errs []ForecastError, top int) []Bust {
	if top <= 0 {
		top = DefaultBustLimit
	}

	busts := make([]Bust, 0, len(errs))
	for _, e := range errs {
		if e.MAE == nil {
			continue
		}
		source := "Unknown"
		if e.ForecastRun != nil {
			source = common.FirstNonEmpty(e.ForecastRun.Source, source)
		}
		busts = append(busts, Bust{
			StationID:  e.StationID,
			City:       common.FirstNonEmpty(cityOf(e.Location), e.StationID),
			Source:     source,
			TargetDate: e.TargetDate,
			ErrHigh:    e.ErrHigh,
			ErrLow:     e.ErrLow,
			MAE:        *e.MAE,
		})
	}

	sort.SliceStable(busts, func(i, j int) bool {
		return busts[i].MAE > busts[j].MAE
	})
	if len(busts) > top {
		busts = busts[:top]
	}
	return busts
}

func cityOf(loc *LocationRef) string {
	if loc == nil {
		return ""
	}
	return loc.City
}

// AnnotateStats flags bias direction, tight MAE (<= 1.5°) and accuracy
// (at least half within 1°F).
func AnnotateStats(stats []DashboardStat) []AnnotatedStat {
	out := make([]AnnotatedStat, 0, len(stats))
	for _, s := range stats {
		dir := BiasNeutral
		if s.Bias > 0 {
			dir = BiasHot
		} else if s.Bias < 0 {
			dir = BiasCold
		}
		out = append(out, AnnotatedStat{
			DashboardStat: s,
			BiasDirection: dir,
			Tight:         s.MAE <= 1.5,
			Accurate:      s.PctWithin1F >= 0.5,
		})
	}
	return out
}

// EdgeTier labels an edge ratio.
func EdgeTier(edgeRatio float64) string {
	switch {
	case edgeRatio >= strongEdge:
		return "Strong Edge"
	case edgeRatio >= goodEdge:
		return "Good Edge"
	default:
		return "Moderate"
	}
}

// RankBets attaches edge tiers, keeping input order.
func RankBets(bets []BestBet) []RankedBet {
	out := make([]RankedBet, 0, len(bets))
	for _, b := range bets {
		out = append(out, RankedBet{BestBet: b, Tier: EdgeTier(b.EdgeRatio)})
	}
	return out
}

// SummarizeBets computes the headline numbers for a set of bets.
func SummarizeBets(bets []BestBet) BetSummary {
	summary := BetSummary{ActiveMarkets: len(bets)}
	if len(bets) == 0 {
		return summary
	}

	var sumEdge, sumPYes float64
	for _, b := range bets {
		sumEdge += b.EdgeRatio
		sumPYes += b.PYes
		if b.EdgeRatio >= strongEdge {
			summary.StrongEdgeBets++
		}
	}
	n := float64(len(bets))
	summary.AvgEdgeRatio = sumEdge / n
	summary.AvgPYes = sumPYes / n
	return summary
}

// ErrorDistribution buckets high and low errors into 1°F bins.
func ErrorDistribution(errs []ForecastError) []ErrorBin {
	counts := make(map[int]int)
	add := func(v *float64) {
		if v == nil || math.IsNaN(*v) {
			return
		}
		counts[int(math.Floor(*v))]++
	}
	for _, e := range errs {
		add(e.ErrHigh)
		add(e.ErrLow)
	}

	bins := make([]ErrorBin, 0, len(counts))
	for v, c := range counts {
		bins = append(bins, ErrorBin{Bin: binLabel(v), Value: v, Count: c})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Value < bins[j].Value })
	return bins
}

func binLabel(v int) string {
	if v > 0 {
		return fmt.Sprintf("+%d°", v)
	}
	return fmt.Sprintf("%d°", v)
}

type healthRule struct {
	label     string
	table     string
	threshold int
	good      string
	bad       string
}

var healthRules = []healthRule{
	{label: "Total Forecasts", table: TableForecastsDaily, threshold: 1000, good: "Healthy", bad: "Low Data"},
	{label: "Total Observations", table: TableObservations, threshold: 500, good: "Healthy", bad: "Low Data"},
	{label: "Calculated Errors", table: TableForecastErrors, threshold: 100, good: "Ready", bad: "Insufficient"},
}

// HealthTables lists the tables a health check counts.
func HealthTables() []string {
	tables := make([]string, 0, len(healthRules))
	for _, r := range healthRules {
		tables = append(tables, r.table)
	}
	return tables
}

// EvaluateHealth grades table counts. A table is ready only when its count is
// strictly above the threshold.
func EvaluateHealth(id string, counts map[string]int, checkedAt time.Time) HealthReport {
	report := HealthReport{
		ID:        id,
		CheckedAt: checkedAt.UTC(),
		Tables:    make([]TableHealth, 0, len(healthRules)),
	}
	for _, r := range healthRules {
		n := counts[r.table]
		status := r.bad
		if n > r.threshold {
			status = r.good
		}
		report.Tables = append(report.Tables, TableHealth{
			Label:  r.label,
			Table:  r.table,
			Count:  n,
			Status: status,
		})
	}
	return report
}
