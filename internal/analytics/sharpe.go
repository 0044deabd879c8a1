package analytics

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
)

// Period is the resampling interval for periodic returns.
type Period string

const (
	PeriodHour Period = "hour"
	PeriodDay  Period = "day"
	PeriodWeek Period = "week"
)

// Duration returns the bucket width of the period. Unknown periods are daily.
func (p Period) Duration() time.Duration {
	switch p {
	case PeriodHour:
		return time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// PeriodsPerYear is the annualization factor used for the period.
func (p Period) PeriodsPerYear() float64 {
	switch p {
	case PeriodHour:
		return 252 * 24
	case PeriodWeek:
		return 52
	default:
		return 252
	}
}

// SharpeConfig controls the Sharpe ratio computation.
type SharpeConfig struct {
	Period Period `yaml:"period" json:"period" validate:"omitempty,oneof=hour day week"`
	// RiskFreeRate is expressed per period.
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	// Annualize scales the ratio by sqrt(periods per year).
	Annualize bool `yaml:"annualize" json:"annualize"`
}

// DefaultSharpeConfig resamples daily with a zero risk free rate.
func DefaultSharpeConfig() SharpeConfig {
	return SharpeConfig{Period: PeriodDay}
}

// PeriodicEquity resamples the equity curve to the last value of each
// period, prefixed with the starting value.
func PeriodicEquity(curve []types.LedgerSnapshot, initial float64, period Period) []float64 {
	values := []float64{initial}
	width := period.Duration()

	var current time.Time

	for i, snap := range curve {
		bucket := snap.Time.UTC().Truncate(width)
		if i == 0 || !bucket.Equal(current) {
			values = append(values, snap.Equity)
			current = bucket

			continue
		}

		values[len(values)-1] = snap.Equity
	}

	return values
}

// Returns converts a value series to simple returns. Steps starting from a
// non-positive value are skipped.
func Returns(values []float64) []float64 {
	returns := make([]float64, 0, len(values))

	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}

		returns = append(returns, values[i]/values[i-1]-1)
	}

	return returns
}

// SharpeRatio computes the Sharpe ratio of the curve's periodic returns.
// It returns 0 when there are fewer than two returns or no deviation.
func SharpeRatio(curve []types.LedgerSnapshot, initial float64, cfg SharpeConfig) float64 {
	returns := Returns(PeriodicEquity(curve, initial, cfg.Period))
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r - cfg.RiskFreeRate
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - cfg.RiskFreeRate - mean
		variance += d * d
	}

	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 || math.IsNaN(std) {
		return 0
	}

	ratio := mean / std
	if cfg.Annualize {
		ratio *= math.Sqrt(cfg.Period.PeriodsPerYear())
	}

	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}

	return ratio
}
