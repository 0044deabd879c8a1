// Package analytics computes performance statistics from a finished (or
// in-flight) equity curve and trade history. Everything here is pure.
package analytics

import "github.com/rxtech-lab/argo-core/internal/types"

// Config bundles the analytics options.
type Config struct {
	Sharpe         SharpeConfig `yaml:"sharpe" json:"sharpe"`
	ChartMaxPoints int          `yaml:"chart_max_points" json:"chart_max_points" validate:"omitempty,gte=2"`
	ChartThreshold int          `yaml:"chart_threshold" json:"chart_threshold" validate:"gte=0"`
}

// DefaultConfig returns daily Sharpe with no risk free rate and the default
// chart bounds.
func DefaultConfig() Config {
	return Config{
		Sharpe:         DefaultSharpeConfig(),
		ChartMaxPoints: DefaultChartMaxPoints,
		ChartThreshold: DefaultChartThreshold,
	}
}

// Input is everything a run produced.
type Input struct {
	InitialCash float64
	Bars        []types.Bar
	Curve       []types.LedgerSnapshot
	Trades      []types.ClosedTrade
	Fills       []types.Fill
}

// Report is the analytics output.
type Report struct {
	SharpeRatio float64
	MaxDrawdown float64
	Trades      TradeSummary
	Chart       []types.ChartPoint
	Markers     []types.TradeMarker
}

// Analyze runs every analytic over in.
func Analyze(in Input, cfg Config) Report {
	return Report{
		SharpeRatio: SharpeRatio(in.Curve, in.InitialCash, cfg.Sharpe),
		MaxDrawdown: MaxDrawdown(in.Curve, in.InitialCash),
		Trades:      TradeStats(in.Trades),
		Chart:       ThinChart(ChartSeries(in.Bars, in.Curve), cfg.ChartMaxPoints, cfg.ChartThreshold),
		Markers:     Markers(in.Fills),
	}
}
