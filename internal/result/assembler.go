// Package result packages ledger state and analytics into a RunResult.
package result

import (
	"github.com/rxtech-lab/argo-core/internal/analytics"
	"github.com/rxtech-lab/argo-core/internal/types"
)

// Source is the read side of a ledger.
type Source interface {
	InitialCash() float64
	Equity() float64
	Snapshots() []types.LedgerSnapshot
	ClosedTrades() []types.ClosedTrade
	Fills() []types.Fill
	Orders() []types.Order
}

// Assemble builds the result for the bars processed so far. It is used both
// once at the end of a backtest and for rolling live snapshots.
func Assemble(src Source, bars []types.Bar, cfg analytics.Config) types.RunResult {
	curve := src.Snapshots()
	initial := src.InitialCash()

	finalValue := src.Equity()
	if len(curve) > 0 {
		finalValue = curve[len(curve)-1].Equity
	}

	report := analytics.Analyze(analytics.Input{
		InitialCash: initial,
		Bars:        bars,
		Curve:       curve,
		Trades:      src.ClosedTrades(),
		Fills:       src.Fills(),
	}, cfg)

	return types.RunResult{
		InitialCash:   initial,
		FinalValue:    finalValue,
		PnL:           finalValue - initial,
		SharpeRatio:   report.SharpeRatio,
		MaxDrawdown:   report.MaxDrawdown,
		TotalTrades:   report.Trades.Total,
		WinningTrades: report.Trades.Wins,
		LosingTrades:  report.Trades.Losses,
		WinRate:       report.Trades.WinRate,
		Bars:          len(bars),
		ChartSeries:   report.Chart,
		TradeMarkers:  report.Markers,
		Orders:        src.Orders(),
	}
}
