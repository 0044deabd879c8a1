package analytics

import "github.com/rxtech-lab/argo-core/internal/types"

// TradeSummary counts closed round trips.
type TradeSummary struct {
	Total   int     `yaml:"total" json:"total"`
	Wins    int     `yaml:"wins" json:"wins"`
	Losses  int     `yaml:"losses" json:"losses"`
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
}

// TradeStats summarizes closed trades. The win rate divides by at least one
// so an empty history yields 0.
func TradeStats(trades []types.ClosedTrade) TradeSummary {
	summary := TradeSummary{Total: len(trades)}

	for _, trade := range trades {
		if trade.IsWin() {
			summary.Wins++
		} else {
			summary.Losses++
		}
	}

	summary.WinRate = float64(summary.Wins) / float64(max(1, summary.Total))

	return summary
}

// Markers converts fills into chart markers, one per fill.
func Markers(fills []types.Fill) []types.TradeMarker {
	markers := make([]types.TradeMarker, 0, len(fills))

	for _, fill := range fills {
		markers = append(markers, types.TradeMarker{
			Time:  fill.Time,
			Side:  fill.Side(),
			Price: fill.Price,
			Size:  fill.AbsSize(),
		})
	}

	return markers
}
