package types

import "time"

// LedgerSnapshot is the account state at the close of one bar.
type LedgerSnapshot struct {
	Time      time.Time  `yaml:"time" json:"time"`
	Cash      float64    `yaml:"cash" json:"cash"`
	Positions []Position `yaml:"positions" json:"positions"`
	// Prices holds the mark used for each position symbol.
	Prices map[string]float64 `yaml:"prices" json:"prices"`
	Equity float64            `yaml:"equity" json:"equity"`
}

// PositionValue sums size * mark over all positions.
func (s LedgerSnapshot) PositionValue() float64 {
	total := 0.0
	for _, p := range s.Positions {
		total += p.MarketValue(s.Prices[p.Symbol])
	}

	return total
}
