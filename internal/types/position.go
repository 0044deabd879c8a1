package types

// Position is the holding of one symbol. Size is zero when flat,
// positive when long and negative when short.
type Position struct {
	Symbol            string  `yaml:"symbol" json:"symbol" csv:"symbol"`
	Size              float64 `yaml:"size" json:"size" csv:"size"`
	AverageEntryPrice float64 `yaml:"average_entry_price" json:"average_entry_price" csv:"average_entry_price"`
	RealizedPnL       float64 `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
}

// IsFlat reports whether the position holds nothing.
func (p Position) IsFlat() bool {
	return p.Size == 0
}

// MarketValue returns the signed value of the position at price.
func (p Position) MarketValue(price float64) float64 {
	return p.Size * price
}

// UnrealizedPnL returns the open profit or loss at price.
func (p Position) UnrealizedPnL(price float64) float64 {
	return (price - p.AverageEntryPrice) * p.Size
}
