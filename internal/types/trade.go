package types

import "time"

// ClosedTrade is a round trip from flat to flat (or until a reversal).
type ClosedTrade struct {
	Symbol     string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	OpenedAt   time.Time `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
	ClosedAt   time.Time `yaml:"closed_at" json:"closed_at" csv:"closed_at"`
	Size       float64   `yaml:"size" json:"size" csv:"size"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  float64   `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	// PnL is net of commission paid while the trade was open.
	PnL float64 `yaml:"pnl" json:"pnl" csv:"pnl"`
}

// IsWin reports whether the trade made money.
func (t ClosedTrade) IsWin() bool {
	return t.PnL > 0
}
