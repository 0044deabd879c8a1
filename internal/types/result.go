package types

import "time"

// ChartPoint is one entry of the chart series.
type ChartPoint struct {
	Time   time.Time `yaml:"time" json:"time"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Equity float64   `yaml:"equity" json:"equity"`
}

// TradeMarker marks one fill on the chart.
type TradeMarker struct {
	Time  time.Time `yaml:"time" json:"time"`
	Side  Side      `yaml:"side" json:"side"`
	Price float64   `yaml:"price" json:"price"`
	Size  float64   `yaml:"size" json:"size"`
}

// RunResult is the externally visible outcome of a run.
type RunResult struct {
	InitialCash   float64       `yaml:"initial_cash" json:"initial_cash"`
	FinalValue    float64       `yaml:"final_value" json:"final_value"`
	PnL           float64       `yaml:"pnl" json:"pnl"`
	SharpeRatio   float64       `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown   float64       `yaml:"max_drawdown" json:"max_drawdown"`
	TotalTrades   int           `yaml:"total_trades" json:"total_trades"`
	WinningTrades int           `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int           `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64       `yaml:"win_rate" json:"win_rate"`
	Bars          int           `yaml:"bars" json:"bars"`
	ChartSeries   []ChartPoint  `yaml:"chart_series" json:"chart_series"`
	TradeMarkers  []TradeMarker `yaml:"trade_markers" json:"trade_markers"`
	Orders        []Order       `yaml:"orders" json:"orders"`
}
