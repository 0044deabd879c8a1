package result

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/internal/analytics"
	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/stretchr/testify/suite"
)

type AssemblerTestSuite struct {
	suite.Suite
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerTestSuite))
}

func (suite *AssemblerTestSuite) TestAssembleFromLedger() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ledger.New(ledger.Config{InitialCash: 1000})

	var bars []types.Bar

	prices := []float64{10, 11, 12, 9}
	for i, p := range prices {
		bar := types.Bar{Symbol: "EURUSD", Time: start.Add(time.Duration(i) * 24 * time.Hour), Open: p, High: p, Low: p, Close: p}
		bars = append(bars, bar)
		l.ProcessBar(bar)

		switch i {
		case 0:
			_, _ = l.Submit(types.OrderIntent{Symbol: "EURUSD", Side: types.SideBuy, Type: types.OrderTypeMarket, Size: 10}, bar.Time)
		case 1:
			_, _ = l.Submit(types.OrderIntent{Symbol: "EURUSD", Side: types.SideSell, Type: types.OrderTypeMarket, CloseAll: true}, bar.Time)
		}
	}

	res := Assemble(l, bars, analytics.DefaultConfig())

	// bought 10 @ 11, sold 10 @ 12
	suite.InDelta(1010.0, res.FinalValue, 1e-9)
	suite.InDelta(10.0, res.PnL, 1e-9)
	suite.Equal(1000.0, res.InitialCash)
	suite.Equal(1, res.TotalTrades)
	suite.Equal(1, res.WinningTrades)
	suite.Equal(1.0, res.WinRate)
	suite.Len(res.TradeMarkers, 2)
	suite.Len(res.ChartSeries, 4)
	suite.Len(res.Orders, 2)
	suite.Equal(4, res.Bars)
	suite.GreaterOrEqual(res.MaxDrawdown, 0.0)
}

func (suite *AssemblerTestSuite) TestAssembleEmpty() {
	l := ledger.New(ledger.Config{InitialCash: 500})

	res := Assemble(l, nil, analytics.DefaultConfig())
	suite.Equal(500.0, res.FinalValue)
	suite.Equal(0.0, res.PnL)
	suite.Equal(0, res.TotalTrades)
	suite.Equal(0.0, res.WinRate)
	suite.Equal(0.0, res.SharpeRatio)
}
