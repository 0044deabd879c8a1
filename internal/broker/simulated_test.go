package broker

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/stretchr/testify/suite"
)

type SimulatedTestSuite struct {
	suite.Suite
	start time.Time
}

func TestSimulatedSuite(t *testing.T) {
	suite.Run(t, new(SimulatedTestSuite))
}

func (suite *SimulatedTestSuite) SetupTest() {
	suite.start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *SimulatedTestSuite) bar(i int, open, close float64) types.Bar {
	return types.Bar{
		Symbol: "EURUSD",
		Time:   suite.start.Add(time.Duration(i) * time.Hour),
		Open:   open,
		High:   open + 0.1,
		Low:    open - 0.1,
		Close:  close,
	}
}

func (suite *SimulatedTestSuite) TestOrderFillsOnNextBar() {
	ctx := context.Background()
	b := NewSimulated(ledger.New(ledger.Config{InitialCash: 1000}))

	_, err := b.OnBar(ctx, suite.bar(0, 1.0, 1.1))
	suite.Require().NoError(err)

	order, err := b.SubmitOrder(ctx, types.OrderIntent{
		Symbol: "EURUSD", Side: types.SideBuy, Type: types.OrderTypeMarket, Size: 100,
	}, suite.start)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusSubmitted, order.Status)

	res, err := b.OnBar(ctx, suite.bar(1, 1.2, 1.3))
	suite.Require().NoError(err)
	suite.Require().Len(res.Fills, 1)
	suite.InDelta(1.2, res.Fills[0].Price, 1e-9)

	cash, err := b.GetCash(ctx)
	suite.Require().NoError(err)
	suite.InDelta(880, cash, 1e-9)

	value, err := b.GetValue(ctx)
	suite.Require().NoError(err)
	suite.InDelta(880+100*1.3, value, 1e-9)

	pos, err := b.GetPosition(ctx, "EURUSD")
	suite.Require().NoError(err)
	suite.InDelta(100, pos.Size, 1e-9)
}

func (suite *SimulatedTestSuite) TestCloseCancelsPending() {
	ctx := context.Background()
	b := NewSimulated(ledger.New(ledger.Config{InitialCash: 1000}))

	_, err := b.SubmitOrder(ctx, types.OrderIntent{
		Symbol: "EURUSD", Side: types.SideBuy, Type: types.OrderTypeMarket, Size: 1,
	}, suite.start)
	suite.Require().NoError(err)

	cancelled := b.Close(ctx, suite.start.Add(time.Hour))
	suite.Require().Len(cancelled, 1)
	suite.Equal(types.OrderStatusCancelled, cancelled[0].Status)
	suite.Equal(types.OrderReasonRunEnded, cancelled[0].Reason)
	suite.Zero(b.Ledger().PendingCount())
}
