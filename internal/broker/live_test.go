package broker

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/mocks"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type LiveTestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	venue *mocks.MockVenue
	now   time.Time
	start time.Time
}

func TestLiveSuite(t *testing.T) {
	suite.Run(t, new(LiveTestSuite))
}

func (suite *LiveTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.venue = mocks.NewMockVenue(suite.ctrl)
	suite.venue.EXPECT().Name().Return("mock").AnyTimes()
	suite.start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.now = suite.start
}

func (suite *LiveTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *LiveTestSuite) newBroker() *Live {
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 1000, Equity: 1000}, nil)

	b, err := NewLive(context.Background(), suite.venue, LiveConfig{
		CallTimeout: time.Second,
		Now:         func() time.Time { return suite.now },
	})
	suite.Require().NoError(err)

	return b
}

func (suite *LiveTestSuite) buy(size float64) types.OrderIntent {
	return types.OrderIntent{Symbol: "EURUSD", Side: types.SideBuy, Type: types.OrderTypeMarket, Size: size}
}

func (suite *LiveTestSuite) TestNewLiveFailsWhenVenueUnreachable() {
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, stderrors.New("connection refused"))

	_, err := NewLive(context.Background(), suite.venue, LiveConfig{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeVenueInitFailed))
	suite.Equal(errors.KindFatal, errors.KindOf(err))
}

func (suite *LiveTestSuite) TestFilledOrderIsMirrored() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil)
	suite.venue.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order types.VenueOrder) (types.Execution, error) {
			suite.Equal("EUR_USD", order.VenueSymbol)
			suite.Equal(types.SideBuy, order.Side)
			suite.InDelta(10, order.Size, 1e-9)

			return types.Execution{
				VenueOrderID: "v-1",
				Status:       types.OrderStatusFilled,
				FilledSize:   10,
				AveragePrice: 1.1,
				Commission:   0.5,
				Time:         suite.start,
			}, nil
		})

	order, err := b.SubmitOrder(context.Background(), suite.buy(10), suite.start)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, order.Status)

	suite.InDelta(10, b.Ledger().Position("EURUSD").Size, 1e-9)
	suite.InDelta(1000-11-0.5, b.Ledger().Cash(), 1e-9)
	suite.Require().Len(b.Ledger().Fills(), 1)
	suite.Equal(order.ID, b.Ledger().Fills()[0].OrderID)
}

func (suite *LiveTestSuite) TestVenueFailureMarksOrderRejected() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil)
	suite.venue.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Execution{}, stderrors.New("i/o timeout"))

	order, err := b.SubmitOrder(context.Background(), suite.buy(10), suite.start)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderFailed))
	suite.True(errors.IsRetryable(err))
	suite.Equal(types.OrderStatusRejected, order.Status)
	suite.Equal(types.OrderReasonVenueError, order.Reason)

	stored, err := b.Ledger().Order(order.ID)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusRejected, stored.Status)
	suite.True(b.Ledger().Position("EURUSD").IsFlat())
}

func (suite *LiveTestSuite) TestVenueRejectionIsRejectionKind() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil)
	suite.venue.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Execution{
		Status:  types.OrderStatusRejected,
		Message: "INSUFFICIENT_MARGIN",
	}, nil)

	order, err := b.SubmitOrder(context.Background(), suite.buy(10), suite.start)
	suite.Require().Error(err)
	suite.Equal(errors.KindRejection, errors.KindOf(err))
	suite.Contains(err.Error(), "INSUFFICIENT_MARGIN")
	suite.Equal(types.OrderStatusRejected, order.Status)
}

func (suite *LiveTestSuite) TestUnknownSymbolNeverReachesVenue() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("???").Return("", errors.New(errors.ErrCodeUnknownSymbol, "no notation"))

	intent := suite.buy(1)
	intent.Symbol = "???"

	order, err := b.SubmitOrder(context.Background(), intent, suite.start)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownSymbol))
	suite.Equal(types.OrderReasonUnknownSymbol, order.Reason)
	suite.Equal(types.OrderStatusRejected, order.Status)
}

func (suite *LiveTestSuite) TestInvalidIntentRejected() {
	b := suite.newBroker()

	order, err := b.SubmitOrder(context.Background(), suite.buy(0), suite.start)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrderIntent))
	suite.Equal(types.OrderReasonInvalidIntent, order.Reason)
}

func (suite *LiveTestSuite) TestCloseAllSizesFromVenuePosition() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil)
	suite.venue.EXPECT().Position(gomock.Any(), "EUR_USD").Return(5.0, nil)
	suite.venue.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order types.VenueOrder) (types.Execution, error) {
			suite.Equal(types.SideSell, order.Side)
			suite.InDelta(5, order.Size, 1e-9)

			return types.Execution{Status: types.OrderStatusFilled, FilledSize: 5, AveragePrice: 1.2}, nil
		})

	order, err := b.SubmitOrder(context.Background(), types.OrderIntent{
		Symbol: "EURUSD", Side: types.SideSell, Type: types.OrderTypeMarket, CloseAll: true,
	}, suite.start)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.InDelta(5, order.Size, 1e-9)
}

func (suite *LiveTestSuite) TestCloseAllWhenFlatIsCancelled() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil)
	suite.venue.EXPECT().Position(gomock.Any(), "EUR_USD").Return(0.0, nil)

	order, err := b.SubmitOrder(context.Background(), types.OrderIntent{
		Symbol: "EURUSD", Side: types.SideSell, Type: types.OrderTypeMarket, CloseAll: true,
	}, suite.start)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusCancelled, order.Status)
	suite.Equal(types.OrderReasonNoPosition, order.Reason)
}

func (suite *LiveTestSuite) TestBalanceFailureReturnsLastObserved() {
	b := suite.newBroker()

	suite.now = suite.start.Add(time.Minute)
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, stderrors.New("503"))

	cash, err := b.GetCash(context.Background())
	suite.Require().NoError(err)
	suite.InDelta(1000, cash, 1e-9)
	suite.Equal(time.Minute, b.Staleness())

	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 900, Equity: 1100}, nil)

	value, err := b.GetValue(context.Background())
	suite.Require().NoError(err)
	suite.InDelta(1100, value, 1e-9)
	suite.Zero(b.Staleness())
}

func (suite *LiveTestSuite) TestOnBarSnapshotKeepsEquityInvariant() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil)
	suite.venue.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Execution{
		Status: types.OrderStatusFilled, FilledSize: 10, AveragePrice: 1.1,
	}, nil)

	_, err := b.SubmitOrder(context.Background(), suite.buy(10), suite.start)
	suite.Require().NoError(err)

	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 988, Equity: 1000}, nil)

	res, err := b.OnBar(context.Background(), types.Bar{
		Symbol: "EURUSD", Time: suite.start.Add(time.Hour), Open: 1.1, High: 1.3, Low: 1.0, Close: 1.2,
	})
	suite.Require().NoError(err)

	snap := res.Snapshot
	suite.InDelta(988, snap.Cash, 1e-9)
	suite.InDelta(snap.Cash+snap.PositionValue(), snap.Equity, 1e-9)
	suite.InDelta(988+10*1.2, snap.Equity, 1e-9)
	suite.Len(b.Ledger().Snapshots(), 1)
}

func (suite *LiveTestSuite) TestOnBarKeepsLocalCashWhenVenueDown() {
	b := suite.newBroker()

	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, stderrors.New("down"))

	res, err := b.OnBar(context.Background(), types.Bar{
		Symbol: "EURUSD", Time: suite.start, Open: 1, High: 1, Low: 1, Close: 1,
	})
	suite.Require().NoError(err)
	suite.InDelta(1000, res.Snapshot.Cash, 1e-9)
}

func (suite *LiveTestSuite) TestCloseReportsRestingOrders() {
	b := suite.newBroker()

	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil)
	suite.venue.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.Execution{
		VenueOrderID: "v-2", Status: types.OrderStatusSubmitted,
	}, nil)

	_, err := b.SubmitOrder(context.Background(), suite.buy(1), suite.start)
	suite.Require().NoError(err)

	open := b.Close(context.Background(), suite.start)
	suite.Require().Len(open, 1)
	suite.Equal(types.OrderStatusSubmitted, open[0].Status)
}
