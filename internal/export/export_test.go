package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ExportTestSuite struct {
	suite.Suite
	dir   string
	start time.Time
}

func TestExportSuite(t *testing.T) {
	suite.Run(t, new(ExportTestSuite))
}

func (suite *ExportTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	suite.start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *ExportTestSuite) result() types.RunResult {
	t0 := suite.start
	t1 := t0.Add(time.Hour)

	return types.RunResult{
		InitialCash: 1000,
		FinalValue:  1010,
		ChartSeries: []types.ChartPoint{
			{Time: t0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Equity: 1000},
			{Time: t1, Open: 1.5, High: 2.5, Low: 1, Close: 2, Equity: 1010},
		},
		TradeMarkers: []types.TradeMarker{
			{Time: t1, Side: types.SideBuy, Price: 1.5, Size: 10},
		},
		Orders: []types.Order{
			{ID: "o-1", Symbol: "EURUSD", Side: types.SideBuy, Type: types.OrderTypeMarket, Size: 10, Status: types.OrderStatusFilled, SubmittedAt: t0, UpdatedAt: t1},
			{ID: "o-2", Symbol: "EURUSD", Side: types.SideSell, Type: types.OrderTypeLimit, Size: 10, LimitPrice: optional.Some(3.0), Status: types.OrderStatusCancelled, Reason: types.OrderReasonRunEnded, SubmittedAt: t1, UpdatedAt: t1},
		},
	}
}

func (suite *ExportTestSuite) TestWriteAndRead() {
	paths, err := Write(suite.dir, suite.result())
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.dir, EquityFile), paths.Equity)

	equity, err := ReadEquity(paths.Equity)
	suite.Require().NoError(err)
	suite.Require().Len(equity, 2)
	suite.Equal(suite.start.UnixMilli(), equity[0].Timestamp)
	suite.Equal(1010.0, equity[1].Equity)
	suite.Equal(2.0, equity[1].Close)

	markers, err := ReadMarkers(paths.Markers)
	suite.Require().NoError(err)
	suite.Require().Len(markers, 1)
	suite.Equal("BUY", markers[0].Side)
	suite.Equal(10.0, markers[0].Size)

	orders, err := ReadOrders(paths.Orders)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 2)
	suite.Equal("o-1", orders[0].ID)
	suite.Equal(0.0, orders[0].LimitPrice)
	suite.Equal("FILLED", orders[0].Status)
	suite.Equal(3.0, orders[1].LimitPrice)
	suite.Equal(types.OrderReasonRunEnded, orders[1].Reason)
}

func (suite *ExportTestSuite) TestWriteCreatesDirectoryAndReplaces() {
	dir := filepath.Join(suite.dir, "nested", "run")

	_, err := Write(dir, suite.result())
	suite.Require().NoError(err)

	res := suite.result()
	res.ChartSeries = res.ChartSeries[:1]

	paths, err := Write(dir, res)
	suite.Require().NoError(err)

	equity, err := ReadEquity(paths.Equity)
	suite.Require().NoError(err)
	suite.Len(equity, 1)
}

func (suite *ExportTestSuite) TestWriteEmptyResult() {
	paths, err := Write(suite.dir, types.RunResult{})
	suite.Require().NoError(err)

	for _, p := range []string{paths.Equity, paths.Markers, paths.Orders} {
		_, statErr := os.Stat(p)
		suite.NoError(statErr)
	}

	orders, err := ReadOrders(paths.Orders)
	suite.Require().NoError(err)
	suite.Empty(orders)
}

func (suite *ExportTestSuite) TestErrors() {
	_, err := Write("", suite.result())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = ReadEquity(filepath.Join(suite.dir, "missing.parquet"))
	suite.True(errors.HasCode(err, errors.ErrCodeExportFailed))
}
