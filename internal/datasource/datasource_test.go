package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/stream"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DataSourceTestSuite struct {
	suite.Suite
	tempDir string
	start   time.Time
	end     time.Time
}

func TestDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DataSourceTestSuite))
}

func (suite *DataSourceTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "datasource-test")
	suite.Require().NoError(err)

	suite.tempDir = tempDir
	suite.start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.end = time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
}

func (suite *DataSourceTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

type staticSource struct {
	bars []types.Bar
	err  error
}

func (s staticSource) Load(context.Context, string, time.Time, time.Time) ([]types.Bar, error) {
	return s.bars, s.err
}

func (suite *DataSourceTestSuite) TestGeneratorIsDeterministic() {
	g := NewGenerator()

	first, err := g.Load(context.Background(), "EURUSD", suite.start, suite.end)
	suite.Require().NoError(err)

	second, err := g.Load(context.Background(), "EURUSD", suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Len(first, 30*24)

	other, err := g.Load(context.Background(), "GBPUSD", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.NotEqual(first[1].Close, other[1].Close)
}

func (suite *DataSourceTestSuite) TestGeneratorBarsAreValid() {
	bars, err := NewGenerator().Load(context.Background(), "XAUUSD", suite.start, suite.end)
	suite.Require().NoError(err)

	suite.Equal(1800.0, bars[0].Open)

	for i, bar := range bars {
		suite.Require().NoError(bar.Validate())
		suite.Equal("XAUUSD", bar.Symbol)

		if i > 0 {
			suite.Equal(time.Hour, bar.Time.Sub(bars[i-1].Time))
			suite.Equal(bars[i-1].Close, bar.Open)
		}
	}

	_, err = stream.NewHistorical(bars)
	suite.NoError(err)
}

func (suite *DataSourceTestSuite) TestBasePrice() {
	suite.Equal(1800.0, BasePrice("XAUUSD"))
	suite.Equal(1800.0, BasePrice("xau/usd"))
	suite.Equal(1.1, BasePrice("EURUSD"))
}

func (suite *DataSourceTestSuite) TestGeneratorRejectsEmptyRange() {
	_, err := NewGenerator().Load(context.Background(), "EURUSD", suite.end, suite.start)
	suite.Equal(errors.ErrCodeInvalidDateRange, errors.GetCode(err))
}

func (suite *DataSourceTestSuite) TestFallbackOnMissingData() {
	stored := []types.Bar{{Symbol: "EURUSD", Time: suite.start, Open: 1, High: 1, Low: 1, Close: 1}}

	f := NewFallback(staticSource{bars: stored}, NewGenerator(), logger.NewNop())
	bars, err := f.Load(context.Background(), "EURUSD", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Equal(stored, bars)

	f = NewFallback(staticSource{err: errors.New(errors.ErrCodeDataNotFound, "missing")}, NewGenerator(), logger.NewNop())
	bars, err = f.Load(context.Background(), "EURUSD", suite.start, suite.end)
	suite.Require().NoError(err)
	suite.Len(bars, 30*24)

	f = NewFallback(staticSource{err: errors.New(errors.ErrCodeQueryFailed, "broken")}, NewGenerator(), logger.NewNop())
	_, err = f.Load(context.Background(), "EURUSD", suite.start, suite.end)
	suite.Equal(errors.ErrCodeQueryFailed, errors.GetCode(err))
}

func (suite *DataSourceTestSuite) TestParquetPath() {
	suite.Equal(filepath.Join("data", "EURUSD.parquet"), ParquetPath("data", "eurusd"))
	suite.Equal(filepath.Join("data", "BTCUSDT.parquet"), ParquetPath("data", "BTC/USDT"))
}

func (suite *DataSourceTestSuite) TestWriteThenLoad() {
	bars, err := NewGenerator().Load(context.Background(), "EURUSD", suite.start, suite.start.Add(48*time.Hour))
	suite.Require().NoError(err)

	w := NewDuckDBWriter(ParquetPath(suite.tempDir, "EURUSD"))
	suite.Require().NoError(w.Initialize())

	for _, bar := range bars {
		suite.Require().NoError(w.Write(bar))
	}

	// duplicates collapse on export
	suite.Require().NoError(w.Write(bars[0]))
	suite.Equal(len(bars)+1, w.Count())

	path, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Require().NoError(w.Close())
	suite.FileExists(path)

	src, err := NewDuckDBSource(suite.tempDir, logger.NewNop())
	suite.Require().NoError(err)
	defer src.Close()

	count, err := src.Count(context.Background(), "EURUSD")
	suite.Require().NoError(err)
	suite.Equal(len(bars), count)

	loaded, err := src.Load(context.Background(), "EURUSD", suite.start.Add(time.Hour), suite.start.Add(5*time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(loaded, 4)
	suite.True(loaded[0].Time.Equal(bars[1].Time))
	suite.InDelta(bars[1].Close, loaded[0].Close, 1e-12)
	suite.Equal("EURUSD", loaded[0].Symbol)
}

func (suite *DataSourceTestSuite) TestLoadMissingFile() {
	src, err := NewDuckDBSource(suite.tempDir, logger.NewNop())
	suite.Require().NoError(err)
	defer src.Close()

	_, err = src.Load(context.Background(), "XAUUSD", suite.start, suite.end)
	suite.Equal(errors.ErrCodeDataNotFound, errors.GetCode(err))
}

func (suite *DataSourceTestSuite) TestWriteWithoutInitialize() {
	w := NewDuckDBWriter(filepath.Join(suite.tempDir, "x.parquet"))
	suite.Error(w.Write(types.Bar{}))

	_, err := w.Finalize()
	suite.Error(err)
	suite.NoError(w.Close())
}
