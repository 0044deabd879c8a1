package marketdata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type fakeDownloader struct {
	bars []types.Bar
	err  error
}

func (f *fakeDownloader) Download(_ context.Context, _ DownloadParams, w datasource.Writer, onProgress OnDownloadProgress) (int, error) {
	if f.err != nil {
		return 0, f.err
	}

	for _, bar := range f.bars {
		if err := w.Write(bar); err != nil {
			return 0, err
		}
	}

	onProgress(1, 1, "done")

	return len(f.bars), nil
}

type MarketDataTestSuite struct {
	suite.Suite
	tempDir string
	start   time.Time
}

func TestMarketDataSuite(t *testing.T) {
	suite.Run(t, new(MarketDataTestSuite))
}

func (suite *MarketDataTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "marketdata-test")
	suite.Require().NoError(err)

	suite.tempDir = tempDir
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *MarketDataTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *MarketDataTestSuite) TestTimespan() {
	tests := []struct {
		timespan   Timespan
		multiplier int
		unit       models.Timespan
		duration   time.Duration
		okx        string
		oanda      string
	}{
		{TimespanOneMinute, 1, models.Minute, time.Minute, "1m", "M1"},
		{TimespanFifteenMinutes, 15, models.Minute, 15 * time.Minute, "15m", "M15"},
		{TimespanOneHour, 1, models.Hour, time.Hour, "1H", "H1"},
		{TimespanFourHours, 4, models.Hour, 4 * time.Hour, "4H", "H4"},
		{TimespanOneDay, 1, models.Day, 24 * time.Hour, "1Dutc", "D"},
	}

	for _, tt := range tests {
		suite.Run(string(tt.timespan), func() {
			suite.Equal(tt.multiplier, tt.timespan.Multiplier())
			suite.Equal(tt.unit, tt.timespan.Timespan())
			suite.Equal(tt.duration, tt.timespan.Duration())
			suite.Equal(tt.okx, tt.timespan.OKXBar())
			suite.Equal(tt.oanda, tt.timespan.OandaGranularity())
			suite.Equal(string(tt.timespan), tt.timespan.BinanceInterval())
		})
	}

	_, err := ParseTimespan("7m")
	suite.Equal(errors.ErrCodeInvalidTimespan, errors.GetCode(err))
}

func (suite *MarketDataTestSuite) TestDownloadConfig() {
	cfg, err := ParseDownloadConfig(`{"provider":"binance","ticker":"BTCUSDT","startDate":"2024-01-01","endDate":"2024-02-01","interval":"1h"}`)
	suite.Require().NoError(err)

	params, err := cfg.ToDownloadParams()
	suite.Require().NoError(err)
	suite.Equal(TimespanOneHour, params.Timespan)
	suite.True(params.Start.Equal(suite.start))

	_, err = ParseDownloadConfig(`{"provider":"binance","ticker":"BTCUSDT","startDate":"2024-02-01","endDate":"2024-01-01","interval":"1h"}`)
	suite.Equal(errors.ErrCodeInvalidDateRange, errors.GetCode(err))

	_, err = ParseDownloadConfig(`{"provider":"yahoo","ticker":"SPY","startDate":"2024-01-01","endDate":"2024-02-01","interval":"1h"}`)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))

	_, err = ParseDownloadConfig(`{"provider":"polygon","ticker":"SPY","startDate":"01/01/2024","endDate":"2024-02-01","interval":"1d"}`)
	suite.Equal(errors.ErrCodeInvalidDate, errors.GetCode(err))
}

func (suite *MarketDataTestSuite) TestProviderRegistry() {
	suite.Equal([]string{"alpaca", "binance", "oanda", "okx", "polygon"}, GetSupportedProviders())

	info, err := GetProviderInfo("polygon")
	suite.Require().NoError(err)
	suite.True(info.RequiresAuth)
	suite.True(info.Download)
	suite.False(info.Live)

	_, err = GetProviderInfo("yahoo")
	suite.Equal(errors.ErrCodeInvalidProvider, errors.GetCode(err))

	schema, err := GetDownloadConfigSchema()
	suite.Require().NoError(err)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &parsed))
	suite.Contains(parsed["properties"], "ticker")
}

func (suite *MarketDataTestSuite) TestClientDownloadWritesParquet() {
	bars, err := datasource.NewGenerator().Load(context.Background(), "EURUSD", suite.start, suite.start.Add(24*time.Hour))
	suite.Require().NoError(err)

	client, err := NewClient(ClientConfig{DataPath: suite.tempDir}, &fakeDownloader{bars: bars}, nil)
	suite.Require().NoError(err)

	path, err := client.Download(context.Background(), DownloadParams{
		Ticker:   "EURUSD",
		Start:    suite.start,
		End:      suite.start.Add(24 * time.Hour),
		Timespan: TimespanOneHour,
	})
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.tempDir, "EURUSD.parquet"), path)

	src, err := datasource.NewDuckDBSource(suite.tempDir, logger.NewNop())
	suite.Require().NoError(err)
	defer src.Close()

	loaded, err := src.Load(context.Background(), "EURUSD", suite.start, suite.start.Add(24*time.Hour))
	suite.Require().NoError(err)
	suite.Len(loaded, 24)
}

func (suite *MarketDataTestSuite) TestClientDownloadEmpty() {
	client, err := NewClient(ClientConfig{DataPath: suite.tempDir}, &fakeDownloader{}, nil)
	suite.Require().NoError(err)

	_, err = client.Download(context.Background(), DownloadParams{
		Ticker:   "EURUSD",
		Start:    suite.start,
		End:      suite.start.Add(time.Hour),
		Timespan: TimespanOneHour,
	})
	suite.Equal(errors.ErrCodeNoDataFound, errors.GetCode(err))
}

func (suite *MarketDataTestSuite) TestClientValidates() {
	_, err := NewClient(ClientConfig{}, &fakeDownloader{}, nil)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))

	_, err = NewClient(ClientConfig{DataPath: suite.tempDir}, nil, nil)
	suite.Equal(errors.ErrCodeInvalidProvider, errors.GetCode(err))

	client, err := NewClient(ClientConfig{DataPath: suite.tempDir}, &fakeDownloader{}, nil)
	suite.Require().NoError(err)

	_, err = client.Download(context.Background(), DownloadParams{Ticker: "EURUSD", Start: suite.start, End: suite.start, Timespan: TimespanOneHour})
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))

	_, err = client.Download(context.Background(), DownloadParams{Ticker: "EURUSD", Start: suite.start, End: suite.start.Add(time.Hour), Timespan: "7m"})
	suite.Equal(errors.ErrCodeInvalidTimespan, errors.GetCode(err))

	downloadErr := errors.New(errors.ErrCodeMarketDataFetchFailed, "down")
	client, err = NewClient(ClientConfig{DataPath: suite.tempDir}, &fakeDownloader{err: downloadErr}, nil)
	suite.Require().NoError(err)

	_, err = client.Download(context.Background(), DownloadParams{Ticker: "EURUSD", Start: suite.start, End: suite.start.Add(time.Hour), Timespan: TimespanOneHour})
	suite.Equal(errors.ErrCodeMarketDataFetchFailed, errors.GetCode(err))
}
