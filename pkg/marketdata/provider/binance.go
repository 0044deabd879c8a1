package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
)

// binancePageSize is the kline limit per request.
const binancePageSize = 1000

// BinanceAPIClient is the subset of the Binance client used here.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

// BinanceKlinesService builds one klines request.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

type binanceAPIClient struct {
	client *binance.Client
}

func (c *binanceAPIClient) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesService{service: c.client.NewKlinesService()}
}

type binanceKlinesService struct {
	service *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesService) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *binanceKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceClient downloads and polls spot klines. The public market data
// endpoints need no credentials.
type BinanceClient struct {
	client BinanceAPIClient
	now    func() time.Time
}

// NewBinanceClient creates a client; baseURL overrides the API host.
func NewBinanceClient(baseURL string) *BinanceClient {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return NewBinanceClientWithAPI(&binanceAPIClient{client: client})
}

// NewBinanceClientWithAPI creates a client over api.
func NewBinanceClientWithAPI(api BinanceAPIClient) *BinanceClient {
	return &BinanceClient{client: api, now: time.Now}
}

// Download pages through klines from params.Start until params.End.
func (c *BinanceClient) Download(ctx context.Context, params marketdata.DownloadParams, w datasource.Writer, onProgress marketdata.OnDownloadProgress) (int, error) {
	symbol, err := venueSymbol(marketdata.ProviderBinance, params.Ticker)
	if err != nil {
		return 0, err
	}

	startMillis := params.Start.UnixMilli()
	endMillis := params.End.UnixMilli() - 1
	current := startMillis
	written := 0

	for current <= endMillis {
		klines, err := retryPage(ctx, func() ([]*binance.Kline, error) {
			klines, err := c.client.NewKlinesService().
				Symbol(symbol).
				Interval(params.Timespan.BinanceInterval()).
				StartTime(current).
				EndTime(endMillis).
				Limit(binancePageSize).
				Do(ctx)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
			}

			return klines, nil
		})
		if err != nil {
			return written, err
		}

		bars, err := klinesToBars(params.Ticker, klines)
		if err != nil {
			return written, err
		}

		for _, bar := range bars {
			if err := w.Write(bar); err != nil {
				return written, err
			}

			written++
		}

		onProgress(float64(current-startMillis), float64(endMillis-startMillis), fmt.Sprintf("Downloading %s klines from Binance", params.Ticker))

		if len(klines) < binancePageSize {
			break
		}

		current = klines[len(klines)-1].CloseTime + 1
	}

	return written, nil
}

// Fetcher returns a live fetcher of closed klines.
func (c *BinanceClient) Fetcher(timespan marketdata.Timespan) *BinanceFetcher {
	return &BinanceFetcher{client: c, timespan: timespan, limit: DefaultFetchLimit}
}

// BinanceFetcher polls the most recent closed klines.
type BinanceFetcher struct {
	client   *BinanceClient
	timespan marketdata.Timespan
	limit    int
}

func (f *BinanceFetcher) FetchLatest(ctx context.Context, symbol string) ([]types.Bar, error) {
	venue, err := venueSymbol(marketdata.ProviderBinance, symbol)
	if err != nil {
		return nil, err
	}

	klines, err := f.client.client.NewKlinesService().
		Symbol(venue).
		Interval(f.timespan.BinanceInterval()).
		Limit(f.limit + 1).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", venue)
	}

	nowMillis := f.client.now().UnixMilli()

	closed := make([]*binance.Kline, 0, len(klines))
	for _, k := range klines {
		if k.CloseTime < nowMillis {
			closed = append(closed, k)
		}
	}

	bars, err := klinesToBars(symbol, closed)
	if err != nil {
		return nil, err
	}

	sortBars(bars)

	return bars, nil
}

// klinesToBars converts klines to bars stamped at their open time.
func klinesToBars(symbol string, klines []*binance.Kline) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 5)

		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid kline value %q", raw)
			}

			values[i] = v
		}

		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}

	return bars, nil
}
