package provider

import (
	"context"
	"fmt"
	"time"

	alpacadata "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-core/internal/broker"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
)

// AlpacaDataClient is the subset of the Alpaca market data client used here.
type AlpacaDataClient interface {
	GetBars(symbol string, req alpacadata.GetBarsRequest) ([]alpacadata.Bar, error)
	GetCryptoBars(symbol string, req alpacadata.GetCryptoBarsRequest) ([]alpacadata.CryptoBar, error)
}

// AlpacaClient downloads and polls Alpaca equity and crypto bars.
type AlpacaClient struct {
	client AlpacaDataClient
	now    func() time.Time
}

// NewAlpacaClient creates a client; key and secret are required.
func NewAlpacaClient(apiKey, apiSecret, dataURL string) (*AlpacaClient, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "alpaca api key and secret are required")
	}

	opts := alpacadata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return NewAlpacaClientWithAPI(alpacadata.NewClient(opts)), nil
}

// NewAlpacaClientWithAPI creates a client over api.
func NewAlpacaClientWithAPI(api AlpacaDataClient) *AlpacaClient {
	return &AlpacaClient{client: api, now: time.Now}
}

func alpacaTimeFrame(t marketdata.Timespan) alpacadata.TimeFrame {
	switch t.Timespan() {
	case models.Minute:
		return alpacadata.NewTimeFrame(t.Multiplier(), alpacadata.Min)
	case models.Hour:
		return alpacadata.NewTimeFrame(t.Multiplier(), alpacadata.Hour)
	case models.Week:
		return alpacadata.NewTimeFrame(1, alpacadata.Week)
	default:
		return alpacadata.NewTimeFrame(1, alpacadata.Day)
	}
}

// bars loads [start, end) for the canonical symbol.
func (c *AlpacaClient) bars(symbol string, timespan marketdata.Timespan, start, end time.Time) ([]types.Bar, error) {
	venue, err := venueSymbol(marketdata.ProviderAlpaca, symbol)
	if err != nil {
		return nil, err
	}

	frame := alpacaTimeFrame(timespan)

	var bars []types.Bar

	if broker.IsCryptoSymbol(venue) {
		raw, err := c.client.GetCryptoBars(venue, alpacadata.GetCryptoBarsRequest{TimeFrame: frame, Start: start, End: end})
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to get crypto bars for %s", venue)
		}

		for _, b := range raw {
			bars = append(bars, types.Bar{Symbol: symbol, Time: b.Timestamp.UTC(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume})
		}
	} else {
		raw, err := c.client.GetBars(venue, alpacadata.GetBarsRequest{TimeFrame: frame, Start: start, End: end})
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to get bars for %s", venue)
		}

		for _, b := range raw {
			bars = append(bars, types.Bar{Symbol: symbol, Time: b.Timestamp.UTC(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: float64(b.Volume)})
		}
	}

	return bars, nil
}

func (c *AlpacaClient) Download(ctx context.Context, params marketdata.DownloadParams, w datasource.Writer, onProgress marketdata.OnDownloadProgress) (int, error) {
	bars, err := retryPage(ctx, func() ([]types.Bar, error) {
		return c.bars(params.Ticker, params.Timespan, params.Start, params.End)
	})
	if err != nil {
		return 0, err
	}

	written := 0

	for _, bar := range bars {
		if !bar.Time.Before(params.End) {
			continue
		}

		if err := w.Write(bar); err != nil {
			return written, err
		}

		written++
	}

	onProgress(float64(written), float64(len(bars)), fmt.Sprintf("Downloaded %s from Alpaca", params.Ticker))

	return written, nil
}

// Fetcher returns a live fetcher of closed bars.
func (c *AlpacaClient) Fetcher(timespan marketdata.Timespan) *AlpacaFetcher {
	return &AlpacaFetcher{client: c, timespan: timespan, limit: DefaultFetchLimit}
}

// AlpacaFetcher polls the most recent closed bars.
type AlpacaFetcher struct {
	client   *AlpacaClient
	timespan marketdata.Timespan
	limit    int
}

func (f *AlpacaFetcher) FetchLatest(ctx context.Context, symbol string) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := f.client.now().UTC()
	interval := f.timespan.Duration()
	start := now.Add(-time.Duration(f.limit+1) * interval)

	bars, err := f.client.bars(symbol, f.timespan, start, now)
	if err != nil {
		return nil, err
	}

	return closedBars(symbol, bars, interval, now), nil
}
