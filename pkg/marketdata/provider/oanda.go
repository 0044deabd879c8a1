package provider

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
)

const (
	oandaPracticeURL = "https://api-fxpractice.oanda.com"
	oandaLiveURL     = "https://api-fxtrade.oanda.com"
)

type oandaCandles struct {
	Candles []struct {
		Complete bool   `json:"complete"`
		Time     string `json:"time"`
		Volume   int64  `json:"volume"`
		Mid      struct {
			O string `json:"o"`
			H string `json:"h"`
			L string `json:"l"`
			C string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

// OandaFetcher polls completed mid candles from the v20 API.
type OandaFetcher struct {
	client   *resty.Client
	timespan marketdata.Timespan
	limit    int
}

// NewOandaFetcher creates a fetcher. baseURL takes precedence over practice.
func NewOandaFetcher(token string, practice bool, baseURL string, timespan marketdata.Timespan) (*OandaFetcher, error) {
	if token == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "oanda token is required")
	}

	if baseURL == "" {
		baseURL = oandaLiveURL
		if practice {
			baseURL = oandaPracticeURL
		}
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Accept-Datetime-Format", "RFC3339")

	return &OandaFetcher{client: client, timespan: timespan, limit: DefaultFetchLimit}, nil
}

func (f *OandaFetcher) FetchLatest(ctx context.Context, symbol string) ([]types.Bar, error) {
	instrument, err := venueSymbol(marketdata.ProviderOanda, symbol)
	if err != nil {
		return nil, err
	}

	var out oandaCandles

	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("instrument", instrument).
		SetQueryParams(map[string]string{
			"granularity": f.timespan.OandaGranularity(),
			"count":       strconv.Itoa(f.limit + 1),
			"price":       "M",
		}).
		SetResult(&out).
		Get("/v3/instruments/{instrument}/candles")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch candles for %s", instrument)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "oanda returned %d for %s candles", resp.StatusCode(), instrument)
	}

	bars := make([]types.Bar, 0, len(out.Candles))

	for _, c := range out.Candles {
		if !c.Complete {
			continue
		}

		at, err := time.Parse(time.RFC3339Nano, c.Time)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid candle time %q", c.Time)
		}

		values, err := parseFloats(c.Mid.O, c.Mid.H, c.Mid.L, c.Mid.C)
		if err != nil {
			return nil, err
		}

		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   at.UTC(),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: float64(c.Volume),
		})
	}

	sortBars(bars)

	return bars, nil
}

func parseFloats(raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))

	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid number %q", s)
		}

		out[i] = v
	}

	return out, nil
}
