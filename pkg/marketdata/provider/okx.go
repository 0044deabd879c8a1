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

const okxBaseURL = "https://www.okx.com"

type okxCandles struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// OKXFetcher polls confirmed candles from the public v5 market endpoint.
type OKXFetcher struct {
	client   *resty.Client
	timespan marketdata.Timespan
	limit    int
}

// NewOKXFetcher creates a fetcher; an empty baseURL uses the public host.
func NewOKXFetcher(baseURL string, timespan marketdata.Timespan) *OKXFetcher {
	if baseURL == "" {
		baseURL = okxBaseURL
	}

	return &OKXFetcher{
		client:   resty.New().SetBaseURL(baseURL),
		timespan: timespan,
		limit:    DefaultFetchLimit,
	}
}

func (f *OKXFetcher) FetchLatest(ctx context.Context, symbol string) ([]types.Bar, error) {
	instID, err := venueSymbol(marketdata.ProviderOKX, symbol)
	if err != nil {
		return nil, err
	}

	var out okxCandles

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"instId": instID,
			"bar":    f.timespan.OKXBar(),
			"limit":  strconv.Itoa(f.limit + 1),
		}).
		SetResult(&out).
		Get("/api/v5/market/candles")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch candles for %s", instID)
	}

	if resp.IsError() || out.Code != "0" {
		return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "okx returned %d code %s: %s", resp.StatusCode(), out.Code, out.Msg)
	}

	bars := make([]types.Bar, 0, len(out.Data))

	// rows: ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm
	for _, row := range out.Data {
		if len(row) < 9 {
			return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed, "okx candle has %d fields", len(row))
		}

		if row[8] != "1" {
			continue
		}

		millis, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid candle timestamp %q", row[0])
		}

		values, err := parseFloats(row[1], row[2], row[3], row[4], row[5])
		if err != nil {
			return nil, err
		}

		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   time.UnixMilli(millis).UTC(),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}

	sortBars(bars)

	return bars, nil
}
