// Package provider implements historical downloaders and live bar fetchers
// for the supported market data venues.
package provider

import (
	"context"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-core/internal/broker"
	"github.com/rxtech-lab/argo-core/internal/stream"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
)

// DefaultFetchLimit is how many recent bars a fetcher asks for.
const DefaultFetchLimit = 10

// Credentials holds the secrets of every provider. Only the fields of the
// selected provider are used.
type Credentials struct {
	PolygonApiKey   string
	AlpacaApiKey    string
	AlpacaSecretKey string
	AlpacaDataURL   string
	OandaToken      string
	OandaPractice   bool
	OandaBaseURL    string
	OKXBaseURL      string
	BinanceBaseURL  string
}

// NewDownloader creates the historical downloader for providerType.
func NewDownloader(providerType marketdata.ProviderType, creds Credentials) (marketdata.Downloader, error) {
	switch providerType {
	case marketdata.ProviderPolygon:
		return NewPolygonClient(creds.PolygonApiKey)
	case marketdata.ProviderBinance:
		return NewBinanceClient(creds.BinanceBaseURL), nil
	case marketdata.ProviderAlpaca:
		return NewAlpacaClient(creds.AlpacaApiKey, creds.AlpacaSecretKey, creds.AlpacaDataURL)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "provider %s does not support downloads", providerType)
	}
}

// NewFetcher creates a live bar fetcher for providerType emitting bars of
// the given timespan.
func NewFetcher(providerType marketdata.ProviderType, timespan marketdata.Timespan, creds Credentials) (stream.Fetcher, error) {
	switch providerType {
	case marketdata.ProviderBinance:
		return NewBinanceClient(creds.BinanceBaseURL).Fetcher(timespan), nil
	case marketdata.ProviderAlpaca:
		client, err := NewAlpacaClient(creds.AlpacaApiKey, creds.AlpacaSecretKey, creds.AlpacaDataURL)
		if err != nil {
			return nil, err
		}

		return client.Fetcher(timespan), nil
	case marketdata.ProviderOanda:
		return NewOandaFetcher(creds.OandaToken, creds.OandaPractice, creds.OandaBaseURL, timespan)
	case marketdata.ProviderOKX:
		return NewOKXFetcher(creds.OKXBaseURL, timespan), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "provider %s does not support live bars", providerType)
	}
}

// closedBars keeps the bars whose interval ended at or before now, sorted
// by time, labeled with the canonical symbol.
func closedBars(symbol string, bars []types.Bar, interval time.Duration, now time.Time) []types.Bar {
	out := make([]types.Bar, 0, len(bars))

	for _, bar := range bars {
		if bar.Time.Add(interval).After(now) {
			continue
		}

		bar.Symbol = symbol
		out = append(out, bar)
	}

	sortBars(out)

	return out
}

func sortBars(bars []types.Bar) {
	slices.SortFunc(bars, func(a, b types.Bar) int {
		return a.Time.Compare(b.Time)
	})
}

// venueSymbol maps a canonical symbol to the provider's notation.
func venueSymbol(providerType marketdata.ProviderType, symbol string) (string, error) {
	return broker.TranslateSymbol(string(providerType), symbol)
}

// retryPage retries one page request on transient failures.
func retryPage[T any](ctx context.Context, call func() (T, error)) (T, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	var out T

	err := backoff.Retry(func() error {
		var err error

		out, err = call()
		if err != nil && !errors.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}, policy)

	return out, err
}
