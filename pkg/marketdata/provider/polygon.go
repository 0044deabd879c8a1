package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
)

// PolygonAPIClient is the subset of the Polygon REST client used here.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

// PolygonAggsIterator iterates aggregate pages.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

type polygonAPIClient struct {
	client *polygon.Client
}

func (c *polygonAPIClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

// PolygonClient downloads aggregates from Polygon.io.
type PolygonClient struct {
	client PolygonAPIClient
}

// NewPolygonClient creates a client; apiKey is required.
func NewPolygonClient(apiKey string) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "polygon api key is required")
	}

	return NewPolygonClientWithAPI(&polygonAPIClient{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a client over api.
func NewPolygonClientWithAPI(api PolygonAPIClient) *PolygonClient {
	return &PolygonClient{client: api}
}

func (c *PolygonClient) Download(ctx context.Context, params marketdata.DownloadParams, w datasource.Writer, onProgress marketdata.OnDownloadProgress) (int, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	query := models.ListAggsParams{
		Ticker:     params.Ticker,
		Multiplier: params.Timespan.Multiplier(),
		Timespan:   params.Timespan.Timespan(),
		From:       models.Millis(params.Start),
		To:         models.Millis(params.End.Add(-time.Millisecond)),
	}.WithLimit(50000)

	total := float64(params.End.Sub(params.Start) / params.Timespan.Duration())
	written := 0

	iter := c.client.ListAggs(ctx, query)
	for iter.Next() {
		agg := iter.Item()

		bar := types.Bar{
			Symbol: params.Ticker,
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if !bar.Time.Before(params.End) {
			continue
		}

		if err := w.Write(bar); err != nil {
			return written, err
		}

		written++

		if written%100 == 0 {
			onProgress(float64(written), total, fmt.Sprintf("Downloading %s", params.Ticker))
		}
	}

	if err := iter.Err(); err != nil {
		return written, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to list aggregates for %s", params.Ticker)
	}

	onProgress(total, total, fmt.Sprintf("Downloaded %s", params.Ticker))

	return written, nil
}
