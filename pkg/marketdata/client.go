package marketdata

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// OnDownloadProgress reports download progress. Total may be an estimate.
type OnDownloadProgress = func(current float64, total float64, message string)

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker   string    `validate:"required"`
	Start    time.Time `validate:"required"`
	End      time.Time `validate:"required,gtfield=Start"`
	Timespan Timespan  `validate:"required"`
}

// Downloader streams historical bars of one provider into w and returns how
// many bars it wrote.
type Downloader interface {
	Download(ctx context.Context, params DownloadParams, w datasource.Writer, onProgress OnDownloadProgress) (int, error)
}

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	// DataPath is the directory backtests read <SYMBOL>.parquet files from.
	DataPath string `validate:"required"`
}

// Client downloads data from a provider into the parquet store.
type Client struct {
	downloader Downloader
	config     ClientConfig
	validate   *validator.Validate
	onProgress OnDownloadProgress
	newWriter  func(path string) datasource.Writer
}

// NewClient creates a market data client around downloader.
func NewClient(config ClientConfig, downloader Downloader, onProgress OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	if downloader == nil {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "no downloader configured")
	}

	if onProgress == nil {
		onProgress = func(float64, float64, string) {}
	}

	return &Client{
		downloader: downloader,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
		newWriter: func(path string) datasource.Writer {
			return datasource.NewDuckDBWriter(path)
		},
	}, nil
}

// Download fetches params into <DataPath>/<TICKER>.parquet, replacing any
// previous file, and returns the path.
func (c *Client) Download(ctx context.Context, params DownloadParams) (path string, err error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	if _, err := ParseTimespan(string(params.Timespan)); err != nil {
		return "", err
	}

	w := c.newWriter(datasource.ParquetPath(c.config.DataPath, params.Ticker))
	if err := w.Initialize(); err != nil {
		return "", err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	count, err := c.downloader.Download(ctx, params, w, c.onProgress)
	if err != nil {
		return "", err
	}

	if count == 0 {
		return "", errors.Newf(errors.ErrCodeNoDataFound, "no data for %s between %s and %s",
			params.Ticker, params.Start.Format(time.RFC3339), params.End.Format(time.RFC3339))
	}

	return w.Finalize()
}
