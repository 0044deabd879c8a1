package marketdata

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// DownloadConfig is the user facing download request.
type DownloadConfig struct {
	Provider  string `json:"provider" yaml:"provider" jsonschema:"title=Provider,description=Market data provider,enum=polygon,enum=binance,enum=alpaca" validate:"required,oneof=polygon binance alpaca"`
	Ticker    string `json:"ticker" yaml:"ticker" jsonschema:"title=Ticker,description=The symbol to download (e.g. SPY or BTCUSDT)" validate:"required"`
	StartDate string `json:"startDate" yaml:"start_date" jsonschema:"title=Start Date,description=Start date (YYYY-MM-DD),format=date" validate:"required"`
	EndDate   string `json:"endDate" yaml:"end_date" jsonschema:"title=End Date,description=End date (YYYY-MM-DD) exclusive,format=date" validate:"required"`
	Interval  string `json:"interval" yaml:"interval" jsonschema:"title=Interval,description=Bar interval,enum=1m,enum=5m,enum=15m,enum=30m,enum=1h,enum=4h,enum=1d,enum=1w" validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
}

// Validate validates the fields and the date range.
func (c DownloadConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download config", err)
	}

	_, err := c.ToDownloadParams()

	return err
}

// ToDownloadParams converts the config to DownloadParams.
func (c DownloadConfig) ToDownloadParams() (DownloadParams, error) {
	start, err := time.Parse(types.DateLayout, c.StartDate)
	if err != nil {
		return DownloadParams{}, errors.Wrapf(errors.ErrCodeInvalidDate, err, "invalid start date %q, expected YYYY-MM-DD", c.StartDate)
	}

	end, err := time.Parse(types.DateLayout, c.EndDate)
	if err != nil {
		return DownloadParams{}, errors.Wrapf(errors.ErrCodeInvalidDate, err, "invalid end date %q, expected YYYY-MM-DD", c.EndDate)
	}

	if !start.Before(end) {
		return DownloadParams{}, errors.Newf(errors.ErrCodeInvalidDateRange, "start date %s must precede end date %s", c.StartDate, c.EndDate)
	}

	timespan, err := ParseTimespan(c.Interval)
	if err != nil {
		return DownloadParams{}, err
	}

	return DownloadParams{
		Ticker:   c.Ticker,
		Start:    start,
		End:      end,
		Timespan: timespan,
	}, nil
}

// ParseDownloadConfig parses and validates a JSON download config.
func ParseDownloadConfig(jsonConfig string) (DownloadConfig, error) {
	var config DownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return DownloadConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse download config", err)
	}

	if err := config.Validate(); err != nil {
		return DownloadConfig{}, err
	}

	return config, nil
}
