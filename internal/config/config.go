// Package config loads the core configuration from YAML and the environment.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-core/internal/analytics"
	"github.com/rxtech-lab/argo-core/internal/broker"
	"github.com/rxtech-lab/argo-core/internal/commission"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata/provider"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config is the root configuration.
type Config struct {
	LogLevel  string           `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"oneof=debug info warn error"`
	Backtest  BacktestConfig   `yaml:"backtest" json:"backtest"`
	Analytics analytics.Config `yaml:"analytics" json:"analytics"`
	Live      LiveConfig       `yaml:"live" json:"live"`
	Data      DataConfig       `yaml:"data" json:"data"`
	Server    ServerConfig     `yaml:"server" json:"server"`
	Store     StoreConfig      `yaml:"store" json:"store"`
	// Venues are validated when an adapter is constructed.
	Venues VenuesConfig `yaml:"venues" json:"venues" validate:"-"`
}

// BacktestConfig configures simulated runs.
type BacktestConfig struct {
	InitialCash    float64          `yaml:"initial_cash" json:"initial_cash" jsonschema:"title=Initial Cash,description=Starting cash when a request does not set one,minimum=0" validate:"gt=0"`
	Commission     commission.Model `yaml:"commission" json:"commission" jsonschema:"title=Commission,description=Commission model charged on fills"`
	CommissionRate float64          `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=Fraction of notional for the percentage model" validate:"gte=0,lt=1"`
	AllowShort     bool             `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short"`
	// StartTime and EndTime are the default window of CLI backtests.
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time"`
}

// UnmarshalYAML decodes the optional window from plain timestamps.
func (c *BacktestConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain struct {
		InitialCash    float64          `yaml:"initial_cash"`
		Commission     commission.Model `yaml:"commission"`
		CommissionRate float64          `yaml:"commission_rate"`
		AllowShort     bool             `yaml:"allow_short"`
		StartTime      *time.Time       `yaml:"start_time"`
		EndTime        *time.Time       `yaml:"end_time"`
	}

	decoded := plain{
		InitialCash:    c.InitialCash,
		Commission:     c.Commission,
		CommissionRate: c.CommissionRate,
		AllowShort:     c.AllowShort,
	}
	if err := value.Decode(&decoded); err != nil {
		return err
	}

	c.InitialCash = decoded.InitialCash
	c.Commission = decoded.Commission
	c.CommissionRate = decoded.CommissionRate
	c.AllowShort = decoded.AllowShort

	if decoded.StartTime != nil {
		c.StartTime = optional.Some(*decoded.StartTime)
	}

	if decoded.EndTime != nil {
		c.EndTime = optional.Some(*decoded.EndTime)
	}

	return nil
}

// MarshalYAML writes the optional window as plain timestamps, omitting
// unset ends.
func (c BacktestConfig) MarshalYAML() (any, error) {
	type plain struct {
		InitialCash    float64          `yaml:"initial_cash"`
		Commission     commission.Model `yaml:"commission"`
		CommissionRate float64          `yaml:"commission_rate"`
		AllowShort     bool             `yaml:"allow_short"`
		StartTime      *time.Time       `yaml:"start_time,omitempty"`
		EndTime        *time.Time       `yaml:"end_time,omitempty"`
	}

	out := plain{
		InitialCash:    c.InitialCash,
		Commission:     c.Commission,
		CommissionRate: c.CommissionRate,
		AllowShort:     c.AllowShort,
	}

	if c.StartTime.IsSome() {
		start := c.StartTime.Unwrap()
		out.StartTime = &start
	}

	if c.EndTime.IsSome() {
		end := c.EndTime.Unwrap()
		out.EndTime = &end
	}

	return out, nil
}

// LiveConfig configures live runs.
type LiveConfig struct {
	Venue          string         `yaml:"venue" json:"venue" jsonschema:"title=Venue,enum=binance,enum=alpaca,enum=oanda,enum=okx" validate:"omitempty,oneof=binance alpaca oanda okx"`
	Symbol         string         `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol"`
	Strategy       string         `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy"`
	Params         map[string]any `yaml:"params" json:"params" jsonschema:"title=Strategy Parameters"`
	Timespan       string         `yaml:"timespan" json:"timespan" jsonschema:"title=Bar Interval,default=1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	PollInterval   time.Duration  `yaml:"poll_interval" json:"poll_interval" jsonschema:"title=Poll Interval" validate:"gt=0"`
	MaxRetries     int            `yaml:"max_retries" json:"max_retries" jsonschema:"title=Max Retries" validate:"gte=0"`
	RequestTimeout time.Duration  `yaml:"request_timeout" json:"request_timeout" jsonschema:"title=Request Timeout" validate:"gt=0"`
	SnapshotEvery  int            `yaml:"snapshot_every" json:"snapshot_every" jsonschema:"title=Snapshot Every,description=Emit rolling results every N bars" validate:"gte=0"`
}

// DataConfig locates historical bars.
type DataConfig struct {
	Dir string `yaml:"dir" json:"dir" jsonschema:"title=Data Directory,description=Directory of <SYMBOL>.parquet files" validate:"required"`
	// MockFallback serves generated bars for symbols without a file.
	MockFallback bool `yaml:"mock_fallback" json:"mock_fallback" jsonschema:"title=Mock Fallback"`
}

// ServerConfig configures the HTTP API and the task workers.
type ServerConfig struct {
	Addr      string `yaml:"addr" json:"addr" jsonschema:"title=Listen Address" validate:"required"`
	Workers   int    `yaml:"workers" json:"workers" jsonschema:"title=Workers" validate:"gt=0"`
	QueueSize int    `yaml:"queue_size" json:"queue_size" jsonschema:"title=Queue Size" validate:"gt=0"`
}

// StoreConfig selects the task store.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver" jsonschema:"title=Driver,enum=memory,enum=sqlite" validate:"oneof=memory sqlite"`
	Path   string `yaml:"path" json:"path" jsonschema:"title=SQLite Path" validate:"required_if=Driver sqlite"`
}

// VenuesConfig holds the credentials of every venue and data provider.
type VenuesConfig struct {
	Binance       broker.BinanceConfig `yaml:"binance" json:"binance"`
	Alpaca        broker.AlpacaConfig  `yaml:"alpaca" json:"alpaca"`
	Oanda         broker.OandaConfig   `yaml:"oanda" json:"oanda"`
	OKX           broker.OKXConfig     `yaml:"okx" json:"okx"`
	IB            broker.IBConfig      `yaml:"ib" json:"ib"`
	PolygonApiKey string               `yaml:"polygon_api_key" json:"polygon_api_key" jsonschema:"title=Polygon API Key"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Backtest: BacktestConfig{
			InitialCash: 10000,
			Commission:  commission.ModelZero,
			StartTime:   optional.None[time.Time](),
			EndTime:     optional.None[time.Time](),
		},
		Analytics: analytics.DefaultConfig(),
		Live: LiveConfig{
			Timespan:       "1h",
			PollInterval:   5 * time.Second,
			MaxRetries:     10,
			RequestTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Dir:          "./data",
			MockFallback: true,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			Workers:   2,
			QueueSize: 64,
		},
		Store: StoreConfig{
			Driver: StoreMemory,
		},
		Venues: VenuesConfig{
			Binance: broker.BinanceConfig{QuoteAsset: "USDT"},
			OKX:     broker.OKXConfig{QuoteAsset: "USDT"},
			IB:      broker.IBConfig{Host: "127.0.0.1", Port: 7497, ClientID: 1},
		},
	}
}

// Load reads path (optional), overlays the process environment and
// validates the result.
func Load(path string) (Config, error) {
	var content []byte

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
		}

		content = raw
	}

	return Parse(content, os.LookupEnv)
}

// Parse decodes YAML content over the defaults, applies environment
// overrides from lookup and validates.
func Parse(content []byte, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)

		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every section except venue credentials.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	switch c.Backtest.Commission {
	case commission.ModelZero, commission.ModelInteractiveBroker, commission.ModelPercentage:
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown commission model %q", c.Backtest.Commission)
	}

	if start, end := c.Backtest.StartTime, c.Backtest.EndTime; start.IsSome() && end.IsSome() && !start.Unwrap().Before(end.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidDateRange, "backtest start_time must precede end_time")
	}

	return nil
}

// VenueConfig returns a copy of the typed config of venue, ready for
// broker.NewVenue.
func (v VenuesConfig) VenueConfig(venue string) (any, error) {
	switch venue {
	case broker.VenueBinance:
		cfg := v.Binance

		return &cfg, nil
	case broker.VenueAlpaca:
		cfg := v.Alpaca

		return &cfg, nil
	case broker.VenueOanda:
		cfg := v.Oanda

		return &cfg, nil
	case broker.VenueOKX:
		cfg := v.OKX

		return &cfg, nil
	case broker.VenueIB:
		cfg := v.IB

		return &cfg, nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedVenue, "unsupported venue: %s", venue)
	}
}

// Credentials returns the market data credentials.
func (v VenuesConfig) Credentials() provider.Credentials {
	return provider.Credentials{
		PolygonApiKey:   v.PolygonApiKey,
		AlpacaApiKey:    v.Alpaca.ApiKey,
		AlpacaSecretKey: v.Alpaca.SecretKey,
		OandaToken:      v.Oanda.Token,
		OandaPractice:   v.Oanda.Practice,
		OandaBaseURL:    v.Oanda.BaseURL,
		OKXBaseURL:      v.OKX.BaseURL,
		BinanceBaseURL:  v.Binance.BaseURL,
	}
}
