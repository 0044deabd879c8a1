package config

import (
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-core/pkg/errors"
)

type envBinding struct {
	name  string
	apply func(cfg *Config, value string) error
}

func stringVar(target func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		*target(cfg) = value

		return nil
	}
}

func boolVar(target func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}

		*target(cfg) = v

		return nil
	}
}

func intVar(target func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		*target(cfg) = v

		return nil
	}
}

func floatVar(target func(*Config) *float64) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}

		*target(cfg) = v

		return nil
	}
}

func durationVar(target func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, value string) error {
		v, err := time.ParseDuration(value)
		if err != nil {
			return err
		}

		*target(cfg) = v

		return nil
	}
}

var envBindings = []envBinding{
	{"ARGO_LOG_LEVEL", stringVar(func(c *Config) *string { return &c.LogLevel })},
	{"ARGO_INITIAL_CASH", floatVar(func(c *Config) *float64 { return &c.Backtest.InitialCash })},
	{"ARGO_DATA_DIR", stringVar(func(c *Config) *string { return &c.Data.Dir })},
	{"ARGO_MOCK_FALLBACK", boolVar(func(c *Config) *bool { return &c.Data.MockFallback })},
	{"ARGO_SERVER_ADDR", stringVar(func(c *Config) *string { return &c.Server.Addr })},
	{"ARGO_WORKERS", intVar(func(c *Config) *int { return &c.Server.Workers })},
	{"ARGO_STORE_DRIVER", stringVar(func(c *Config) *string { return &c.Store.Driver })},
	{"ARGO_STORE_PATH", stringVar(func(c *Config) *string { return &c.Store.Path })},
	{"ARGO_POLL_INTERVAL", durationVar(func(c *Config) *time.Duration { return &c.Live.PollInterval })},
	{"ARGO_MAX_RETRIES", intVar(func(c *Config) *int { return &c.Live.MaxRetries })},
	{"ARGO_REQUEST_TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.Live.RequestTimeout })},

	{"OANDA_TOKEN", stringVar(func(c *Config) *string { return &c.Venues.Oanda.Token })},
	{"OANDA_ACCOUNT_ID", stringVar(func(c *Config) *string { return &c.Venues.Oanda.AccountID })},
	{"OANDA_PRACTICE", boolVar(func(c *Config) *bool { return &c.Venues.Oanda.Practice })},
	{"OKX_API_KEY", stringVar(func(c *Config) *string { return &c.Venues.OKX.ApiKey })},
	{"OKX_SECRET", stringVar(func(c *Config) *string { return &c.Venues.OKX.SecretKey })},
	{"OKX_PASSPHRASE", stringVar(func(c *Config) *string { return &c.Venues.OKX.Passphrase })},
	{"OKX_DEMO", boolVar(func(c *Config) *bool { return &c.Venues.OKX.Demo })},
	{"BINANCE_API_KEY", stringVar(func(c *Config) *string { return &c.Venues.Binance.ApiKey })},
	{"BINANCE_SECRET_KEY", stringVar(func(c *Config) *string { return &c.Venues.Binance.SecretKey })},
	{"ALPACA_API_KEY", stringVar(func(c *Config) *string { return &c.Venues.Alpaca.ApiKey })},
	{"ALPACA_API_SECRET", stringVar(func(c *Config) *string { return &c.Venues.Alpaca.SecretKey })},
	{"POLYGON_API_KEY", stringVar(func(c *Config) *string { return &c.Venues.PolygonApiKey })},
}

// applyEnv overlays every set, non-empty variable onto cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	for _, binding := range envBindings {
		value, ok := lookup(binding.name)
		if !ok || value == "" {
			continue
		}

		if err := binding.apply(cfg, value); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid %s=%q", binding.name, value)
		}
	}

	return nil
}

// EnvNames lists the environment variables read by Load.
func EnvNames() []string {
	names := make([]string, len(envBindings))
	for i, binding := range envBindings {
		names[i] = binding.name
	}

	return names
}
