package broker

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// BinanceConfig contains configuration for Binance spot trading.
type BinanceConfig struct {
	ApiKey     string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey  string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	Testnet    bool   `json:"testnet" yaml:"testnet" jsonschema:"title=Testnet,description=Use the Binance spot testnet"`
	BaseURL    string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL,description=Overrides the API endpoint" validate:"omitempty,url"`
	QuoteAsset string `json:"quoteAsset,omitempty" yaml:"quote_asset" jsonschema:"title=Quote Asset,default=USDT"`
}

// AlpacaConfig contains configuration for Alpaca trading.
type AlpacaConfig struct {
	ApiKey    string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key" validate:"required"`
	Paper     bool   `json:"paper" yaml:"paper" jsonschema:"title=Paper,description=Trade the paper account"`
	BaseURL   string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL" validate:"omitempty,url"`
}

// OandaConfig contains configuration for the OANDA v20 REST API.
type OandaConfig struct {
	Token     string `json:"token" yaml:"token" jsonschema:"title=Token,description=Personal access token" validate:"required"`
	AccountID string `json:"accountId" yaml:"account_id" jsonschema:"title=Account ID" validate:"required"`
	Practice  bool   `json:"practice" yaml:"practice" jsonschema:"title=Practice,description=Use the fxTrade practice environment"`
	BaseURL   string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL" validate:"omitempty,url"`
}

// OKXConfig contains configuration for the OKX v5 REST API.
type OKXConfig struct {
	ApiKey     string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key" validate:"required"`
	SecretKey  string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key" validate:"required"`
	Passphrase string `json:"passphrase" yaml:"passphrase" jsonschema:"title=Passphrase" validate:"required"`
	Demo       bool   `json:"demo" yaml:"demo" jsonschema:"title=Demo,description=Send x-simulated-trading requests"`
	BaseURL    string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL" validate:"omitempty,url"`
	QuoteAsset string `json:"quoteAsset,omitempty" yaml:"quote_asset" jsonschema:"title=Quote Asset,default=USDT"`
}

// IBConfig contains the TWS gateway address for Interactive Brokers.
type IBConfig struct {
	Host     string `json:"host" yaml:"host" jsonschema:"title=Host,default=127.0.0.1" validate:"required"`
	Port     int    `json:"port" yaml:"port" jsonschema:"title=Port,default=7497" validate:"required,gt=0,lt=65536"`
	ClientID int    `json:"clientId" yaml:"client_id" jsonschema:"title=Client ID,default=1"`
}

func (c *BinanceConfig) Validate() error { return validateConfig(VenueBinance, c) }
func (c *AlpacaConfig) Validate() error  { return validateConfig(VenueAlpaca, c) }
func (c *OandaConfig) Validate() error   { return validateConfig(VenueOanda, c) }
func (c *OKXConfig) Validate() error     { return validateConfig(VenueOKX, c) }
func (c *IBConfig) Validate() error      { return validateConfig(VenueIB, c) }

func validateConfig(venue string, config any) error {
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrapf(errors.ErrCodeMissingCredentials, err, "invalid %s venue config", venue)
	}

	return nil
}
