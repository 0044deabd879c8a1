package marketdata

import (
	"encoding/json"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// ProviderType identifies a market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
	ProviderAlpaca  ProviderType = "alpaca"
	ProviderOanda   ProviderType = "oanda"
	ProviderOKX     ProviderType = "okx"
)

// ProviderInfo contains metadata about a market data provider.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
	// Download is true when the provider serves historical downloads.
	Download bool `json:"download"`
	// Live is true when the provider can feed a live bar stream.
	Live bool `json:"live"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderPolygon: {
		Name:         string(ProviderPolygon),
		DisplayName:  "Polygon.io",
		Description:  "US stock market aggregates",
		RequiresAuth: true,
		Download:     true,
	},
	ProviderBinance: {
		Name:        string(ProviderBinance),
		DisplayName: "Binance",
		Description: "Spot crypto klines",
		Download:    true,
		Live:        true,
	},
	ProviderAlpaca: {
		Name:         string(ProviderAlpaca),
		DisplayName:  "Alpaca",
		Description:  "US equities and crypto bars",
		RequiresAuth: true,
		Download:     true,
		Live:         true,
	},
	ProviderOanda: {
		Name:         string(ProviderOanda),
		DisplayName:  "OANDA",
		Description:  "Forex and metals candles from the v20 API",
		RequiresAuth: true,
		Live:         true,
	},
	ProviderOKX: {
		Name:        string(ProviderOKX),
		DisplayName: "OKX",
		Description: "Spot crypto candles from the v5 API",
		Live:        true,
	},
}

// GetSupportedProviders returns all provider names, sorted.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	slices.Sort(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	return info, nil
}

// GetDownloadConfigSchema returns the JSON schema of DownloadConfig.
func GetDownloadConfigSchema() (string, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}

	//nolint:exhaustruct // empty struct is intentional for schema generation
	schema := reflector.Reflect(DownloadConfig{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to marshal schema", err)
	}

	return string(out), nil
}
