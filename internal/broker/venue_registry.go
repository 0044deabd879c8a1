package broker

import (
	"encoding/json"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// VenueInfo describes a supported venue.
type VenueInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var venueRegistry = map[string]VenueInfo{
	VenueBinance: {
		Name:        VenueBinance,
		DisplayName: "Binance",
		Description: "Binance spot trading, testnet or live",
	},
	VenueAlpaca: {
		Name:        VenueAlpaca,
		DisplayName: "Alpaca",
		Description: "Alpaca US equities and crypto, paper or live",
	},
	VenueOanda: {
		Name:        VenueOanda,
		DisplayName: "OANDA",
		Description: "OANDA v20 forex and metals, practice or live",
	},
	VenueOKX: {
		Name:        VenueOKX,
		DisplayName: "OKX",
		Description: "OKX spot trading, demo or live",
	},
	VenueIB: {
		Name:        VenueIB,
		DisplayName: "Interactive Brokers",
		Description: "Symbol translation only; orders need the TWS socket gateway",
	},
}

// SupportedVenues returns the venue names in sorted order.
func SupportedVenues() []string {
	names := make([]string, 0, len(venueRegistry))
	for name := range venueRegistry {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// GetVenueInfo returns metadata for a venue.
func GetVenueInfo(name string) (VenueInfo, error) {
	info, exists := venueRegistry[name]
	if !exists {
		return VenueInfo{}, errors.Newf(errors.ErrCodeUnsupportedVenue, "unsupported venue: %s", name)
	}

	return info, nil
}

// NewVenueConfig returns an empty config value for the venue.
func NewVenueConfig(name string) (any, error) {
	switch name {
	case VenueBinance:
		return &BinanceConfig{}, nil
	case VenueAlpaca:
		return &AlpacaConfig{}, nil
	case VenueOanda:
		return &OandaConfig{}, nil
	case VenueOKX:
		return &OKXConfig{}, nil
	case VenueIB:
		return &IBConfig{}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedVenue, "unsupported venue: %s", name)
	}
}

// GetVenueConfigSchema returns the JSON schema of a venue's configuration.
func GetVenueConfigSchema(name string) (string, error) {
	config, err := NewVenueConfig(name)
	if err != nil {
		return "", err
	}

	r := new(jsonschema.Reflector)
	r.DoNotReference = true

	raw, err := json.Marshal(r.Reflect(config))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode venue schema", err)
	}

	return string(raw), nil
}

// ParseVenueConfig parses a JSON configuration string for the venue.
func ParseVenueConfig(name string, jsonConfig string) (any, error) {
	config, err := NewVenueConfig(name)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(jsonConfig), config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse %s config", name)
	}

	if v, ok := config.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// NewVenue creates a venue client from its config.
func NewVenue(name string, config any, log *logger.Logger) (Venue, error) {
	switch name {
	case VenueBinance:
		cfg, ok := config.(*BinanceConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for binance venue")
		}

		return NewBinanceVenue(*cfg, log)
	case VenueAlpaca:
		cfg, ok := config.(*AlpacaConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for alpaca venue")
		}

		return NewAlpacaVenue(*cfg, log)
	case VenueOanda:
		cfg, ok := config.(*OandaConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for oanda venue")
		}

		return NewOandaVenue(*cfg, log)
	case VenueOKX:
		cfg, ok := config.(*OKXConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for okx venue")
		}

		return NewOKXVenue(*cfg, log)
	case VenueIB:
		return nil, errors.New(errors.ErrCodeUnsupportedVenue,
			"interactive brokers orders need the TWS socket gateway, which this build does not include")
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedVenue, "unsupported venue: %s", name)
	}
}
