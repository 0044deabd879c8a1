package broker

import (
	"regexp"
	"strings"

	"github.com/rxtech-lab/argo-core/pkg/errors"
)

const (
	VenueSimulated = "simulated"
	VenueBinance   = "binance"
	VenueAlpaca    = "alpaca"
	VenueOanda     = "oanda"
	VenueOKX       = "okx"
	VenueIB        = "ib"
)

// cryptoQuotes are matched longest first when splitting a concatenated pair.
var cryptoQuotes = []string{"FDUSD", "USDT", "USDC", "BUSD", "USD", "EUR", "BTC", "ETH", "BNB"}

var (
	pairPattern     = regexp.MustCompile(`^([A-Z0-9]{2,10})[/_\-]([A-Z0-9]{2,10})$`)
	forexPattern    = regexp.MustCompile(`^[A-Z]{6}$`)
	equityPattern   = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)
	ibNativePattern = regexp.MustCompile(`^[A-Z0-9.]+-(CASH|CMDTY|STK)-[A-Z]+$`)
	metalPrefixes   = []string{"XAU", "XAG", "XPT", "XPD"}
	// fiatCodes are currencies and metals that only trade on forex venues.
	fiatCodes = map[string]bool{
		"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
		"AUD": true, "CAD": true, "NZD": true, "CNH": true, "HKD": true,
		"SGD": true, "SEK": true, "NOK": true, "MXN": true, "ZAR": true,
		"TRY": true, "XAU": true, "XAG": true, "XPT": true, "XPD": true,
	}
)

// TranslateSymbol maps a core symbol such as "EURUSD" or "BTC/USDT" into
// the notation of venue. Unrecognized formats are rejected with
// ErrCodeUnknownSymbol; nothing is guessed.
func TranslateSymbol(venue, symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", errors.New(errors.ErrCodeUnknownSymbol, "symbol is empty")
	}

	var (
		out string
		ok  bool
	)

	switch venue {
	case VenueSimulated:
		out, ok = s, true
	case VenueOanda:
		out, ok = oandaSymbol(s)
	case VenueIB:
		out, ok = ibSymbol(s)
	case VenueOKX:
		out, ok = joinPair(s, "-")
	case VenueBinance:
		out, ok = joinPair(s, "")
	case VenueAlpaca:
		out, ok = alpacaSymbol(s)
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedVenue, "unsupported venue: %s", venue)
	}

	if !ok {
		return "", errors.Newf(errors.ErrCodeUnknownSymbol, "symbol %q has no %s notation", symbol, venue)
	}

	return out, nil
}

func oandaSymbol(s string) (string, bool) {
	if m := pairPattern.FindStringSubmatch(s); m != nil && len(m[1]) == 3 && len(m[2]) == 3 {
		return m[1] + "_" + m[2], true
	}

	if forexPattern.MatchString(s) {
		return s[:3] + "_" + s[3:], true
	}

	return "", false
}

func ibSymbol(s string) (string, bool) {
	if ibNativePattern.MatchString(s) {
		return s, true
	}

	if m := pairPattern.FindStringSubmatch(s); m != nil && len(m[1]) == 3 && len(m[2]) == 3 {
		s = m[1] + m[2]
	}

	if !forexPattern.MatchString(s) {
		return "", false
	}

	for _, prefix := range metalPrefixes {
		if strings.HasPrefix(s, prefix) {
			return s + "-CMDTY-SMART", true
		}
	}

	return s[:3] + "." + s[3:] + "-CASH-IDEALPRO", true
}

func alpacaSymbol(s string) (string, bool) {
	if base, quote, ok := cryptoPair(s); ok && (strings.ContainsAny(s, "/_-") || len(s) >= 6) {
		return base + "/" + quote, true
	}

	if equityPattern.MatchString(s) {
		return s, true
	}

	return "", false
}

// joinPair re-joins a crypto pair with sep.
func joinPair(s, sep string) (string, bool) {
	base, quote, ok := cryptoPair(s)
	if !ok {
		return "", false
	}

	return base + sep + quote, true
}

// cryptoPair splits s like splitPair but refuses forex pairs such as
// "EURUSD", which crypto venues do not list.
func cryptoPair(s string) (string, string, bool) {
	base, quote, ok := splitPair(s)
	if !ok || (fiatCodes[base] && fiatCodes[quote]) {
		return "", "", false
	}

	return base, quote, true
}

// splitPair splits "BTC/USDT", "BTC-USDT", "BTC_USDT" or "BTCUSDT".
func splitPair(s string) (string, string, bool) {
	if m := pairPattern.FindStringSubmatch(s); m != nil {
		return m[1], m[2], true
	}

	for _, quote := range cryptoQuotes {
		base, found := strings.CutSuffix(s, quote)
		if found && len(base) >= 2 && isAlnum(base) {
			return base, quote, true
		}
	}

	return "", "", false
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}

	return true
}

// IsCryptoSymbol reports whether an Alpaca venue symbol is a crypto pair.
func IsCryptoSymbol(venueSymbol string) bool {
	return strings.Contains(venueSymbol, "/")
}
