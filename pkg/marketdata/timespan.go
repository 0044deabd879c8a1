package marketdata

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// Timespan is a bar interval such as "1m", "1h" or "1d".
type Timespan string

const (
	TimespanOneMinute      Timespan = "1m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanFourHours      Timespan = "4h"
	TimespanOneDay         Timespan = "1d"
	TimespanOneWeek        Timespan = "1w"
)

type timespanInfo struct {
	multiplier int
	unit       models.Timespan
	duration   time.Duration
	okx        string
	oanda      string
}

var timespans = map[Timespan]timespanInfo{
	TimespanOneMinute:      {1, models.Minute, time.Minute, "1m", "M1"},
	TimespanFiveMinutes:    {5, models.Minute, 5 * time.Minute, "5m", "M5"},
	TimespanFifteenMinutes: {15, models.Minute, 15 * time.Minute, "15m", "M15"},
	TimespanThirtyMinutes:  {30, models.Minute, 30 * time.Minute, "30m", "M30"},
	TimespanOneHour:        {1, models.Hour, time.Hour, "1H", "H1"},
	TimespanFourHours:      {4, models.Hour, 4 * time.Hour, "4H", "H4"},
	TimespanOneDay:         {1, models.Day, 24 * time.Hour, "1Dutc", "D"},
	TimespanOneWeek:        {1, models.Week, 7 * 24 * time.Hour, "1Wutc", "W"},
}

// ParseTimespan validates s.
func ParseTimespan(s string) (Timespan, error) {
	t := Timespan(s)
	if _, ok := timespans[t]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported timespan %q", s)
	}

	return t, nil
}

func (t Timespan) info() timespanInfo {
	if info, ok := timespans[t]; ok {
		return info
	}

	return timespans[TimespanOneDay]
}

// Multiplier is the number of units per bar, e.g. 15 for "15m".
func (t Timespan) Multiplier() int {
	return t.info().multiplier
}

// Timespan is the Polygon unit.
func (t Timespan) Timespan() models.Timespan {
	return t.info().unit
}

// Duration is the length of one bar.
func (t Timespan) Duration() time.Duration {
	return t.info().duration
}

// BinanceInterval is the kline interval.
func (t Timespan) BinanceInterval() string {
	if _, ok := timespans[t]; !ok {
		return string(TimespanOneDay)
	}

	return string(t)
}

// OKXBar is the OKX candle bar size.
func (t Timespan) OKXBar() string {
	return t.info().okx
}

// OandaGranularity is the v20 candle granularity.
func (t Timespan) OandaGranularity() string {
	return t.info().oanda
}
