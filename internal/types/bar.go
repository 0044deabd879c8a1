package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// Bar is one OHLCV candle for a fixed time interval.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks that the bar is internally consistent.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return errors.New(errors.ErrCodeInvalidBar, "bar has no timestamp")
	}

	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has a non-finite value", b.Time.Format(time.RFC3339))
		}
	}

	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has high/low outside open/close", b.Time.Format(time.RFC3339))
	}

	if b.Volume < 0 {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has negative volume", b.Time.Format(time.RFC3339))
	}

	return nil
}

// Crosses reports whether price lies within the bar's low/high range.
func (b Bar) Crosses(price float64) bool {
	return b.Low <= price && price <= b.High
}
