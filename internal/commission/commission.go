package commission

import "math"

// Fee prices the commission charged on a fill.
type Fee interface {
	// Calculate returns the commission in quote currency for a fill of
	// quantity units at price. The sign of quantity is ignored.
	Calculate(quantity float64, price float64) float64
}

type Model string

const (
	ModelZero              Model = "zero_commission"
	ModelInteractiveBroker Model = "interactive_broker"
	ModelPercentage        Model = "percentage"
)

var AllModels = []any{
	ModelZero,
	ModelInteractiveBroker,
	ModelPercentage,
}

// ForModel returns the fee handler for model. rate is only used by the
// percentage model. Unknown models charge nothing.
func ForModel(model Model, rate float64) Fee {
	switch model {
	case ModelInteractiveBroker:
		return NewInteractiveBrokerFee()
	case ModelPercentage:
		return NewPercentageFee(rate)
	default:
		return NewZeroFee()
	}
}

// ZeroFee charges nothing.
type ZeroFee struct{}

func NewZeroFee() Fee {
	return &ZeroFee{}
}

func (f *ZeroFee) Calculate(quantity float64, price float64) float64 {
	return 0.0
}

// InteractiveBrokerFee charges per share with a minimum per order.
type InteractiveBrokerFee struct {
	PerShare float64
	Minimum  float64
}

func NewInteractiveBrokerFee() Fee {
	return &InteractiveBrokerFee{PerShare: 0.005, Minimum: 1.0}
}

func (f *InteractiveBrokerFee) Calculate(quantity float64, price float64) float64 {
	fee := f.PerShare * math.Abs(quantity)
	if fee < f.Minimum {
		return f.Minimum
	}

	return fee
}

// PercentageFee charges a fraction of the notional, e.g. 0.001 for 10 bps.
type PercentageFee struct {
	Rate float64
}

func NewPercentageFee(rate float64) Fee {
	return &PercentageFee{Rate: rate}
}

func (f *PercentageFee) Calculate(quantity float64, price float64) float64 {
	return math.Abs(quantity*price) * f.Rate
}
