package strategy

import (
	"github.com/rxtech-lab/argo-core/internal/indicator"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

const SmaCrossName = "SmaCross"

// SmaCrossParams configures SmaCross.
type SmaCrossParams struct {
	Fast int     `yaml:"pfast" json:"pfast" jsonschema:"title=Fast period,default=10,minimum=1" validate:"gt=0,ltfield=Slow"`
	Slow int     `yaml:"pslow" json:"pslow" jsonschema:"title=Slow period,default=30,minimum=2" validate:"gt=0"`
	Size float64 `yaml:"size" json:"size" jsonschema:"title=Order size,default=1" validate:"gt=0"`
}

// DefaultSmaCrossParams returns the default periods 10/30 and size 1.
func DefaultSmaCrossParams() SmaCrossParams {
	return SmaCrossParams{Fast: 10, Slow: 30, Size: 1}
}

// SmaCrossDescriptor registers SmaCross.
func SmaCrossDescriptor() Descriptor {
	return Descriptor{
		Name:          SmaCrossName,
		Description:   "Buys when the fast SMA crosses above the slow SMA and closes when it crosses below.",
		EngineVersion: "^1.0",
		New:           func() Strategy { return &SmaCross{} },
		Params:        SmaCrossParams{},
	}
}

// SmaCross trades the crossover of two simple moving averages of the close.
//
// A cross is detected against the last non-zero difference between the
// averages: an upward cross needs fast > slow now and fast < slow at the
// last bar where they differed. Touching without crossing emits nothing,
// so buy and close intents always alternate.
type SmaCross struct {
	params   SmaCrossParams
	fast     *indicator.SMA
	slow     *indicator.SMA
	lastSign int
}

func (s *SmaCross) Name() string {
	return SmaCrossName
}

func (s *SmaCross) Init(params map[string]any) error {
	p := DefaultSmaCrossParams()
	if err := DecodeParams(params, &p); err != nil {
		return err
	}

	fast, err := indicator.NewSMA(p.Fast)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid fast period", err)
	}

	slow, err := indicator.NewSMA(p.Slow)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid slow period", err)
	}

	s.params = p
	s.fast = fast
	s.slow = slow
	s.lastSign = 0

	return nil
}

func (s *SmaCross) OnBar(bar types.Bar) ([]types.OrderIntent, error) {
	if s.fast == nil || s.slow == nil {
		return nil, errors.New(errors.ErrCodeStrategyRuntimeError, "SmaCross used before Init")
	}

	fast, fastReady := s.fast.Update(bar.Close)
	slow, slowReady := s.slow.Update(bar.Close)

	if !fastReady || !slowReady {
		return nil, nil
	}

	sign := 0

	switch {
	case fast > slow:
		sign = 1
	case fast < slow:
		sign = -1
	}

	if sign == 0 {
		return nil, nil
	}

	previous := s.lastSign
	s.lastSign = sign

	switch {
	case previous < 0 && sign > 0:
		return []types.OrderIntent{{
			Symbol: bar.Symbol,
			Side:   types.SideBuy,
			Type:   types.OrderTypeMarket,
			Size:   s.params.Size,
			Reason: "sma_cross_up",
		}}, nil
	case previous > 0 && sign < 0:
		return []types.OrderIntent{{
			Symbol:   bar.Symbol,
			Side:     types.SideSell,
			Type:     types.OrderTypeMarket,
			CloseAll: true,
			Reason:   "sma_cross_down",
		}}, nil
	}

	return nil, nil
}

// Params returns the effective parameters after Init.
func (s *SmaCross) Params() SmaCrossParams {
	return s.params
}
