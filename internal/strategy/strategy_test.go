package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func closes(values ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(values))

	for i, v := range values {
		bars[i] = types.Bar{
			Symbol: "EURUSD",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   v, High: v, Low: v, Close: v,
		}
	}

	return bars
}

func ramp(from, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}

	return out
}

func (suite *StrategyTestSuite) run(s Strategy, bars []types.Bar) []types.OrderIntent {
	var intents []types.OrderIntent

	for _, bar := range bars {
		out, err := s.OnBar(bar)
		suite.Require().NoError(err)

		intents = append(intents, out...)
	}

	return intents
}

func (suite *StrategyTestSuite) TestSingleUpwardCrossBuysOnce() {
	s, err := DefaultRegistry().New(SmaCrossName, map[string]any{"pfast": 3, "pslow": 10})
	suite.Require().NoError(err)

	series := append(ramp(120, -1, 15), ramp(106, 2, 20)...)
	intents := suite.run(s, closes(series...))

	suite.Require().Len(intents, 1)
	suite.Equal(types.SideBuy, intents[0].Side)
	suite.Equal(types.OrderTypeMarket, intents[0].Type)
	suite.Equal(1.0, intents[0].Size)
	suite.Equal("EURUSD", intents[0].Symbol)
}

func (suite *StrategyTestSuite) TestCrossesAlternate() {
	s, err := DefaultRegistry().New(SmaCrossName, map[string]any{"pfast": 3, "pslow": 10, "size": 2.5})
	suite.Require().NoError(err)

	series := append(ramp(120, -1, 15), ramp(106, 2, 20)...)
	series = append(series, ramp(144, -2, 20)...)
	intents := suite.run(s, closes(series...))

	suite.Require().Len(intents, 2)
	suite.Equal(types.SideBuy, intents[0].Side)
	suite.Equal(2.5, intents[0].Size)
	suite.Equal(types.SideSell, intents[1].Side)
	suite.True(intents[1].CloseAll)
}

func (suite *StrategyTestSuite) TestFlatSeriesEmitsNothing() {
	s, err := DefaultRegistry().New(SmaCrossName, nil)
	suite.Require().NoError(err)

	values := make([]float64, 100)
	for i := range values {
		values[i] = 1.1
	}

	suite.Empty(suite.run(s, closes(values...)))
}

func (suite *StrategyTestSuite) TestNoIntentBeforeSlowWindowFills() {
	s, err := DefaultRegistry().New(SmaCrossName, map[string]any{"pfast": 2, "pslow": 5})
	suite.Require().NoError(err)

	suite.Empty(suite.run(s, closes(1, 2, 3, 4)))
}

func (suite *StrategyTestSuite) TestDefaults() {
	s, err := DefaultRegistry().New(SmaCrossName, map[string]any{})
	suite.Require().NoError(err)

	cross, ok := s.(*SmaCross)
	suite.Require().True(ok)
	suite.Equal(DefaultSmaCrossParams(), cross.Params())
}

func (suite *StrategyTestSuite) TestInvalidParams() {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{name: "fast not below slow", params: map[string]any{"pfast": 30, "pslow": 10}},
		{name: "zero fast", params: map[string]any{"pfast": 0}},
		{name: "negative size", params: map[string]any{"size": -1}},
		{name: "unknown key", params: map[string]any{"period": 3}},
		{name: "wrong type", params: map[string]any{"pfast": "fast"}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := DefaultRegistry().New(SmaCrossName, tc.params)
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
			suite.Equal(errors.KindConfiguration, errors.KindOf(err))
		})
	}
}

func (suite *StrategyTestSuite) TestOnBarBeforeInit() {
	_, err := (&SmaCross{}).OnBar(closes(1)[0])
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyRuntimeError))
}

func (suite *StrategyTestSuite) TestUnknownStrategy() {
	_, err := DefaultRegistry().New("Nope", nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownStrategy))
	suite.Contains(err.Error(), "unknown strategy: Nope")
}

func (suite *StrategyTestSuite) TestRegisterDuplicate() {
	r := NewRegistry("v1.0.0")
	suite.Require().NoError(r.Register(SmaCrossDescriptor()))

	err := r.Register(SmaCrossDescriptor())
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyExists))
}

func (suite *StrategyTestSuite) TestRegisterIncompatibleVersion() {
	r := NewRegistry("v2.1.0")

	err := r.Register(SmaCrossDescriptor())
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
	suite.Empty(r.List())
}

func (suite *StrategyTestSuite) TestListSorted() {
	r := NewRegistry("main")
	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		suite.Require().NoError(r.Register(Descriptor{Name: name, New: func() Strategy { return &SmaCross{} }}))
	}

	suite.Equal([]string{"Alpha", "Mid", "Zeta"}, r.List())
}

func (suite *StrategyTestSuite) TestSchema() {
	schema, err := DefaultRegistry().Schema(SmaCrossName)
	suite.Require().NoError(err)
	suite.Equal(SmaCrossName, schema.Title)

	_, ok := schema.Properties.Get("pfast")
	suite.True(ok)
	_, ok = schema.Properties.Get("pslow")
	suite.True(ok)
}
