package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/internal/broker"
	"github.com/rxtech-lab/argo-core/internal/config"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/runtime"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/stream"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/mocks"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
	"github.com/rxtech-lab/argo-core/pkg/marketdata/provider"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Now() }

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()

	return ch
}

type LiveEngineTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	venue   *mocks.MockVenue
	fetcher *mocks.MockFetcher
}

func TestLiveEngineSuite(t *testing.T) {
	suite.Run(t, new(LiveEngineTestSuite))
}

func (suite *LiveEngineTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.venue = mocks.NewMockVenue(suite.ctrl)
	suite.fetcher = mocks.NewMockFetcher(suite.ctrl)
	suite.venue.EXPECT().Name().Return(broker.VenueOanda).AnyTimes()
}

func (suite *LiveEngineTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *LiveEngineTestSuite) config() Config {
	return Config{
		Venue:          broker.VenueOanda,
		Symbol:         "EURUSD",
		Strategy:       strategy.SmaCrossName,
		Params:         map[string]any{"pfast": 3, "pslow": 10},
		Timespan:       "1h",
		PollInterval:   time.Millisecond,
		RequestTimeout: time.Second,
		MaxRetries:     2,
	}
}

func (suite *LiveEngineTestSuite) engine(cfg Config) *LiveEngine {
	e, err := NewLiveEngine(cfg,
		WithLogger(logger.NewNop()),
		WithClock(instantClock{}),
		WithVenueFactory(func(name string, _ any, _ *logger.Logger) (broker.Venue, error) {
			suite.Equal(broker.VenueOanda, name)

			return suite.venue, nil
		}),
		WithFetcherFactory(func(providerType marketdata.ProviderType, timespan marketdata.Timespan, _ provider.Credentials) (stream.Fetcher, error) {
			suite.Equal(marketdata.ProviderOanda, providerType)
			suite.Equal(marketdata.TimespanOneHour, timespan)

			return suite.fetcher, nil
		}),
	)
	suite.Require().NoError(err)

	return e
}

// crossing falls then rises so a 3/10 SMA cross buys once.
func crossing() []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var closes []float64
	for i := 0; i < 15; i++ {
		closes = append(closes, 1.20-0.01*float64(i))
	}

	for i := 0; i < 10; i++ {
		closes = append(closes, 1.06+0.02*float64(i))
	}

	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: "EURUSD",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c, High: c, Low: c, Close: c, Volume: 1,
		}
	}

	return bars
}

// reveal makes the fetcher expose one more bar per poll.
func (suite *LiveEngineTestSuite) reveal(bars []types.Bar) {
	var (
		mu    sync.Mutex
		shown int
	)

	suite.fetcher.EXPECT().FetchLatest(gomock.Any(), "EURUSD").DoAndReturn(
		func(context.Context, string) ([]types.Bar, error) {
			mu.Lock()
			defer mu.Unlock()

			if shown < len(bars) {
				shown++
			}

			return bars[:shown], nil
		}).AnyTimes()
}

func (suite *LiveEngineTestSuite) TestTradesUntilStopped() {
	bars := crossing()
	suite.reveal(bars)

	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 10000, Equity: 10000}, nil).AnyTimes()
	suite.venue.EXPECT().Symbol("EURUSD").Return("EUR_USD", nil).AnyTimes()
	suite.venue.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order types.VenueOrder) (types.Execution, error) {
			suite.Equal("EUR_USD", order.VenueSymbol)
			suite.Equal(types.SideBuy, order.Side)

			return types.Execution{
				VenueOrderID: "v-1",
				Status:       types.OrderStatusFilled,
				FilledSize:   order.Size,
				AveragePrice: 1.1,
			}, nil
		})

	e := suite.engine(suite.config())

	var (
		seen    []types.Bar
		fills   []types.Fill
		states  []runtime.State
		started bool
		stopErr = stderrors.New("not called")
	)

	onStart := OnEngineStartCallback(func(venue, symbol string, timespan marketdata.Timespan) error {
		started = true

		suite.Equal(broker.VenueOanda, venue)
		suite.Equal("EURUSD", symbol)
		suite.Equal(marketdata.TimespanOneHour, timespan)

		return nil
	})
	onData := OnMarketDataCallback(func(bar types.Bar) {
		seen = append(seen, bar)
		if len(seen) == len(bars) {
			e.Stop()
		}
	})
	onFill := OnOrderFilledCallback(func(fill types.Fill) {
		fills = append(fills, fill)
	})
	onStatus := OnStatusUpdateCallback(func(state runtime.State) {
		states = append(states, state)
	})
	onStop := OnEngineStopCallback(func(_ types.RunResult, err error) {
		stopErr = err
	})

	res, err := e.Run(context.Background(), LiveTradingCallbacks{
		OnEngineStart:  &onStart,
		OnEngineStop:   &onStop,
		OnMarketData:   &onData,
		OnOrderFilled:  &onFill,
		OnStatusUpdate: &onStatus,
	})
	suite.Require().NoError(err)

	suite.True(started)
	suite.NoError(stopErr)
	suite.Equal(bars, seen)
	suite.Equal(len(bars), res.Bars)
	suite.Require().Len(fills, 1)
	suite.InDelta(1.1, fills[0].Price, 1e-9)
	suite.Require().Len(res.Orders, 1)
	suite.Equal(types.OrderStatusFilled, res.Orders[0].Status)
	suite.Equal([]runtime.State{runtime.StateRunning, runtime.StateFinished}, states)
	suite.Equal(runtime.StateFinished, e.State())
}

func (suite *LiveEngineTestSuite) TestRollingSnapshots() {
	bars := crossing()[:6]
	suite.reveal(bars)
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 500, Equity: 500}, nil).AnyTimes()

	cfg := suite.config()
	cfg.SnapshotEvery = 3
	e := suite.engine(cfg)

	var rolling []int

	onStats := OnStatsUpdateCallback(func(res types.RunResult) {
		rolling = append(rolling, res.Bars)
		if res.Bars == 6 {
			e.Stop()
		}
	})

	res, err := e.Run(context.Background(), LiveTradingCallbacks{OnStatsUpdate: &onStats})
	suite.Require().NoError(err)
	suite.Equal([]int{3, 6}, rolling)
	suite.Equal(500.0, res.InitialCash)
}

func (suite *LiveEngineTestSuite) TestFetchFailuresEndInError() {
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 100, Equity: 100}, nil).AnyTimes()
	suite.fetcher.EXPECT().FetchLatest(gomock.Any(), "EURUSD").
		Return(nil, errors.New(errors.ErrCodeMarketDataFetchFailed, "gateway timeout")).Times(3)

	e := suite.engine(suite.config())

	_, err := e.Run(context.Background(), LiveTradingCallbacks{})
	suite.Require().Error(err)
	suite.Equal(runtime.StateErrored, e.State())
}

func (suite *LiveEngineTestSuite) TestVenueFailureAbortsStart() {
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{}, stderrors.New("connection refused"))

	e := suite.engine(suite.config())

	var stopErr error

	onStop := OnEngineStopCallback(func(_ types.RunResult, err error) {
		stopErr = err
	})

	_, err := e.Run(context.Background(), LiveTradingCallbacks{OnEngineStop: &onStop})
	suite.True(errors.HasCode(err, errors.ErrCodeVenueInitFailed))
	suite.Equal(err, stopErr)
	suite.Equal(runtime.StateInitializing, e.State())

	_, err = e.Run(context.Background(), LiveTradingCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeRunAlreadyDone))
}

func (suite *LiveEngineTestSuite) TestStopBeforeRun() {
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 100, Equity: 100}, nil).AnyTimes()

	e := suite.engine(suite.config())
	e.Stop()

	res, err := e.Run(context.Background(), LiveTradingCallbacks{})
	suite.Require().NoError(err)
	suite.Zero(res.Bars)
	suite.Equal(runtime.StateFinished, e.State())
}

func (suite *LiveEngineTestSuite) TestStartCallbackAborts() {
	suite.venue.EXPECT().Balance(gomock.Any()).Return(types.Balance{Cash: 100, Equity: 100}, nil).AnyTimes()

	e := suite.engine(suite.config())
	abort := stderrors.New("operator declined")
	onStart := OnEngineStartCallback(func(string, string, marketdata.Timespan) error { return abort })

	_, err := e.Run(context.Background(), LiveTradingCallbacks{OnEngineStart: &onStart})
	suite.ErrorIs(err, abort)
}

func (suite *LiveEngineTestSuite) TestNewEngineValidation() {
	testCases := []struct {
		name   string
		mutate func(*Config)
		code   errors.ErrorCode
	}{
		{name: "missing symbol", mutate: func(c *Config) { c.Symbol = "" }, code: errors.ErrCodeInvalidConfiguration},
		{name: "bad timespan", mutate: func(c *Config) { c.Timespan = "3h" }, code: errors.ErrCodeInvalidTimespan},
		{name: "unknown venue", mutate: func(c *Config) { c.Venue = "kraken" }, code: errors.ErrCodeUnsupportedVenue},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			cfg := suite.config()
			tc.mutate(&cfg)

			_, err := NewLiveEngine(cfg)
			suite.True(errors.HasCode(err, tc.code))
		})
	}
}

func (suite *LiveEngineTestSuite) TestUnknownStrategyFailsAtRun() {
	cfg := suite.config()
	cfg.Strategy = "rsi"

	_, err := suite.engine(cfg).Run(context.Background(), LiveTradingCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownStrategy))
}

func (suite *LiveEngineTestSuite) TestConfigFromApp() {
	app := config.Default()
	app.Live.Venue = broker.VenueOKX
	app.Live.Symbol = "BTCUSDT"
	app.Live.Strategy = strategy.SmaCrossName
	app.Venues.OKX.ApiKey = "key"

	cfg, err := ConfigFromApp(app)
	suite.Require().NoError(err)
	suite.Equal("1h", cfg.Timespan)
	suite.Equal(5*time.Second, cfg.PollInterval)

	okx, ok := cfg.VenueConfig.(*broker.OKXConfig)
	suite.Require().True(ok)
	suite.Equal("key", okx.ApiKey)

	app.Live.Venue = ""
	_, err = ConfigFromApp(app)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedVenue))
}
