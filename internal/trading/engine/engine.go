// Package engine runs a strategy against a venue on live bars.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-core/internal/analytics"
	"github.com/rxtech-lab/argo-core/internal/broker"
	"github.com/rxtech-lab/argo-core/internal/config"
	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/runtime"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/stream"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
	"github.com/rxtech-lab/argo-core/pkg/marketdata/provider"
	"go.uber.org/zap"
)

// Lifecycle callback types for live trading.
// Callbacks with an error return abort the engine when they return an error.

// OnEngineStartCallback is called once the venue, stream and broker are ready.
type OnEngineStartCallback func(venue string, symbol string, timespan marketdata.Timespan) error

// OnEngineStopCallback is called when the engine stops (always called via defer).
type OnEngineStopCallback func(res types.RunResult, err error)

// OnMarketDataCallback is called for each live bar.
type OnMarketDataCallback func(bar types.Bar)

// OnOrderFilledCallback is called for each execution mirrored into the ledger.
type OnOrderFilledCallback func(fill types.Fill)

// OnOrderRejectedCallback is called for each rejected order.
type OnOrderRejectedCallback func(order types.Order, err error)

// OnStatsUpdateCallback receives rolling results.
type OnStatsUpdateCallback func(res types.RunResult)

// OnStatusUpdateCallback is called when the engine state changes.
type OnStatusUpdateCallback func(state runtime.State)

// LiveTradingCallbacks holds all lifecycle callback functions.
// All fields are pointers - nil means no callback will be invoked.
type LiveTradingCallbacks struct {
	OnEngineStart   *OnEngineStartCallback
	OnEngineStop    *OnEngineStopCallback
	OnMarketData    *OnMarketDataCallback
	OnOrderFilled   *OnOrderFilledCallback
	OnOrderRejected *OnOrderRejectedCallback
	OnStatsUpdate   *OnStatsUpdateCallback
	OnStatusUpdate  *OnStatusUpdateCallback
}

// Config configures one live session.
type Config struct {
	Venue    string         `validate:"required"`
	Symbol   string         `validate:"required"`
	Strategy string         `validate:"required"`
	Params   map[string]any
	Timespan string `validate:"required"`
	// VenueConfig is the typed config handed to the venue factory.
	VenueConfig    any
	Credentials    provider.Credentials
	PollInterval   time.Duration
	RequestTimeout time.Duration
	MaxRetries     int `validate:"gte=0"`
	SnapshotEvery  int `validate:"gte=0"`
	Analytics      analytics.Config
}

// ConfigFromApp builds a session config from the application config.
func ConfigFromApp(cfg config.Config) (Config, error) {
	venueConfig, err := cfg.Venues.VenueConfig(cfg.Live.Venue)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Venue:          cfg.Live.Venue,
		Symbol:         cfg.Live.Symbol,
		Strategy:       cfg.Live.Strategy,
		Params:         cfg.Live.Params,
		Timespan:       cfg.Live.Timespan,
		VenueConfig:    venueConfig,
		Credentials:    cfg.Venues.Credentials(),
		PollInterval:   cfg.Live.PollInterval,
		RequestTimeout: cfg.Live.RequestTimeout,
		MaxRetries:     cfg.Live.MaxRetries,
		SnapshotEvery:  cfg.Live.SnapshotEvery,
		Analytics:      cfg.Analytics,
	}, nil
}

// VenueFactory creates a venue client.
type VenueFactory func(name string, config any, log *logger.Logger) (broker.Venue, error)

// FetcherFactory creates the live bar fetcher of a venue.
type FetcherFactory func(providerType marketdata.ProviderType, timespan marketdata.Timespan, creds provider.Credentials) (stream.Fetcher, error)

// Option customizes a LiveEngine.
type Option func(*LiveEngine)

func WithRegistry(registry *strategy.Registry) Option {
	return func(e *LiveEngine) { e.registry = registry }
}

func WithLogger(log *logger.Logger) Option {
	return func(e *LiveEngine) { e.logger = log }
}

func WithVenueFactory(factory VenueFactory) Option {
	return func(e *LiveEngine) { e.newVenue = factory }
}

func WithFetcherFactory(factory FetcherFactory) Option {
	return func(e *LiveEngine) { e.newFetcher = factory }
}

// WithClock replaces the clock the live stream waits on.
func WithClock(clock stream.Clock) Option {
	return func(e *LiveEngine) { e.clock = clock }
}

// LiveEngine orchestrates one live session: venue, live stream, live broker and
// runtime. It runs once.
type LiveEngine struct {
	cfg        Config
	registry   *strategy.Registry
	logger     *logger.Logger
	newVenue   VenueFactory
	newFetcher FetcherFactory
	clock      stream.Clock

	mu      sync.Mutex
	started bool
	stopped bool
	runtime *runtime.Runtime
}

// NewLiveEngine validates cfg. Remote endpoints are not contacted until Run.
func NewLiveEngine(cfg Config, opts ...Option) (*LiveEngine, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid live trading config", err)
	}

	if _, err := marketdata.ParseTimespan(cfg.Timespan); err != nil {
		return nil, err
	}

	if _, err := broker.GetVenueInfo(cfg.Venue); err != nil {
		return nil, err
	}

	e := &LiveEngine{
		cfg:        cfg,
		registry:   strategy.DefaultRegistry(),
		newVenue:   broker.NewVenue,
		newFetcher: provider.NewFetcher,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.NewNop()
	}

	e.logger = e.logger.Named("live")

	return e, nil
}

// Stop ends the session at the next bar boundary. The run finishes
// normally and returns its result.
func (e *LiveEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	if e.runtime != nil {
		e.runtime.Stop()
	}
}

// State returns the runtime state, or Initializing before Run wired it.
func (e *LiveEngine) State() runtime.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runtime == nil {
		return runtime.StateInitializing
	}

	return e.runtime.State()
}

// Run connects to the venue and trades until Stop is called, ctx is
// cancelled or the stream fails for good.
func (e *LiveEngine) Run(ctx context.Context, callbacks LiveTradingCallbacks) (res types.RunResult, err error) {
	if callbacks.OnEngineStop != nil {
		defer func() {
			(*callbacks.OnEngineStop)(res, err)
		}()
	}

	e.mu.Lock()
	if e.started {
		e.mu.Unlock()

		return types.RunResult{}, errors.New(errors.ErrCodeRunAlreadyDone, "live engine already ran")
	}

	e.started = true
	e.mu.Unlock()

	rt, timespan, err := e.setup(ctx, callbacks)
	if err != nil {
		e.logger.Error("Live engine failed to start", zap.Error(err))

		return types.RunResult{}, err
	}

	e.mu.Lock()
	e.runtime = rt
	if e.stopped {
		rt.Stop()
	}
	e.mu.Unlock()

	if callbacks.OnEngineStart != nil {
		if err := (*callbacks.OnEngineStart)(e.cfg.Venue, e.cfg.Symbol, timespan); err != nil {
			return types.RunResult{}, err
		}
	}

	e.logger.Info("Live engine started",
		zap.String("venue", e.cfg.Venue),
		zap.String("symbol", e.cfg.Symbol),
		zap.String("strategy", e.cfg.Strategy),
		zap.String("timespan", string(timespan)),
	)

	return rt.Run(ctx)
}

func (e *LiveEngine) setup(ctx context.Context, callbacks LiveTradingCallbacks) (*runtime.Runtime, marketdata.Timespan, error) {
	timespan, err := marketdata.ParseTimespan(e.cfg.Timespan)
	if err != nil {
		return nil, "", err
	}

	strat, err := e.registry.New(e.cfg.Strategy, e.cfg.Params)
	if err != nil {
		return nil, "", err
	}

	venue, err := e.newVenue(e.cfg.Venue, e.cfg.VenueConfig, e.logger)
	if err != nil {
		return nil, "", err
	}

	fetcher, err := e.newFetcher(marketdata.ProviderType(e.cfg.Venue), timespan, e.cfg.Credentials)
	if err != nil {
		return nil, "", err
	}

	bars, err := stream.NewLive(fetcher, stream.LiveConfig{
		Symbol:         e.cfg.Symbol,
		PollInterval:   e.cfg.PollInterval,
		RequestTimeout: e.cfg.RequestTimeout,
		MaxRetries:     uint64(e.cfg.MaxRetries),
		Clock:          e.clock,
		Logger:         e.logger,
	})
	if err != nil {
		return nil, "", err
	}

	liveBroker, err := broker.NewLive(ctx, venue, broker.LiveConfig{
		CallTimeout: e.cfg.RequestTimeout,
		Logger:      e.logger,
	})
	if err != nil {
		return nil, "", err
	}

	var routed broker.Broker = liveBroker
	if callbacks.OnOrderFilled != nil {
		routed = &fillReporter{Broker: liveBroker, onFill: *callbacks.OnOrderFilled}
	}

	rt, err := runtime.New(runtime.Config{
		Strategy:      strat,
		Stream:        bars,
		Broker:        routed,
		Analytics:     e.cfg.Analytics,
		SnapshotEvery: e.cfg.SnapshotEvery,
		Callbacks:     runtimeCallbacks(callbacks),
		Logger:        e.logger,
	})
	if err != nil {
		return nil, "", err
	}

	return rt, timespan, nil
}

func runtimeCallbacks(callbacks LiveTradingCallbacks) runtime.Callbacks {
	var out runtime.Callbacks

	if callbacks.OnMarketData != nil {
		onMarketData := *callbacks.OnMarketData
		onBar := runtime.OnBarCallback(func(bar types.Bar, _ ledger.BarResult) {
			onMarketData(bar)
		})
		out.OnBar = &onBar
	}

	if callbacks.OnOrderRejected != nil {
		onRejected := runtime.OnOrderRejectedCallback(*callbacks.OnOrderRejected)
		out.OnOrderRejected = &onRejected
	}

	if callbacks.OnStatsUpdate != nil {
		onSnapshot := runtime.OnSnapshotCallback(*callbacks.OnStatsUpdate)
		out.OnSnapshot = &onSnapshot
	}

	if callbacks.OnStatusUpdate != nil {
		onState := runtime.OnStateChangeCallback(*callbacks.OnStatusUpdate)
		out.OnStateChange = &onState
	}

	return out
}

// fillReporter reports every fill that reaches the ledger, whether it came
// from a venue execution or from bar processing.
type fillReporter struct {
	broker.Broker
	onFill OnOrderFilledCallback
	seen   int
}

func (f *fillReporter) SubmitOrder(ctx context.Context, intent types.OrderIntent, at time.Time) (types.Order, error) {
	order, err := f.Broker.SubmitOrder(ctx, intent, at)
	f.flush()

	return order, err
}

func (f *fillReporter) OnBar(ctx context.Context, bar types.Bar) (ledger.BarResult, error) {
	res, err := f.Broker.OnBar(ctx, bar)
	f.flush()

	return res, err
}

func (f *fillReporter) flush() {
	fills := f.Ledger().Fills()
	for _, fill := range fills[f.seen:] {
		f.onFill(fill)
	}

	f.seen = len(fills)
}
