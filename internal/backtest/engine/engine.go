// Package engine runs backtests: it resolves the strategy, loads the bars
// and drives a simulated ledger through the runtime.
package engine

import (
	"context"

	"github.com/rxtech-lab/argo-core/internal/analytics"
	"github.com/rxtech-lab/argo-core/internal/broker"
	"github.com/rxtech-lab/argo-core/internal/commission"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/runtime"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/stream"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

// Lifecycle callback types for a backtest run.
// Callbacks with an error return abort the run when they return an error.

// OnRunStartCallback is called once the bars are loaded, before the first bar.
type OnRunStartCallback func(req types.RunRequest, totalBars int) error

// OnProcessDataCallback is called for each processed bar.
type OnProcessDataCallback func(current int, total int) error

// OnRunEndCallback is called when the run ends, always.
type OnRunEndCallback func(res types.RunResult, err error)

// LifecycleCallbacks holds the lifecycle hooks.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnProcessData *OnProcessDataCallback
	OnRunEnd      *OnRunEndCallback
}

// Config wires an Engine.
type Config struct {
	Registry *strategy.Registry
	Source   datasource.Source
	// Commission is the fee model charged on every fill.
	Commission     commission.Model
	CommissionRate float64
	AllowShort     bool
	Analytics      analytics.Config
	Logger         *logger.Logger
}

// Engine executes backtest requests. It holds no per-run state, so one
// engine serves concurrent runs.
type Engine struct {
	registry   *strategy.Registry
	source     datasource.Source
	commission commission.Model
	rate       float64
	allowShort bool
	analytics  analytics.Config
	logger     *logger.Logger
}

// New creates an engine. A nil registry uses strategy.DefaultRegistry.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "backtest engine requires a data source")
	}

	if cfg.Registry == nil {
		cfg.Registry = strategy.DefaultRegistry()
	}

	if cfg.Commission == "" {
		cfg.Commission = commission.ModelZero
	}

	if cfg.Analytics.ChartMaxPoints == 0 {
		cfg.Analytics = analytics.DefaultConfig()
	}

	return &Engine{
		registry:   cfg.Registry,
		source:     cfg.Source,
		commission: cfg.Commission,
		rate:       cfg.CommissionRate,
		allowShort: cfg.AllowShort,
		analytics:  cfg.Analytics,
		logger:     cfg.Logger.Named("backtest"),
	}, nil
}

// Strategies lists the registered strategy names.
func (e *Engine) Strategies() []string {
	return e.registry.List()
}

// Registry returns the strategy registry used by the engine.
func (e *Engine) Registry() *strategy.Registry {
	return e.registry
}

// ValidateRequest checks req and that its strategy is registered.
func (e *Engine) ValidateRequest(req types.RunRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	_, err := e.registry.Get(req.Strategy)

	return err
}

// RunBacktest runs req to completion.
func (e *Engine) RunBacktest(ctx context.Context, req types.RunRequest) (types.RunResult, error) {
	return e.Run(ctx, req, LifecycleCallbacks{})
}

// Run runs req to completion, reporting progress through callbacks.
func (e *Engine) Run(ctx context.Context, req types.RunRequest, callbacks LifecycleCallbacks) (res types.RunResult, err error) {
	if callbacks.OnRunEnd != nil {
		defer func() {
			(*callbacks.OnRunEnd)(res, err)
		}()
	}

	if err := req.Validate(); err != nil {
		return types.RunResult{}, err
	}

	start, end, _ := req.Range()

	strat, err := e.registry.New(req.Strategy, req.Params)
	if err != nil {
		return types.RunResult{}, err
	}

	bars, err := e.source.Load(ctx, req.Symbol, start, end)
	if err != nil {
		return types.RunResult{}, err
	}

	if len(bars) == 0 {
		return types.RunResult{}, errors.Newf(errors.ErrCodeNoDataFound, "no bars for %s between %s and %s", req.Symbol, req.StartDate, req.EndDate)
	}

	historical, err := stream.NewHistorical(bars)
	if err != nil {
		return types.RunResult{}, err
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(req, len(bars)); err != nil {
			return types.RunResult{}, err
		}
	}

	book := ledger.New(ledger.Config{
		InitialCash: req.Cash(),
		Commission:  commission.ForModel(e.commission, e.rate),
		AllowShort:  e.allowShort,
		Logger:      e.logger,
	})

	var (
		rt       *runtime.Runtime
		abortErr error
	)

	onBar := runtime.OnBarCallback(func(_ types.Bar, _ ledger.BarResult) {
		if callbacks.OnProcessData == nil || abortErr != nil {
			return
		}

		if err := (*callbacks.OnProcessData)(rt.Bars(), len(bars)); err != nil {
			abortErr = err
			rt.Stop()
		}
	})

	rt, err = runtime.New(runtime.Config{
		Strategy:  strat,
		Stream:    historical,
		Broker:    broker.NewSimulated(book),
		Analytics: e.analytics,
		Callbacks: runtime.Callbacks{OnBar: &onBar},
		Logger:    e.logger,
	})
	if err != nil {
		return types.RunResult{}, err
	}

	e.logger.Info("Backtest started",
		zap.String("strategy", req.Strategy),
		zap.String("symbol", req.Symbol),
		zap.String("start", req.StartDate),
		zap.String("end", req.EndDate),
		zap.Int("bars", len(bars)),
	)

	res, err = rt.Run(ctx)
	if err != nil {
		return types.RunResult{}, err
	}

	if abortErr != nil {
		return types.RunResult{}, abortErr
	}

	return res, nil
}
