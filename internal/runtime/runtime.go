// Package runtime drives a strategy over a bar stream through a broker.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-core/internal/analytics"
	"github.com/rxtech-lab/argo-core/internal/broker"
	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/result"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/stream"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

type State string

const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateFinished     State = "finished"
	StateErrored      State = "errored"
)

// OnBarCallback is called after each bar was processed by the broker.
type OnBarCallback func(bar types.Bar, res ledger.BarResult)

// OnOrderRejectedCallback is called for every order that ended rejected,
// at submission or at fill time.
type OnOrderRejectedCallback func(order types.Order, err error)

// OnSnapshotCallback receives rolling results every Config.SnapshotEvery bars.
type OnSnapshotCallback func(res types.RunResult)

// OnStateChangeCallback is called on every state transition.
type OnStateChangeCallback func(state State)

// OnErrorCallback is called once with the error that moved the runtime to
// Errored.
type OnErrorCallback func(err error)

// Callbacks holds the runtime hooks. Nil means no callback.
type Callbacks struct {
	OnBar           *OnBarCallback
	OnOrderRejected *OnOrderRejectedCallback
	OnSnapshot      *OnSnapshotCallback
	OnStateChange   *OnStateChangeCallback
	OnError         *OnErrorCallback
}

// Config wires a runtime.
type Config struct {
	Strategy  strategy.Strategy
	Stream    stream.Stream
	Broker    broker.Broker
	Analytics analytics.Config
	// SnapshotEvery emits rolling results every n bars. Zero disables.
	SnapshotEvery int
	Callbacks     Callbacks
	Logger        *logger.Logger
}

// Runtime is a single-use state machine:
// Initializing -> Running -> Finished | Errored.
// Bars are processed one at a time on the goroutine calling Run, which is
// the only one mutating the ledger.
type Runtime struct {
	strategy  strategy.Strategy
	stream    stream.Stream
	broker    broker.Broker
	analytics analytics.Config
	every     int
	callbacks Callbacks
	logger    *logger.Logger

	mu      sync.Mutex
	state   State
	err     error
	started bool
	stopped bool
	cancel  context.CancelFunc

	bars []types.Bar
}

// New validates cfg and returns a runtime in Initializing.
func New(cfg Config) (*Runtime, error) {
	if cfg.Strategy == nil || cfg.Stream == nil || cfg.Broker == nil {
		return nil, errors.New(errors.ErrCodeRunInitFailed, "runtime requires a strategy, a stream and a broker")
	}

	if cfg.SnapshotEvery < 0 {
		return nil, errors.Newf(errors.ErrCodeRunInitFailed, "snapshot interval must not be negative, got %d", cfg.SnapshotEvery)
	}

	if cfg.Analytics.ChartMaxPoints == 0 {
		cfg.Analytics = analytics.DefaultConfig()
	}

	return &Runtime{
		strategy:  cfg.Strategy,
		stream:    cfg.Stream,
		broker:    cfg.Broker,
		analytics: cfg.Analytics,
		every:     cfg.SnapshotEvery,
		callbacks: cfg.Callbacks,
		logger:    cfg.Logger.Named("runtime"),
		state:     StateInitializing,
	}, nil
}

// State returns the current state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Err returns the error that moved the runtime to Errored, if any.
func (r *Runtime) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.err
}

// Stop asks the runtime to finish at the next bar boundary. A stream
// blocked waiting for a bar is interrupted; broker calls of the bar in
// flight run to completion. Safe to call from any goroutine and more than
// once.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
}

// Run processes bars until the stream ends or Stop is called, then returns
// the assembled result. Any unrecoverable error, including a panic in the
// strategy, moves the runtime to Errored and is returned.
func (r *Runtime) Run(ctx context.Context) (res types.RunResult, err error) {
	// only the wait for the next bar is interruptible by Stop
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.begin(cancel); err != nil {
		return types.RunResult{}, err
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Newf(errors.ErrCodePanic, "runtime panic: %v", recovered)
			res = types.RunResult{}
			r.fail(err)
		}
	}()

	r.logger.Info("Run started", zap.String("strategy", r.strategy.Name()))

	var last time.Time

	for {
		if r.stopRequested() {
			break
		}

		bar, err := r.stream.Next(streamCtx)
		if errors.Is(err, stream.ErrEndOfStream) {
			break
		}

		if err != nil {
			if r.stopRequested() {
				break
			}

			return types.RunResult{}, r.fail(errors.Wrap(errors.ErrCodeRunFailed, "bar stream failed", err))
		}

		if err := r.step(ctx, bar); err != nil {
			return types.RunResult{}, r.fail(err)
		}

		last = bar.Time
	}

	closed := r.broker.Close(ctx, last)
	if len(closed) > 0 {
		r.logger.Info("Orders closed at end of run", zap.Int("count", len(closed)))
	}

	res = r.assemble()
	r.transition(StateFinished)

	r.logger.Info("Run finished",
		zap.Int("bars", res.Bars),
		zap.Float64("final_value", res.FinalValue),
		zap.Int("trades", res.TotalTrades),
	)

	return res, nil
}

// Bars returns the number of bars processed so far.
func (r *Runtime) Bars() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.bars)
}

func (r *Runtime) step(ctx context.Context, bar types.Bar) error {
	if r.State() == StateInitializing {
		r.transition(StateRunning)
	}

	res, err := r.broker.OnBar(ctx, bar)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRunFailed, "broker failed to process bar", err)
	}

	r.mu.Lock()
	r.bars = append(r.bars, bar)
	count := len(r.bars)
	r.mu.Unlock()

	for _, order := range res.Resolved {
		if order.Status == types.OrderStatusRejected {
			r.rejected(order, rejectionError(order))
		}
	}

	if r.callbacks.OnBar != nil {
		(*r.callbacks.OnBar)(bar, res)
	}

	intents, err := r.callStrategy(bar)
	if err != nil {
		return err
	}

	for _, intent := range intents {
		order, err := r.broker.SubmitOrder(ctx, intent, bar.Time)
		if err == nil {
			continue
		}

		kind := errors.KindOf(err)
		if kind != errors.KindRejection && kind != errors.KindTransient {
			return errors.Wrap(errors.ErrCodeRunFailed, "order submission failed", err)
		}

		r.rejected(order, err)
	}

	if r.every > 0 && count%r.every == 0 && r.callbacks.OnSnapshot != nil {
		(*r.callbacks.OnSnapshot)(r.assemble())
	}

	return nil
}

// callStrategy isolates strategy panics so they surface as errors.
func (r *Runtime) callStrategy(bar types.Bar) (intents []types.OrderIntent, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Newf(errors.ErrCodePanic, "strategy %s panicked: %v", r.strategy.Name(), recovered)
		}
	}()

	intents, err = r.strategy.OnBar(bar)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed on bar %s", r.strategy.Name(), bar.Time)
	}

	return intents, nil
}

func (r *Runtime) rejected(order types.Order, err error) {
	r.logger.Warn("Order rejected",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("reason", order.Reason),
		zap.Error(err),
	)

	if r.callbacks.OnOrderRejected != nil {
		(*r.callbacks.OnOrderRejected)(order, err)
	}
}

func (r *Runtime) assemble() types.RunResult {
	r.mu.Lock()
	bars := make([]types.Bar, len(r.bars))
	copy(bars, r.bars)
	r.mu.Unlock()

	return result.Assemble(r.broker.Ledger(), bars, r.analytics)
}

func (r *Runtime) begin(cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New(errors.ErrCodeRunAlreadyDone, "runtime can only run once")
	}

	r.started = true
	r.cancel = cancel

	if r.stopped {
		cancel()
	}

	return nil
}

func (r *Runtime) stopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stopped
}

func (r *Runtime) transition(state State) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()

	if r.callbacks.OnStateChange != nil {
		(*r.callbacks.OnStateChange)(state)
	}
}

func (r *Runtime) fail(err error) error {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()

	r.transition(StateErrored)

	r.logger.Error("Run failed", zap.Error(err))

	if r.callbacks.OnError != nil {
		(*r.callbacks.OnError)(err)
	}

	return err
}

// rejectionError turns a fill-time rejection reason into a coded error.
func rejectionError(order types.Order) error {
	code := errors.ErrCodeInvalidOrder

	switch order.Reason {
	case types.OrderReasonInsufficientCash:
		code = errors.ErrCodeInsufficientCash
	case types.OrderReasonInsufficientPosition:
		code = errors.ErrCodeInsufficientPosition
	}

	return errors.New(code, fmt.Sprintf("order %s rejected: %s", order.ID, order.Reason))
}
