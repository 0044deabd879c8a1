package broker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

// DefaultCallTimeout bounds every remote venue call.
const DefaultCallTimeout = 10 * time.Second

var _ Broker = (*Live)(nil)

// LiveConfig configures a Live broker.
type LiveConfig struct {
	CallTimeout time.Duration
	Logger      *logger.Logger
	// Now is used to measure balance staleness. Defaults to time.Now.
	Now func() time.Time
}

// Live routes orders to a venue and mirrors the executions into a local
// ledger, so snapshots and results are computed the same way as in a
// backtest.
type Live struct {
	venue   Venue
	ledger  *ledger.Ledger
	timeout time.Duration
	logger  *logger.Logger
	now     func() time.Time

	mu            sync.Mutex
	lastBalance   optional.Option[types.Balance]
	lastBalanceAt time.Time
}

// NewLive queries the venue balance once and opens a local ledger holding
// that cash. Failing to reach the venue here is fatal.
func NewLive(ctx context.Context, venue Venue, cfg LiveConfig) (*Live, error) {
	if venue == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "live broker requires a venue")
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	log := cfg.Logger.Named("broker." + venue.Name())

	b := &Live{
		venue:       venue,
		timeout:     cfg.CallTimeout,
		logger:      log,
		now:         cfg.Now,
		lastBalance: optional.None[types.Balance](),
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	balance, err := venue.Balance(callCtx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeVenueInitFailed, err, "failed to query %s balance", venue.Name())
	}

	b.remember(balance)
	b.ledger = ledger.New(ledger.Config{
		InitialCash: balance.Cash,
		AllowShort:  true,
		Logger:      log,
	})

	log.Info("Live broker ready",
		zap.String("venue", venue.Name()),
		zap.Float64("cash", balance.Cash),
		zap.Float64("equity", balance.Equity),
	)

	return b, nil
}

// GetCash returns the venue cash, or the last observed value when the venue
// cannot be reached.
func (b *Live) GetCash(ctx context.Context) (float64, error) {
	balance, _ := b.balance(ctx)

	return balance.Cash, nil
}

// GetValue returns the venue equity, or the last observed value when the
// venue cannot be reached.
func (b *Live) GetValue(ctx context.Context) (float64, error) {
	balance, _ := b.balance(ctx)

	return balance.Equity, nil
}

// GetPosition returns the locally mirrored position, with the size taken from
// the venue when it answers.
func (b *Live) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	local := b.ledger.Position(symbol)

	venueSymbol, err := b.venue.Symbol(symbol)
	if err != nil {
		return local, err
	}

	size, ok := b.venuePosition(ctx, venueSymbol)
	if ok && size != local.Size {
		b.logger.Warn("Venue position differs from local mirror",
			zap.String("symbol", symbol),
			zap.Float64("venue_size", size),
			zap.Float64("local_size", local.Size),
		)

		local.Size = size
	}

	return local, nil
}

// SubmitOrder places the order at the venue. Failures never escape as
// faults: the order is recorded as rejected and the error is returned for
// the caller to report.
func (b *Live) SubmitOrder(ctx context.Context, intent types.OrderIntent, at time.Time) (types.Order, error) {
	order := types.NewOrder(uuid.NewString(), intent, at)

	if err := intent.Validate(); err != nil {
		return b.reject(order, at, types.OrderReasonInvalidIntent, err)
	}

	venueSymbol, err := b.venue.Symbol(intent.Symbol)
	if err != nil {
		return b.reject(order, at, types.OrderReasonUnknownSymbol, err)
	}

	size := intent.Size

	if intent.CloseAll {
		held := b.ledger.Position(intent.Symbol).Size
		if venueSize, ok := b.venuePosition(ctx, venueSymbol); ok {
			held = venueSize
		}

		reduces := (intent.Side == types.SideSell && held > 0) || (intent.Side == types.SideBuy && held < 0)
		if !reduces {
			_ = order.Transition(types.OrderStatusCancelled, at, types.OrderReasonNoPosition)
			b.ledger.Record(order)

			return order, nil
		}

		size = math.Abs(held)
		order.Size = size
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	exec, err := b.venue.PlaceOrder(callCtx, types.VenueOrder{
		ClientID:    order.ID,
		VenueSymbol: venueSymbol,
		Side:        intent.Side,
		Type:        intent.Type,
		Size:        size,
		LimitPrice:  intent.LimitPrice.TakeOr(0),
	})
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeUnknown {
			err = errors.Wrapf(errors.ErrCodeOrderFailed, err, "%s order %s failed", b.venue.Name(), order.ID)
		}

		return b.reject(order, at, types.OrderReasonVenueError, err)
	}

	if exec.FilledSize > 0 {
		fillTime := exec.Time
		if fillTime.IsZero() {
			fillTime = at
		}

		b.ledger.ApplyFill(types.Fill{
			OrderID:    order.ID,
			Symbol:     order.Symbol,
			Time:       fillTime,
			Price:      exec.AveragePrice,
			Size:       exec.FilledSize * intent.Side.Sign(),
			Commission: exec.Commission,
		})
	}

	switch exec.Status {
	case types.OrderStatusFilled:
		_ = order.Transition(types.OrderStatusFilled, at, "")
	case types.OrderStatusRejected:
		return b.reject(order, at, types.OrderReasonVenueError,
			errors.Newf(errors.ErrCodeInvalidOrder, "%s rejected order %s: %s", b.venue.Name(), order.ID, exec.Message))
	case types.OrderStatusCancelled:
		_ = order.Transition(types.OrderStatusCancelled, at, exec.Message)
	}

	b.ledger.Record(order)

	b.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("venue_order_id", exec.VenueOrderID),
		zap.String("symbol", venueSymbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("size", size),
		zap.String("status", string(order.Status)),
	)

	return order, nil
}

// OnBar marks the bar's close, refreshes cash from the venue when it
// answers and appends a snapshot.
func (b *Live) OnBar(ctx context.Context, bar types.Bar) (ledger.BarResult, error) {
	b.ledger.Mark(bar.Symbol, bar.Close)

	if balance, fresh := b.balance(ctx); fresh {
		b.ledger.SetCash(balance.Cash)
	}

	return ledger.BarResult{Snapshot: b.ledger.Snapshot(bar.Time)}, nil
}

// Close reports the orders still resting at the venue. They are left open
// there.
func (b *Live) Close(_ context.Context, _ time.Time) []types.Order {
	var open []types.Order

	for _, order := range b.ledger.Orders() {
		if !order.Status.IsTerminal() {
			open = append(open, order)
		}
	}

	if len(open) > 0 {
		b.logger.Warn("Run ended with open venue orders", zap.Int("count", len(open)))
	}

	return open
}

func (b *Live) Ledger() *ledger.Ledger {
	return b.ledger
}

// Staleness returns how old the last observed balance is.
func (b *Live) Staleness() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastBalance.IsNone() {
		return 0
	}

	return b.now().Sub(b.lastBalanceAt)
}

// balance queries the venue. The bool reports whether the value is fresh.
func (b *Live) balance(ctx context.Context) (types.Balance, bool) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	balance, err := b.venue.Balance(callCtx)
	if err == nil {
		b.remember(balance)

		return balance, true
	}

	b.mu.Lock()
	last := b.lastBalance
	age := b.now().Sub(b.lastBalanceAt)
	b.mu.Unlock()

	if last.IsSome() {
		b.logger.Warn("Balance query failed, using last observed balance",
			zap.String("venue", b.venue.Name()),
			zap.Duration("staleness", age),
			zap.Error(err),
		)

		return last.Unwrap(), false
	}

	b.logger.Warn("Balance query failed, using local ledger",
		zap.String("venue", b.venue.Name()),
		zap.Error(err),
	)

	return types.Balance{Cash: b.ledger.Cash(), Equity: b.ledger.Equity()}, false
}

func (b *Live) remember(balance types.Balance) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastBalance = optional.Some(balance)
	b.lastBalanceAt = b.now()
}

func (b *Live) venuePosition(ctx context.Context, venueSymbol string) (float64, bool) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	size, err := b.venue.Position(callCtx, venueSymbol)
	if err != nil {
		b.logger.Warn("Position query failed, using local mirror",
			zap.String("symbol", venueSymbol),
			zap.Error(err),
		)

		return 0, false
	}

	return size, true
}

func (b *Live) reject(order types.Order, at time.Time, reason string, err error) (types.Order, error) {
	_ = order.Transition(types.OrderStatusRejected, at, reason)
	b.ledger.Record(order)

	b.logger.Warn("Order rejected",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("reason", reason),
		zap.Error(err),
	)

	return order, err
}
