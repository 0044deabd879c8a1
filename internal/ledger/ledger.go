// Package ledger owns cash and position state and simulates order fills
// against bars.
package ledger

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-core/internal/commission"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// orderNamespace seeds the deterministic order ids of a ledger.
var orderNamespace = uuid.MustParse("6f1c3a52-3c1d-4f7e-9a0b-1d2e3f405162")

// Config configures a Ledger.
type Config struct {
	InitialCash float64
	Commission  commission.Fee
	// AllowShort lets sells exceed the held size.
	AllowShort bool
	Logger     *logger.Logger
}

// BarResult is what happened to the ledger on one bar.
type BarResult struct {
	Fills []types.Fill
	// Resolved holds every order that reached a terminal status on this bar.
	Resolved []types.Order
	Snapshot types.LedgerSnapshot
}

// Ledger tracks cash, positions, orders and the equity curve of one account.
// All methods are safe for concurrent use; mutations are serialized.
type Ledger struct {
	mu sync.Mutex

	initialCash decimal.Decimal
	cash        decimal.Decimal
	positions   map[string]*position
	marks       map[string]decimal.Decimal

	orders  []types.Order
	index   map[string]int
	pending []string

	fills     []types.Fill
	trades    []types.ClosedTrade
	snapshots []types.LedgerSnapshot

	fee        commission.Fee
	allowShort bool
	seq        int
	logger     *logger.Logger
}

// New creates a ledger holding only cash.
func New(cfg Config) *Ledger {
	fee := cfg.Commission
	if fee == nil {
		fee = commission.NewZeroFee()
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	cash := decimal.NewFromFloat(cfg.InitialCash)

	return &Ledger{
		initialCash: cash,
		cash:        cash,
		positions:   make(map[string]*position),
		marks:       make(map[string]decimal.Decimal),
		index:       make(map[string]int),
		fee:         fee,
		allowShort:  cfg.AllowShort,
		logger:      log,
	}
}

// Submit records a new order for the intent. Invalid intents produce a
// rejected order and a rejection error; valid ones stay submitted until a
// later bar resolves them.
func (l *Ledger) Submit(intent types.OrderIntent, at time.Time) (types.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	id := uuid.NewSHA1(orderNamespace, []byte(strconv.Itoa(l.seq))).String()
	order := types.NewOrder(id, intent, at)

	if err := intent.Validate(); err != nil {
		_ = order.Transition(types.OrderStatusRejected, at, types.OrderReasonInvalidIntent)
		l.record(order)
		l.logger.Warn("Order intent rejected", zap.String("order_id", id), zap.Error(err))

		return order, err
	}

	l.record(order)
	l.pending = append(l.pending, id)

	return order, nil
}

// Record stores an order produced elsewhere, e.g. by a live venue.
// Submitted orders are not queued for simulated fills.
func (l *Ledger) Record(order types.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.record(order)
}

// ApplyFill books an externally executed fill (live venues) without the
// simulation checks.
func (l *Ledger) ApplyFill(fill types.Fill) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.book(fill, decimal.NewFromFloat(fill.Size), decimal.NewFromFloat(fill.Price), decimal.NewFromFloat(fill.Commission))
}

// SetCash overrides the cash balance with a venue reported value.
func (l *Ledger) SetCash(cash float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = decimal.NewFromFloat(cash)
}

// ProcessBar resolves pending orders for the bar's symbol in submission
// order, then appends one snapshot valued at the bar's close.
func (l *Ledger) ProcessBar(bar types.Bar) BarResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := BarResult{}
	remaining := l.pending[:0:0]

	for _, id := range l.pending {
		order := &l.orders[l.index[id]]
		if order.Symbol != bar.Symbol {
			remaining = append(remaining, id)

			continue
		}

		price, ok := fillPrice(*order, bar)
		if !ok {
			remaining = append(remaining, id)

			continue
		}

		if fill, filled := l.execute(order, price, bar.Time); filled {
			result.Fills = append(result.Fills, fill)
		}

		result.Resolved = append(result.Resolved, *order)
	}

	l.pending = remaining
	l.marks[bar.Symbol] = decimal.NewFromFloat(bar.Close)
	result.Snapshot = l.snapshot(bar.Time)
	l.snapshots = append(l.snapshots, result.Snapshot)

	return result
}

// Mark records a price without resolving orders or snapshotting.
func (l *Ledger) Mark(symbol string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.marks[symbol] = decimal.NewFromFloat(price)
}

// Snapshot appends a snapshot at the current marks. Used by live brokers
// whose fills are booked outside ProcessBar.
func (l *Ledger) Snapshot(at time.Time) types.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.snapshot(at)
	l.snapshots = append(l.snapshots, snap)

	return snap
}

// CancelPending cancels every order still waiting for a fill.
func (l *Ledger) CancelPending(at time.Time, reason string) []types.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	cancelled := make([]types.Order, 0, len(l.pending))

	for _, id := range l.pending {
		order := &l.orders[l.index[id]]
		if err := order.Transition(types.OrderStatusCancelled, at, reason); err == nil {
			cancelled = append(cancelled, *order)
		}
	}

	l.pending = nil

	return cancelled
}

// execute resolves one order at price. It returns the fill when the order
// filled; otherwise the order is rejected or cancelled in place.
func (l *Ledger) execute(order *types.Order, price decimal.Decimal, at time.Time) (types.Fill, bool) {
	held := decimal.Zero
	if pos, ok := l.positions[order.Symbol]; ok {
		held = pos.size
	}

	size := decimal.NewFromFloat(order.Size)

	if order.CloseAll {
		reduces := (order.Side == types.SideSell && held.IsPositive()) || (order.Side == types.SideBuy && held.IsNegative())
		if !reduces {
			_ = order.Transition(types.OrderStatusCancelled, at, types.OrderReasonNoPosition)

			return types.Fill{}, false
		}

		size = held.Abs()
		order.Size = size.InexactFloat64()
	}

	fee := decimal.NewFromFloat(l.fee.Calculate(size.InexactFloat64(), price.InexactFloat64()))
	notional := size.Mul(price)

	switch order.Side {
	case types.SideBuy:
		if notional.Add(fee).GreaterThan(l.cash) {
			l.reject(order, at, types.OrderReasonInsufficientCash, notional.Add(fee))

			return types.Fill{}, false
		}
	case types.SideSell:
		if !l.allowShort && size.GreaterThan(decimal.Max(held, decimal.Zero)) {
			l.reject(order, at, types.OrderReasonInsufficientPosition, size)

			return types.Fill{}, false
		}
	}

	qty := size
	if order.Side == types.SideSell {
		qty = size.Neg()
	}

	fill := types.Fill{
		OrderID:    order.ID,
		Symbol:     order.Symbol,
		Time:       at,
		Price:      price.InexactFloat64(),
		Size:       qty.InexactFloat64(),
		Commission: fee.InexactFloat64(),
	}

	l.book(fill, qty, price, fee)
	_ = order.Transition(types.OrderStatusFilled, at, "")

	l.logger.Debug("Order filled",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("price", fill.Price),
		zap.Float64("size", fill.Size),
	)

	return fill, true
}

// book moves cash and position for a signed fill.
func (l *Ledger) book(fill types.Fill, qty, price, fee decimal.Decimal) {
	pos, ok := l.positions[fill.Symbol]
	if !ok {
		pos = newPosition(fill.Symbol)
		l.positions[fill.Symbol] = pos
	}

	l.cash = l.cash.Sub(qty.Mul(price)).Sub(fee)

	if closed := pos.apply(qty, price, fee, fill.Time); closed != nil {
		l.trades = append(l.trades, *closed)
	}

	if _, marked := l.marks[fill.Symbol]; !marked {
		l.marks[fill.Symbol] = price
	}

	l.fills = append(l.fills, fill)
}

func (l *Ledger) reject(order *types.Order, at time.Time, reason string, required decimal.Decimal) {
	_ = order.Transition(types.OrderStatusRejected, at, reason)

	l.logger.Warn("Order rejected",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("reason", reason),
		zap.String("required", required.String()),
		zap.String("cash", l.cash.String()),
	)
}

func (l *Ledger) record(order types.Order) {
	if i, ok := l.index[order.ID]; ok {
		l.orders[i] = order

		return
	}

	l.index[order.ID] = len(l.orders)
	l.orders = append(l.orders, order)
}

func (l *Ledger) snapshot(at time.Time) types.LedgerSnapshot {
	equity := l.cash
	positions := make([]types.Position, 0, len(l.positions))
	prices := make(map[string]float64, len(l.positions))

	for _, symbol := range l.sortedSymbols() {
		pos := l.positions[symbol]
		if pos.size.IsZero() {
			continue
		}

		mark := l.marks[symbol]
		equity = equity.Add(pos.size.Mul(mark))
		positions = append(positions, pos.toType())
		prices[symbol] = mark.InexactFloat64()
	}

	return types.LedgerSnapshot{
		Time:      at,
		Cash:      l.cash.InexactFloat64(),
		Positions: positions,
		Prices:    prices,
		Equity:    equity.InexactFloat64(),
	}
}

func (l *Ledger) sortedSymbols() []string {
	symbols := make([]string, 0, len(l.positions))
	for symbol := range l.positions {
		symbols = append(symbols, symbol)
	}

	slices.Sort(symbols)

	return symbols
}

// fillPrice decides whether order can fill on bar and at what price.
// Market orders take the open. Limit orders fill when the range reaches
// the limit; an open already through the limit fills at the open.
func fillPrice(order types.Order, bar types.Bar) (decimal.Decimal, bool) {
	open := decimal.NewFromFloat(bar.Open)

	if order.Type == types.OrderTypeMarket {
		return open, true
	}

	limit := decimal.NewFromFloat(order.LimitPrice.TakeOr(0))

	switch order.Side {
	case types.SideBuy:
		if decimal.NewFromFloat(bar.Low).GreaterThan(limit) {
			return decimal.Zero, false
		}

		return decimal.Min(open, limit), true
	case types.SideSell:
		if decimal.NewFromFloat(bar.High).LessThan(limit) {
			return decimal.Zero, false
		}

		return decimal.Max(open, limit), true
	}

	return decimal.Zero, false
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.cash.InexactFloat64()
}

// InitialCash returns the starting balance.
func (l *Ledger) InitialCash() float64 {
	return l.initialCash.InexactFloat64()
}

// Equity returns cash plus positions valued at the latest marks.
func (l *Ledger) Equity() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshot(time.Time{}).Equity
}

// Position returns the holding for symbol; flat when never traded.
func (l *Ledger) Position(symbol string) types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pos, ok := l.positions[symbol]; ok {
		return pos.toType()
	}

	return types.Position{Symbol: symbol}
}

// Order returns the order with id.
func (l *Ledger) Order(id string) (types.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", id)
	}

	return l.orders[i], nil
}

// Orders returns every order in submission order.
func (l *Ledger) Orders() []types.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.orders)
}

// PendingCount returns how many orders wait for a fill.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.pending)
}

// Fills returns every fill in execution order.
func (l *Ledger) Fills() []types.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.fills)
}

// ClosedTrades returns every completed round trip.
func (l *Ledger) ClosedTrades() []types.ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.trades)
}

// Snapshots returns the equity curve.
func (l *Ledger) Snapshots() []types.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.snapshots)
}
