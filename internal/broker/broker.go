// Package broker adapts order routing to either the simulated ledger or a
// live venue behind one capability set.
package broker

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/types"
)

// Broker is the capability set the runtime trades through.
type Broker interface {
	// GetCash returns the available cash.
	GetCash(ctx context.Context) (float64, error)
	// GetValue returns cash plus the marked value of all positions.
	GetValue(ctx context.Context) (float64, error)
	// GetPosition returns the position held in symbol.
	GetPosition(ctx context.Context, symbol string) (types.Position, error)
	// SubmitOrder turns an intent into an order. A returned error with a
	// rejection or transient kind leaves a rejected order behind; the run
	// may continue.
	SubmitOrder(ctx context.Context, intent types.OrderIntent, at time.Time) (types.Order, error)
	// OnBar advances the broker to bar: resolves what can be resolved and
	// appends one snapshot valued at the bar's close.
	OnBar(ctx context.Context, bar types.Bar) (ledger.BarResult, error)
	// Close cancels whatever is still pending at the end of a run.
	Close(ctx context.Context, at time.Time) []types.Order
	// Ledger exposes the local book used for result assembly.
	Ledger() *ledger.Ledger
}

// Venue is a live trading endpoint.
type Venue interface {
	// Name returns the venue identifier, e.g. "binance".
	Name() string
	// Symbol translates a core symbol into the venue's notation.
	Symbol(symbol string) (string, error)
	// Balance queries cash and equity.
	Balance(ctx context.Context) (types.Balance, error)
	// Position returns the signed size held in venueSymbol.
	Position(ctx context.Context, venueSymbol string) (float64, error)
	// PlaceOrder sends an order and reports how far it executed.
	PlaceOrder(ctx context.Context, order types.VenueOrder) (types.Execution, error)
}
