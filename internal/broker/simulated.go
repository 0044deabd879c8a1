package broker

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-core/internal/ledger"
	"github.com/rxtech-lab/argo-core/internal/types"
)

var _ Broker = (*Simulated)(nil)

// Simulated routes orders into a ledger that fills them against later bars.
type Simulated struct {
	ledger *ledger.Ledger
}

// NewSimulated creates a simulated broker over l.
func NewSimulated(l *ledger.Ledger) *Simulated {
	return &Simulated{ledger: l}
}

func (s *Simulated) GetCash(_ context.Context) (float64, error) {
	return s.ledger.Cash(), nil
}

func (s *Simulated) GetValue(_ context.Context) (float64, error) {
	return s.ledger.Equity(), nil
}

func (s *Simulated) GetPosition(_ context.Context, symbol string) (types.Position, error) {
	return s.ledger.Position(symbol), nil
}

// SubmitOrder queues the intent for the next bar. Only invalid intents
// fail here; cash checks happen at fill time.
func (s *Simulated) SubmitOrder(_ context.Context, intent types.OrderIntent, at time.Time) (types.Order, error) {
	return s.ledger.Submit(intent, at)
}

func (s *Simulated) OnBar(_ context.Context, bar types.Bar) (ledger.BarResult, error) {
	return s.ledger.ProcessBar(bar), nil
}

func (s *Simulated) Close(_ context.Context, at time.Time) []types.Order {
	return s.ledger.CancelPending(at, types.OrderReasonRunEnded)
}

func (s *Simulated) Ledger() *ledger.Ledger {
	return s.ledger
}
