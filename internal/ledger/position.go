package ledger

import (
	"time"

	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/shopspring/decimal"
)

// position is the decimal backed holding of one symbol together with the
// bookkeeping of the round trip it currently belongs to.
type position struct {
	symbol   string
	size     decimal.Decimal
	avgEntry decimal.Decimal
	realized decimal.Decimal

	// open round trip
	openedAt       time.Time
	entryQty       decimal.Decimal
	exitQty        decimal.Decimal
	exitNotional   decimal.Decimal
	tradeRealized  decimal.Decimal
	tradeFees      decimal.Decimal
	tradeEntryMark decimal.Decimal
}

func newPosition(symbol string) *position {
	return &position{
		symbol:         symbol,
		size:           decimal.Zero,
		avgEntry:       decimal.Zero,
		realized:       decimal.Zero,
		entryQty:       decimal.Zero,
		exitQty:        decimal.Zero,
		exitNotional:   decimal.Zero,
		tradeRealized:  decimal.Zero,
		tradeFees:      decimal.Zero,
		tradeEntryMark: decimal.Zero,
	}
}

func (p *position) toType() types.Position {
	return types.Position{
		Symbol:            p.symbol,
		Size:              p.size.InexactFloat64(),
		AverageEntryPrice: p.avgEntry.InexactFloat64(),
		RealizedPnL:       p.realized.InexactFloat64(),
	}
}

// apply books a signed fill quantity at price and returns the round trip
// closed by it, if any.
func (p *position) apply(qty, price, fee decimal.Decimal, at time.Time) *types.ClosedTrade {
	old := p.size
	next := old.Add(qty)

	// opening or adding in the same direction
	if old.IsZero() || old.Sign() == qty.Sign() {
		if old.IsZero() {
			p.startTrade(at)
		}

		notional := p.avgEntry.Mul(old.Abs()).Add(price.Mul(qty.Abs()))
		p.avgEntry = notional.Div(next.Abs())
		p.size = next
		p.entryQty = p.entryQty.Add(qty.Abs())
		p.tradeFees = p.tradeFees.Add(fee)
		p.tradeEntryMark = p.avgEntry

		return nil
	}

	// reducing, closing or reversing
	closing := decimal.Min(qty.Abs(), old.Abs())
	pnl := price.Sub(p.avgEntry).Mul(closing).Mul(decimal.NewFromInt(int64(old.Sign())))
	p.realized = p.realized.Add(pnl)
	p.tradeRealized = p.tradeRealized.Add(pnl)
	p.exitQty = p.exitQty.Add(closing)
	p.exitNotional = p.exitNotional.Add(price.Mul(closing))
	p.tradeFees = p.tradeFees.Add(fee)

	if qty.Abs().LessThan(old.Abs()) {
		p.size = next

		return nil
	}

	closed := &types.ClosedTrade{
		Symbol:     p.symbol,
		OpenedAt:   p.openedAt,
		ClosedAt:   at,
		Size:       p.entryQty.InexactFloat64(),
		EntryPrice: p.tradeEntryMark.InexactFloat64(),
		ExitPrice:  p.exitNotional.Div(p.exitQty).InexactFloat64(),
		PnL:        p.tradeRealized.Sub(p.tradeFees).InexactFloat64(),
	}

	p.size = next
	p.avgEntry = decimal.Zero

	if !next.IsZero() {
		// reversal opens a new round trip with the remainder
		p.startTrade(at)
		p.avgEntry = price
		p.entryQty = next.Abs()
		p.tradeEntryMark = price
	}

	return closed
}

func (p *position) startTrade(at time.Time) {
	p.openedAt = at
	p.entryQty = decimal.Zero
	p.exitQty = decimal.Zero
	p.exitNotional = decimal.Zero
	p.tradeRealized = decimal.Zero
	p.tradeFees = decimal.Zero
	p.tradeEntryMark = decimal.Zero
}
