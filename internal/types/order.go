package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

const (
	OrderReasonInsufficientCash     string = "insufficient_cash"
	OrderReasonInsufficientPosition string = "insufficient_position"
	OrderReasonNoPosition           string = "no_position"
	OrderReasonInvalidIntent        string = "invalid_intent"
	OrderReasonUnknownSymbol        string = "unknown_symbol"
	OrderReasonVenueError           string = "venue_error"
	OrderReasonRunEnded             string = "run_ended"
)

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}

	return 1
}

// IsTerminal reports whether no further transition is allowed from the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusRejected || s == OrderStatusCancelled
}

// OrderIntent is what a strategy asks for. The runtime turns it into an Order.
type OrderIntent struct {
	Symbol string    `yaml:"symbol" json:"symbol" validate:"required"`
	Side   Side      `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type   OrderType `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT"`
	// Size is ignored when CloseAll is set.
	Size float64 `yaml:"size" json:"size" validate:"gte=0"`
	// LimitPrice is required for limit orders.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
	// CloseAll flattens the whole position at fill time.
	CloseAll bool   `yaml:"close_all" json:"close_all"`
	Reason   string `yaml:"reason" json:"reason"`
}

// Validate validates the OrderIntent struct.
func (oi OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(oi); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderIntent, "invalid order intent", err)
	}

	if !oi.CloseAll && oi.Size <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrderIntent, "order size must be positive, got %v", oi.Size)
	}

	if oi.Type == OrderTypeLimit {
		if oi.LimitPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrderIntent, "limit order requires a limit price")
		}

		if price := oi.LimitPrice.Unwrap(); price <= 0 {
			return errors.Newf(errors.ErrCodeInvalidOrderIntent, "limit price must be positive, got %v", price)
		}
	}

	return nil
}

// Order is a submitted order and its lifecycle.
type Order struct {
	ID         string                  `yaml:"id" json:"id" csv:"id"`
	Symbol     string                  `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side       Side                    `yaml:"side" json:"side" csv:"side"`
	Type       OrderType               `yaml:"type" json:"type" csv:"type"`
	Size       float64                 `yaml:"size" json:"size" csv:"size"`
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price" csv:"limit_price"`
	CloseAll   bool                    `yaml:"close_all" json:"close_all" csv:"close_all"`
	Status     OrderStatus             `yaml:"status" json:"status" csv:"status"`
	// Reason carries the strategy's reason while submitted and the
	// rejection/cancellation reason once terminal.
	Reason      string    `yaml:"reason" json:"reason" csv:"reason"`
	SubmittedAt time.Time `yaml:"submitted_at" json:"submitted_at" csv:"submitted_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at" csv:"updated_at"`
}

// NewOrder creates a submitted order from an intent.
func NewOrder(id string, intent OrderIntent, at time.Time) Order {
	return Order{
		ID:          id,
		Symbol:      intent.Symbol,
		Side:        intent.Side,
		Type:        intent.Type,
		Size:        intent.Size,
		LimitPrice:  intent.LimitPrice,
		CloseAll:    intent.CloseAll,
		Status:      OrderStatusSubmitted,
		Reason:      intent.Reason,
		SubmittedAt: at,
		UpdatedAt:   at,
	}
}

// Transition moves the order to status. Only submitted orders may move,
// and only to a terminal status.
func (o *Order) Transition(status OrderStatus, at time.Time, reason string) error {
	if o.Status != OrderStatusSubmitted || !status.IsTerminal() {
		return errors.Newf(errors.ErrCodeIllegalTransition, "order %s cannot move from %s to %s", o.ID, o.Status, status)
	}

	o.Status = status
	o.UpdatedAt = at

	if reason != "" {
		o.Reason = reason
	}

	return nil
}
