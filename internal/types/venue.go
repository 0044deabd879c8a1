package types

import "time"

// Balance is an account balance reported by a live venue, in the account
// currency.
type Balance struct {
	Cash   float64 `yaml:"cash" json:"cash"`
	Equity float64 `yaml:"equity" json:"equity"`
}

// Execution is a venue's answer to a placed order. FilledSize is unsigned;
// the side comes from the order.
type Execution struct {
	VenueOrderID string      `yaml:"venue_order_id" json:"venue_order_id"`
	Status       OrderStatus `yaml:"status" json:"status"`
	FilledSize   float64     `yaml:"filled_size" json:"filled_size"`
	AveragePrice float64     `yaml:"average_price" json:"average_price"`
	Commission   float64     `yaml:"commission" json:"commission"`
	Time         time.Time   `yaml:"time" json:"time"`
	// Message carries the venue's rejection reason, if any.
	Message string `yaml:"message" json:"message"`
}

// VenueOrder is what a broker hands to a venue: a validated order with the
// size resolved and the symbol already translated.
type VenueOrder struct {
	ClientID    string
	VenueSymbol string
	Side        Side
	Type        OrderType
	Size        float64
	LimitPrice  float64
}
