package types

import (
	"math"
	"time"
)

// Fill is the execution of an order. Size is signed: positive for buys,
// negative for sells.
type Fill struct {
	OrderID    string    `yaml:"order_id" json:"order_id" csv:"order_id"`
	Symbol     string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time       time.Time `yaml:"time" json:"time" csv:"time"`
	Price      float64   `yaml:"price" json:"price" csv:"price"`
	Size       float64   `yaml:"size" json:"size" csv:"size"`
	Commission float64   `yaml:"commission" json:"commission" csv:"commission"`
}

// Side derives the order side from the sign of the filled size.
func (f Fill) Side() Side {
	if f.Size < 0 {
		return SideSell
	}

	return SideBuy
}

// AbsSize returns the unsigned filled size.
func (f Fill) AbsSize() float64 {
	return math.Abs(f.Size)
}
