package orderbookv1

import (
	"time"
)

// Side represents which side of the book an order belongs to.
type Side uint8

const (
	// SideBuy represents a buy (bid) order.
	SideBuy Side = iota
	// SideSell represents a sell (ask) order.
	SideSell
)

// String returns the wire representation of the side.
func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// SideFromString parses a wire side representation. The boolean reports
// whether the input was a valid side.
func SideFromString(s string) (Side, bool) {
	switch s {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	}
	return SideBuy, false
}

// Order represents a single order in the order book. Prices are fixed-point
// tick counts so exact price-level lookups never go through float equality.
type Order struct {
	ID        uint64 `json:"id"`
	Price     int64  `json:"price"`    // in ticks
	Quantity  int64  `json:"quantity"` // initial quantity
	Remaining int64  `json:"remaining"`
	Side      Side   `json:"side"`
	Timestamp int64  `json:"timestamp"` // UnixNano, assigned at construction
}

// NewOrder creates a new order with the given parameters. The remaining
// quantity starts equal to the initial quantity.
func NewOrder(id uint64, side Side, price, quantity int64) *Order {
	return &Order{
		ID:        id,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Side:      side,
		Timestamp: time.Now().UnixNano(),
	}
}

// IsBuy checks if the order is a buy (bid) order.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsFilled checks if the order is filled (remaining quantity is zero).
func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// Fill consumes quantity from the order's remaining quantity.
func (o *Order) Fill(quantity int64) {
	o.Remaining -= quantity
}
