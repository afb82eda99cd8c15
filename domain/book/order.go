package book

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side int
type OrderType int

const (
	Bid Side = iota
	Ask
)

const (
	Limit OrderType = iota
	Market
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// Order is a pure domain entity. Identity is the engine-assigned ID,
// Qty is the original quantity and never changes after construction.
// The intrusive links chain orders into their price level's FIFO.
type Order struct {
	ID     uint64
	Symbol string
	Side   Side
	Type   OrderType
	Price  decimal.Decimal // zero for Market orders
	Qty    int64
	Filled int64

	// Created is the arrival timestamp. Queue position, not the clock,
	// decides time priority; this is kept for reporting.
	Created time.Time

	next *Order
	prev *Order
}

func (o *Order) Remaining() int64 {
	return o.Qty - o.Filled
}

func (o *Order) IsFilled() bool {
	return o.Remaining() == 0
}

// Fill consumes qty from the remaining quantity. It is the only mutation
// an order ever sees after construction.
func (o *Order) Fill(qty int64) error {
	if qty <= 0 || qty > o.Remaining() {
		return fmt.Errorf("%w: fill qty %d against remaining %d on order #%d",
			ErrInvariantViolation, qty, o.Remaining(), o.ID)
	}
	o.Filled += qty
	return nil
}

// Next returns the successor in the level FIFO. Read-only traversal.
func (o *Order) Next() *Order {
	return o.next
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{id=%d, %s, %s, %s, price=%s, qty=%d, filled=%d}",
		o.ID, o.Symbol, o.Side, o.Type, o.Price.StringFixed(2), o.Qty, o.Filled)
}
