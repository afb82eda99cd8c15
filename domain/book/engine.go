package book

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lob/infra/sequence"
)

// MatchingEngine is the stateful entry point: it accepts new orders,
// matches them against the book's opposite side, emits Trade records and
// rests any unfilled limit remainder.
//
// A submission is one indivisible unit of work. The engine itself is
// unsynchronized; the service layer owns the critical section.
type MatchingEngine struct {
	book   *OrderBook
	trades []Trade

	orderIDs *sequence.Sequencer
	tradeIDs *sequence.Sequencer
}

func NewMatchingEngine(b *OrderBook) *MatchingEngine {
	return &MatchingEngine{
		book:     b,
		orderIDs: sequence.New(0),
		tradeIDs: sequence.New(0),
	}
}

// NextOrderID mints the next order identifier. Side-effecting.
func (e *MatchingEngine) NextOrderID() uint64 {
	return e.orderIDs.Next()
}

// NewOrder builds an order bound to this engine's id stream and symbol.
func (e *MatchingEngine) NewOrder(side Side, typ OrderType, price decimal.Decimal, qty int64) *Order {
	return &Order{
		ID:      e.NextOrderID(),
		Symbol:  e.book.Symbol,
		Side:    side,
		Type:    typ,
		Price:   price,
		Qty:     qty,
		Created: time.Now(),
	}
}

// Submit runs one order through the matching algorithm and returns the
// trades it produced, possibly none.
//
// Market orders match unconditionally and never rest: an unfilled
// remainder is discarded, since a market order has no price to wait at.
// Limit orders match under the crossing guard, then rest any remainder.
func (e *MatchingEngine) Submit(o *Order) ([]Trade, error) {
	if err := validate(o); err != nil {
		return nil, err
	}

	trades, err := e.match(o)
	e.trades = append(e.trades, trades...)
	if err != nil {
		return trades, err
	}

	if o.Type == Limit && o.Remaining() > 0 {
		if err := e.book.Insert(o); err != nil {
			return trades, err
		}
	}
	return trades, nil
}

// Cancel removes a resting order. A miss returns false rather than an
// error: cancelling an id the fills just consumed is an ordinary race.
func (e *MatchingEngine) Cancel(id uint64) bool {
	return e.book.Cancel(id) == nil
}

// TradeHistory exposes the append-only history by reference for
// read-only iteration.
func (e *MatchingEngine) TradeHistory() []Trade {
	return e.trades
}

func (e *MatchingEngine) TotalTrades() int {
	return len(e.trades)
}

// Snapshot reports the book's public state at up to depth levels per side.
func (e *MatchingEngine) Snapshot(depth int) Snapshot {
	return e.book.Snapshot(depth)
}

func (e *MatchingEngine) Book() *OrderBook {
	return e.book
}

// match is the shared loop for both order types, parameterized by side.
// Best price and top level are re-read every iteration; caching either
// across a multi-fill loop would go stale the moment a level drains.
func (e *MatchingEngine) match(o *Order) ([]Trade, error) {
	var trades []Trade

	for o.Remaining() > 0 {
		var best *PriceLevel
		if o.Side == Bid {
			best = e.book.BestAskLevel()
			if best == nil {
				break
			}
			if o.Type == Limit && o.Price.Cmp(best.Price) < 0 {
				break
			}
		} else {
			best = e.book.BestBidLevel()
			if best == nil {
				break
			}
			if o.Type == Limit && o.Price.Cmp(best.Price) > 0 {
				break
			}
		}

		resting := best.Head()
		fillQty := minQty(o.Remaining(), resting.Remaining())
		if fillQty <= 0 {
			return trades, fmt.Errorf("%w: fill of %d between #%d and #%d",
				ErrInvariantViolation, fillQty, o.ID, resting.ID)
		}

		// The resting order sets the price; the aggressor takes it.
		if err := o.Fill(fillQty); err != nil {
			return trades, err
		}
		if err := resting.Fill(fillQty); err != nil {
			return trades, err
		}
		best.ReduceVolume(fillQty)

		if resting.IsFilled() {
			best.PopHead()
			delete(e.book.orders, resting.ID)
		}
		if best.Empty() {
			e.book.sideTree(opposite(o.Side)).Delete(best.Price)
		}

		trades = append(trades, e.recordTrade(o, resting, best.Price, fillQty))
	}

	return trades, nil
}

// recordTrade assigns buy/sell ids by order side, not by aggressor role.
func (e *MatchingEngine) recordTrade(a, b *Order, price decimal.Decimal, qty int64) Trade {
	t := Trade{
		ID:       e.tradeIDs.Next(),
		Symbol:   e.book.Symbol,
		Price:    price,
		Qty:      qty,
		Executed: time.Now(),
	}
	if a.Side == Bid {
		t.BuyOrderID, t.SellOrderID = a.ID, b.ID
	} else {
		t.BuyOrderID, t.SellOrderID = b.ID, a.ID
	}
	return t
}

// validate rejects malformed input before any state mutation.
func validate(o *Order) error {
	if o == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if o.Side != Bid && o.Side != Ask {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, o.Side)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: quantity %d", ErrInvalidOrder, o.Qty)
	}
	switch o.Type {
	case Market:
	case Limit:
		if o.Price.Sign() <= 0 {
			return fmt.Errorf("%w: limit price %s", ErrInvalidOrder, o.Price)
		}
	default:
		return fmt.Errorf("%w: unknown type %d", ErrInvalidOrder, o.Type)
	}
	return nil
}

func opposite(s Side) Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func minQty(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
