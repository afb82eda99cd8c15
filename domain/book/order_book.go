package book

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderBook owns both sides of one instrument plus the id index.
// Single-writer and deterministic; callers serialize access (see service).
//
// Invariant: every order in the index rests in exactly one level on its
// own side, and every queued order is in the index.
type OrderBook struct {
	Symbol string

	bids *RBTree // best = Max
	asks *RBTree // best = Min

	orders map[uint64]*Order
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   NewRBTree(),
		asks:   NewRBTree(),
		orders: make(map[uint64]*Order),
	}
}

// Insert rests an order on its side, creating the price level when
// missing, and records it in the id index.
func (b *OrderBook) Insert(o *Order) error {
	if o.Remaining() <= 0 {
		return fmt.Errorf("%w: resting order #%d has no remaining quantity",
			ErrInvariantViolation, o.ID)
	}
	if _, ok := b.orders[o.ID]; ok {
		return fmt.Errorf("%w: order #%d already rests in the book",
			ErrInvariantViolation, o.ID)
	}

	b.sideTree(o.Side).GetOrCreate(o.Price).Enqueue(o)
	b.orders[o.ID] = o
	return nil
}

// Cancel removes a resting order by id. The level is deleted when it
// empties so a drained price can never surface as best again.
func (b *OrderBook) Cancel(id uint64) error {
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: #%d", ErrOrderNotFound, id)
	}

	tree := b.sideTree(o.Side)
	lvl := tree.Find(o.Price)
	if lvl == nil {
		return fmt.Errorf("%w: order #%d indexed but its level %s is gone",
			ErrInvariantViolation, id, o.Price)
	}

	lvl.Remove(o)
	if lvl.Empty() {
		tree.Delete(lvl.Price)
	}
	delete(b.orders, id)
	return nil
}

// BestBid returns the highest resting bid price. ok is false when the
// bid side is empty; never a zero sentinel.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	lvl := b.bids.Max()
	if lvl == nil {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting ask price.
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	lvl := b.asks.Min()
	if lvl == nil {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

// Spread is bestAsk − bestBid, undefined when either side is empty.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return ask.Sub(bid), true
}

// MidPrice is (bestBid + bestAsk) / 2, undefined when either side is empty.
func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// BestBidLevel gives the matching loop direct top-of-book access,
// avoiding a second lookup by price. Nil when the side is empty.
func (b *OrderBook) BestBidLevel() *PriceLevel {
	return b.bids.Max()
}

func (b *OrderBook) BestAskLevel() *PriceLevel {
	return b.asks.Min()
}

// RestingOrders is the number of orders currently resting on both sides.
func (b *OrderBook) RestingOrders() int {
	return len(b.orders)
}

// Depth reports up to n levels per side, best first.
func (b *OrderBook) Depth(n int) (bids, asks []LevelDepth) {
	collect := func(lvl *PriceLevel, out *[]LevelDepth) bool {
		if len(*out) >= n {
			return false
		}
		*out = append(*out, LevelDepth{
			Price:  lvl.Price,
			Volume: lvl.TotalQty,
			Orders: lvl.OrderCount,
		})
		return true
	}
	b.bids.WalkDesc(func(lvl *PriceLevel) bool { return collect(lvl, &bids) })
	b.asks.WalkAsc(func(lvl *PriceLevel) bool { return collect(lvl, &asks) })
	return bids, asks
}

// Snapshot captures the read-only view collaborators consume: nullable
// top-of-book stats plus per-level depth.
func (b *OrderBook) Snapshot(depth int) Snapshot {
	s := Snapshot{
		Symbol:        b.Symbol,
		RestingOrders: b.RestingOrders(),
	}
	s.Bids, s.Asks = b.Depth(depth)

	if bid, ok := b.BestBid(); ok {
		s.BestBid = decimal.NewNullDecimal(bid)
	}
	if ask, ok := b.BestAsk(); ok {
		s.BestAsk = decimal.NewNullDecimal(ask)
	}
	if sp, ok := b.Spread(); ok {
		s.Spread = decimal.NewNullDecimal(sp)
	}
	if mid, ok := b.MidPrice(); ok {
		s.MidPrice = decimal.NewNullDecimal(mid)
	}
	return s
}

func (b *OrderBook) sideTree(s Side) *RBTree {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// LevelDepth is one (price, volume) row of a depth snapshot.
type LevelDepth struct {
	Price  decimal.Decimal
	Volume int64
	Orders int
}

// Snapshot is a value copy of the book's public state. Best prices,
// spread and mid are Valid only when the relevant sides have liquidity.
type Snapshot struct {
	Symbol        string
	BestBid       decimal.NullDecimal
	BestAsk       decimal.NullDecimal
	Spread        decimal.NullDecimal
	MidPrice      decimal.NullDecimal
	RestingOrders int
	Bids          []LevelDepth
	Asks          []LevelDepth
}
