package book

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of resting orders at a single price.
// TotalQty caches the sum of Remaining over all queued orders.
// The price is fixed at construction.
type PriceLevel struct {
	Price decimal.Decimal

	head *Order
	tail *Order

	TotalQty   int64
	OrderCount int
}

// Enqueue appends to the back of the queue. Later arrivals never
// overtake earlier ones at the same price.
func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Remaining()
	p.OrderCount++
}

// Head returns the earliest-arrived order without removing it,
// nil when the level is empty.
func (p *PriceLevel) Head() *Order {
	return p.head
}

// PopHead removes and returns the front order. Called only once that
// order is fully filled, so its remaining quantity no longer counts.
func (p *PriceLevel) PopHead() *Order {
	o := p.head
	if o == nil {
		return nil
	}

	p.head = o.next
	if p.head != nil {
		p.head.prev = nil
	} else {
		p.tail = nil
	}

	o.next = nil
	o.prev = nil

	p.TotalQty -= o.Remaining()
	p.OrderCount--

	return o
}

// Remove unlinks an arbitrary order, the cancellation path. O(1) on the
// links themselves; finding the order is the caller's problem.
func (p *PriceLevel) Remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}

	o.next = nil
	o.prev = nil

	p.TotalQty -= o.Remaining()
	p.OrderCount--
}

// ReduceVolume keeps TotalQty honest when the head order is partially
// filled in place. A partial fill never changes queue position.
func (p *PriceLevel) ReduceVolume(qty int64) {
	p.TotalQty -= qty
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}
