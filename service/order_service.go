package service

import (
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lob/domain/book"
)

// OrderService is the ONLY write entry point into the engine.
//
// One mutex guards the whole submit/cancel critical section. Never
// per-level locking: a single submission may drain several price levels,
// and price-time priority depends on zero interleaving inside a call.
// Reads (snapshot, trade listing) take the same lock and hand out value
// copies, so no caller ever observes the book mid-mutation.
type OrderService struct {
	mu     sync.Mutex
	engine *book.MatchingEngine
	sink   TradeSink
	log    *zap.Logger
}

// TradeSink receives executed trades after the book mutation has
// committed. A nil sink disables dispatch.
type TradeSink interface {
	Append(t book.Trade) error
}

// New wires the service. No globals.
func New(engine *book.MatchingEngine, sink TradeSink, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		engine: engine,
		sink:   sink,
		log:    log,
	}
}

// SubmitLimit places a limit order and returns the trades it produced.
func (s *OrderService) SubmitLimit(side book.Side, price decimal.Decimal, qty int64) ([]book.Trade, error) {
	return s.submit(side, book.Limit, price, qty)
}

// SubmitMarket places a market order. The unfilled remainder, if any,
// is discarded, never rested.
func (s *OrderService) SubmitMarket(side book.Side, qty int64) ([]book.Trade, error) {
	return s.submit(side, book.Market, decimal.Decimal{}, qty)
}

func (s *OrderService) submit(side book.Side, typ book.OrderType, price decimal.Decimal, qty int64) ([]book.Trade, error) {
	s.mu.Lock()
	o := s.engine.NewOrder(side, typ, price, qty)
	trades, err := s.engine.Submit(o)
	// A rested order belongs to the book the moment the lock drops; a
	// concurrent submission may fill it. Copy everything we log first.
	orderID := o.ID
	remaining := o.Remaining()
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("submit rejected",
			zap.Uint64("order_id", orderID),
			zap.Stringer("side", side),
			zap.Stringer("type", typ),
			zap.Error(err))
		return trades, err
	}

	s.log.Info("order submitted",
		zap.Uint64("order_id", orderID),
		zap.Stringer("side", side),
		zap.Stringer("type", typ),
		zap.String("price", price.String()),
		zap.Int64("qty", qty),
		zap.Int64("remaining", remaining),
		zap.Int("trades", len(trades)))

	s.dispatch(trades)
	return trades, nil
}

// Cancel removes a resting order. False means the id was unknown or
// already consumed; that is an expected race, not a failure.
func (s *OrderService) Cancel(id uint64) bool {
	s.mu.Lock()
	ok := s.engine.Cancel(id)
	s.mu.Unlock()

	s.log.Info("cancel", zap.Uint64("order_id", id), zap.Bool("found", ok))
	return ok
}

// NextOrderID mints an order id without submitting. Side-effecting.
func (s *OrderService) NextOrderID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.NextOrderID()
}

// Snapshot returns a consistent value copy of the book's public state.
func (s *OrderService) Snapshot(depth int) book.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot(depth)
}

// Trades returns a copy of the trade history, safe to iterate without
// holding anything.
func (s *OrderService) Trades() []book.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.engine.TradeHistory()
	out := make([]book.Trade, len(history))
	copy(out, history)
	return out
}

// dispatch runs outside the critical section; the book must not wait on
// a slow sink.
func (s *OrderService) dispatch(trades []book.Trade) {
	if s.sink == nil {
		return
	}
	for _, t := range trades {
		if err := s.sink.Append(t); err != nil {
			s.log.Error("trade sink append failed",
				zap.Uint64("trade_id", t.ID),
				zap.Error(err))
		}
	}
}
