package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"lob/domain/book"
)

// The outbox persists the append-only trade history for downstream
// dispatch. Book state itself is never persisted; only trades, which are
// immutable once written.

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// Record is the persisted form of one executed trade plus its dispatch
// state.
type Record struct {
	TradeID     uint64 `json:"trade_id"`
	Symbol      string `json:"symbol"`
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
	Price       string `json:"price"`
	Qty         int64  `json:"qty"`
	Executed    int64  `json:"executed"`

	State       State  `json:"state"`
	Retries     uint32 `json:"retries"`
	LastAttempt int64  `json:"last_attempt"`
}

func newRecord(t book.Trade) Record {
	return Record{
		TradeID:     t.ID,
		Symbol:      t.Symbol,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       t.Price.String(),
		Qty:         t.Qty,
		Executed:    t.Executed.UnixNano(),
		State:       StateNew,
	}
}

// -------------------- Outbox --------------------

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // we WANT durability for dispatched trades
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// Append stores a freshly executed trade in NEW state. Called by the
// OrderService after the matching critical section commits.
func (o *Outbox) Append(t book.Trade) error {
	rec := newRecord(t)
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return o.db.Set(keyFor(t.ID), val, pebble.Sync)
}

// Get returns the current record for a trade.
func (o *Outbox) Get(tradeID uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(tradeID))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// MarkSent moves a record to SENT and stamps the attempt.
func (o *Outbox) MarkSent(tradeID uint64) error {
	return o.transition(tradeID, StateSent, true)
}

// MarkAcked records broker acknowledgement.
func (o *Outbox) MarkAcked(tradeID uint64) error {
	return o.transition(tradeID, StateAcked, false)
}

// MarkFailed bumps the retry counter; the record stays eligible for the
// next scan.
func (o *Outbox) MarkFailed(tradeID uint64) error {
	return o.transition(tradeID, StateFailed, true)
}

// Delete removes ACKED records (cleanup).
func (o *Outbox) Delete(tradeID uint64) error {
	return o.db.Delete(keyFor(tradeID), pebble.Sync)
}

func (o *Outbox) transition(tradeID uint64, state State, attempt bool) error {
	rec, err := o.Get(tradeID)
	if err != nil {
		return err
	}
	rec.State = state
	if attempt {
		rec.Retries++
		rec.LastAttempt = time.Now().UnixNano()
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return o.db.Set(keyFor(tradeID), val, pebble.Sync)
}

// -------------------- Scan --------------------

// ScanPending iterates every record not yet acknowledged, in trade-id
// order. Used by the feed broadcaster.
func (o *Outbox) ScanPending(fn func(rec Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("corrupt outbox record at %q: %w", iter.Key(), err)
		}
		if rec.State == StateAcked {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

const keyPrefix = "trade/"

func keyFor(tradeID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, tradeID))
}