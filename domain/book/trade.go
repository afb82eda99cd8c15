package book

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one execution between a buy and a sell order.
// It is immutable once constructed and lives in an append-only history.
type Trade struct {
	ID          uint64
	Symbol      string
	BuyOrderID  uint64
	SellOrderID uint64
	Price       decimal.Decimal
	Qty         int64
	Executed    time.Time
}

// Value is price × quantity.
func (t Trade) Value() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Qty))
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade{id=%d, %s, buy=#%d, sell=#%d, price=%s, qty=%d, value=%s}",
		t.ID, t.Symbol, t.BuyOrderID, t.SellOrderID,
		t.Price.StringFixed(2), t.Qty, t.Value().StringFixed(2))
}
