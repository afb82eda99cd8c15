// Package display renders book snapshots and trade listings for the
// console. It consumes only the read-only boundary surface; it never
// reaches into price levels or the order index.
package display

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"lob/domain/book"
)

const rule = "+--------------------+--------------------+"

// PrintBook renders the two-sided ladder plus market stats.
func PrintBook(w io.Writer, snap book.Snapshot) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "+-----------------------------------------+")
	fmt.Fprintf(w, "|    LIMIT ORDER BOOK - %-18s|\n", snap.Symbol)
	fmt.Fprintln(w, "+-----------------------------------------+")
	fmt.Fprintf(w, "| %-18s | %-18s |\n", "    BID (BUY)", "ASK (SELL)")
	fmt.Fprintf(w, "| %-18s | %-18s |\n", "  Qty      Price", "Price      Qty")
	fmt.Fprintln(w, rule)

	rows := len(snap.Bids)
	if len(snap.Asks) > rows {
		rows = len(snap.Asks)
	}
	if rows == 0 {
		fmt.Fprintln(w, "|               Book is Empty             |")
	}

	for i := 0; i < rows; i++ {
		bidCol := ""
		if i < len(snap.Bids) {
			lvl := snap.Bids[i]
			bidCol = fmt.Sprintf("%6d  %10s", lvl.Volume, lvl.Price.StringFixed(2))
		}
		askCol := ""
		if i < len(snap.Asks) {
			lvl := snap.Asks[i]
			askCol = fmt.Sprintf("%10s  %-6d", lvl.Price.StringFixed(2), lvl.Volume)
		}
		fmt.Fprintf(w, "| %-18s | %-18s |\n", bidCol, askCol)
	}

	fmt.Fprintln(w, rule)
	printStats(w, snap)
	fmt.Fprintln(w)
}

func printStats(w io.Writer, snap book.Snapshot) {
	fmt.Fprintf(w, "| Best Bid  : %-27s |\n", nullStr(snap.BestBid))
	fmt.Fprintf(w, "| Best Ask  : %-27s |\n", nullStr(snap.BestAsk))
	fmt.Fprintf(w, "| Spread    : %-27s |\n", nullStr(snap.Spread))
	fmt.Fprintf(w, "| Mid Price : %-27s |\n", nullStr(snap.MidPrice))
	fmt.Fprintf(w, "| Orders    : %-27d |\n", snap.RestingOrders)
	fmt.Fprintln(w, "+-----------------------------------------+")
}

// PrintTrades lists the executed trades with quantity and value totals.
func PrintTrades(w io.Writer, trades []book.Trade) {
	if len(trades) == 0 {
		fmt.Fprintln(w, "No trades executed yet.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "+------------------------------------------+")
	fmt.Fprintf(w, "| %-40s |\n", " TRADE HISTORY")
	fmt.Fprintln(w, "+--------+----------+--------+-------------+")
	fmt.Fprintf(w, "| %-6s | %-8s | %-6s | %-11s |\n", "ID", "Price", "Qty", "Value")
	fmt.Fprintln(w, "+--------+----------+--------+-------------+")

	totalValue := decimal.Zero
	var totalQty int64

	for _, t := range trades {
		fmt.Fprintf(w, "| %-6d | %8s | %6d | %11s |\n",
			t.ID, t.Price.StringFixed(2), t.Qty, t.Value().StringFixed(2))
		totalValue = totalValue.Add(t.Value())
		totalQty += t.Qty
	}

	fmt.Fprintln(w, "+--------+----------+--------+-------------+")
	fmt.Fprintf(w, "| %-6s   %8s   %6d   %11s |\n",
		"TOTAL", "", totalQty, totalValue.StringFixed(2))
	fmt.Fprintln(w, "+------------------------------------------+")
	fmt.Fprintln(w)
}

func nullStr(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.StringFixed(2)
}
