// Package loader ingests sample order flow from CSV. Rows become plain
// submission requests; ids are minted by the engine at submission time,
// never read from the file.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"lob/domain/book"
)

// Request is one parsed order row, not yet bound to an engine id.
type Request struct {
	Side  book.Side
	Type  book.OrderType
	Price decimal.Decimal
	Qty   int64
}

// ReadFile loads requests from a CSV file at path.
func ReadFile(path string) ([]Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses rows of the form `side,type,price,qty`. A header row is
// recognized and skipped. Malformed rows fail with their row number;
// nothing is silently dropped.
func Read(r io.Reader) ([]Request, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var reqs []Request
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		row++

		if row == 1 && strings.EqualFold(rec[0], "side") {
			continue
		}

		req, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func parseRow(rec []string) (Request, error) {
	var req Request

	switch strings.ToLower(strings.TrimSpace(rec[0])) {
	case "bid", "buy":
		req.Side = book.Bid
	case "ask", "sell":
		req.Side = book.Ask
	default:
		return req, fmt.Errorf("unknown side %q", rec[0])
	}

	switch strings.ToLower(strings.TrimSpace(rec[1])) {
	case "limit":
		req.Type = book.Limit
	case "market":
		req.Type = book.Market
	default:
		return req, fmt.Errorf("unknown type %q", rec[1])
	}

	if req.Type == book.Limit {
		price, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil {
			return req, fmt.Errorf("bad price %q: %w", rec[2], err)
		}
		req.Price = price
	}

	qty, err := strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 64)
	if err != nil {
		return req, fmt.Errorf("bad quantity %q: %w", rec[3], err)
	}
	req.Qty = qty

	return req, nil
}
