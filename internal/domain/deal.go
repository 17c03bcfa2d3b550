package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical textual form of a trade date.
const DateLayout = "2006-01-02"

// Deal represents one disclosed bulk or block transaction.
type Deal struct {
	TradeDate    time.Time       // Disclosure date, UTC midnight
	Symbol       string          // Instrument ticker
	SecurityName string          // Full instrument name (optional)
	DealType     DealType        // BULK or BLOCK
	Shape        Shape           // SINGLE (client + side) or DUAL (buyer vs seller)
	ClientName   string          // SINGLE shape counterparty
	Side         Side            // SINGLE shape direction
	BuyerName    string          // DUAL shape buyer
	SellerName   string          // DUAL shape seller
	Quantity     int64           // Shares traded
	Price        decimal.Decimal // Trade price / weighted average price
	Remarks      string          // Free-text remarks column (archive feeds)

	Signal Signal // Derived at read time, never persisted
}

// Key returns the full-row identity of the persisted fields. Two deals with the
// same key are duplicates.
func (d *Deal) Key() string {
	var sb strings.Builder
	sb.WriteString(d.TradeDate.Format(DateLayout))
	for _, part := range []string{
		d.Symbol,
		d.SecurityName,
		string(d.DealType),
		string(d.Shape),
		d.ClientName,
		string(d.Side),
		d.BuyerName,
		d.SellerName,
		strconv.FormatInt(d.Quantity, 10),
		d.Price.String(),
		d.Remarks,
	} {
		sb.WriteByte('|')
		sb.WriteString(part)
	}
	return sb.String()
}

// Counterparty returns the name that drives classification for display purposes:
// the client for SINGLE shape, the buyer for DUAL shape.
func (d *Deal) Counterparty() string {
	if d.Shape == ShapeDual {
		return d.BuyerName
	}
	return d.ClientName
}

// DateRange is an inclusive [Start, End] trade date window. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// TruncateDay returns t as a UTC midnight date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
