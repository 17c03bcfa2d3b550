package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// dateLayouts are tried in order when parsing a trade date.
var dateLayouts = []string{
	"02-Jan-2006",
	"2-Jan-2006",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02-Jan-06",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102",
}

// Stats counts what normalization kept and dropped.
type Stats struct {
	Input            int
	Output           int
	DroppedDates     int // Unparseable or blank trade date
	DroppedMalformed int // Blank symbol or non-numeric quantity/price
}

// Dropped returns the number of rows removed.
func (s Stats) Dropped() int {
	return s.DroppedDates + s.DroppedMalformed
}

// Normalizer maps raw source rows onto domain.Deal.
type Normalizer struct {
	schema Schema
}

// New creates a Normalizer for the given schema.
func New(schema Schema) *Normalizer {
	return &Normalizer{schema: schema}
}

type columns struct {
	date, symbol, security, client, side, buyer, seller, quantity, price, remarks string
}

// Normalize converts every batch. A batch whose required columns cannot be
// located fails the whole call with ports.ErrSchemaUnresolvable.
func (n *Normalizer) Normalize(batches []*domain.RawBatch) ([]*domain.Deal, Stats, error) {
	var (
		out   []*domain.Deal
		stats Stats
	)
	for _, b := range batches {
		if b == nil || len(b.Rows) == 0 {
			continue
		}
		cols, err := n.resolveColumns(b)
		if err != nil {
			return nil, stats, err
		}
		for _, row := range b.Rows {
			stats.Input++
			d, reason := n.convert(b, cols, row)
			switch reason {
			case dropDate:
				stats.DroppedDates++
			case dropMalformed:
				stats.DroppedMalformed++
			default:
				out = append(out, d)
			}
		}
	}
	stats.Output = len(out)
	return out, stats, nil
}

func (n *Normalizer) resolveColumns(b *domain.RawBatch) (columns, error) {
	names := b.Columns
	if len(names) == 0 {
		names = columnsOf(b.Rows)
	}

	var c columns
	var missing []string
	need := func(f Field, loose map[string]bool) string {
		col, ok := resolve(names, f, loose)
		if !ok {
			missing = append(missing, f.Name)
		}
		return col
	}
	opt := func(f Field) string {
		col, _ := resolve(names, f, nil)
		return col
	}

	c.date = need(n.schema.Date, dateTokens)
	c.symbol = need(n.schema.Symbol, nil)
	switch b.Shape {
	case domain.ShapeSingle:
		c.client = need(n.schema.Client, nil)
		c.side = need(n.schema.Side, nil)
	case domain.ShapeDual:
		c.buyer = need(n.schema.Buyer, nil)
		c.seller = need(n.schema.Seller, nil)
	default:
		return c, fmt.Errorf("source %s has unknown shape %q: %w", b.Source, b.Shape, ports.ErrSchemaUnresolvable)
	}
	c.security = opt(n.schema.SecurityName)
	c.quantity = opt(n.schema.Quantity)
	c.price = opt(n.schema.Price)
	c.remarks = opt(n.schema.Remarks)

	if len(missing) > 0 {
		return c, fmt.Errorf("source %s is missing columns [%s]: %w", b.Source, strings.Join(missing, ", "), ports.ErrSchemaUnresolvable)
	}
	return c, nil
}

type dropReason int

const (
	keep dropReason = iota
	dropDate
	dropMalformed
)

func (n *Normalizer) convert(b *domain.RawBatch, c columns, row domain.RawRow) (*domain.Deal, dropReason) {
	tradeDate, ok := ParseDate(row[c.date])
	if !ok {
		return nil, dropDate
	}

	symbol := strings.ToUpper(strings.TrimSpace(row[c.symbol]))
	if symbol == "" {
		return nil, dropMalformed
	}

	qty, ok := parseQuantity(field(row, c.quantity))
	if !ok {
		return nil, dropMalformed
	}
	price, ok := parsePrice(field(row, c.price))
	if !ok {
		return nil, dropMalformed
	}

	d := &domain.Deal{
		TradeDate:    tradeDate,
		Symbol:       symbol,
		SecurityName: strings.TrimSpace(field(row, c.security)),
		DealType:     b.DealType,
		Shape:        b.Shape,
		Quantity:     qty,
		Price:        price,
		Remarks:      strings.TrimSpace(field(row, c.remarks)),
	}
	if b.Shape == domain.ShapeSingle {
		d.ClientName = domain.NormalizeName(row[c.client])
		d.Side = domain.ParseSide(row[c.side])
	} else {
		d.BuyerName = domain.NormalizeName(row[c.buyer])
		d.SellerName = domain.NormalizeName(row[c.seller])
	}
	return d, keep
}

// ParseDate parses a trade date leniently. It never substitutes a default.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.TruncateDay(t), true
		}
	}
	return time.Time{}, false
}

func parseQuantity(s string) (int64, bool) {
	s = cleanNumber(s)
	if s == "" {
		return 0, true
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return d.IntPart(), true
}

func parsePrice(s string) (decimal.Decimal, bool) {
	s = cleanNumber(s)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "-" {
		return ""
	}
	return strings.NewReplacer(",", "", " ", "").Replace(s)
}

func field(row domain.RawRow, col string) string {
	if col == "" {
		return ""
	}
	return row[col]
}

// columnsOf collects column names when a source did not declare a header.
// Map iteration has no order, so names are sorted.
func columnsOf(rows []domain.RawRow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
