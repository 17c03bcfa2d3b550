package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

var archiveColumns = []string{"Date", "Symbol", "Security Name", "Client Name", "Buy/Sell", "Quantity Traded", "Trade Price / Wght. Avg. Price", "Remarks"}

func archiveRow(date, symbol, client, side, qty, price string) domain.RawRow {
	return domain.RawRow{
		"Date":                           date,
		"Symbol":                         symbol,
		"Security Name":                  "Some Security Ltd",
		"Client Name":                    client,
		"Buy/Sell":                       side,
		"Quantity Traded":                qty,
		"Trade Price / Wght. Avg. Price": price,
		"Remarks":                        "-",
	}
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestNormalize_ArchiveBatch(t *testing.T) {
	n := New(DefaultSchema())
	batch := &domain.RawBatch{
		Source:   "bulk-archive",
		DealType: domain.DealTypeBulk,
		Shape:    domain.ShapeSingle,
		Columns:  archiveColumns,
		Rows: []domain.RawRow{
			archiveRow("16-Oct-2026", "abc", " sbi  mutual fund ", "buy", "1,20,000", "1,234.50"),
			archiveRow("not a date", "ABC", "SBI MUTUAL FUND", "BUY", "100", "10"),
			archiveRow("", "ABC", "SBI MUTUAL FUND", "BUY", "100", "10"),
			archiveRow("16-OCT-2026", "XYZ", "RANDOM LTD", "SELL", "ten", "10"),
			archiveRow("16-Oct-2026", "  ", "RANDOM LTD", "SELL", "10", "10"),
		},
	}

	deals, stats, err := n.Normalize([]*domain.RawBatch{batch})
	require.NoError(t, err)
	require.Len(t, deals, 1)

	d := deals[0]
	assert.Equal(t, day("2026-10-16"), d.TradeDate)
	assert.Equal(t, "ABC", d.Symbol)
	assert.Equal(t, "Some Security Ltd", d.SecurityName)
	assert.Equal(t, "SBI MUTUAL FUND", d.ClientName)
	assert.Equal(t, domain.SideBuy, d.Side)
	assert.Equal(t, int64(120000), d.Quantity)
	assert.Equal(t, "1234.5", d.Price.String())
	assert.Equal(t, domain.DealTypeBulk, d.DealType)
	assert.Equal(t, domain.ShapeSingle, d.Shape)

	assert.Equal(t, Stats{Input: 5, Output: 1, DroppedDates: 2, DroppedMalformed: 2}, stats)
	assert.Equal(t, 4, stats.Dropped())
}

func TestNormalize_APIBatchWithoutHeader(t *testing.T) {
	n := New(DefaultSchema())
	batch := &domain.RawBatch{
		Source:   "block-api",
		DealType: domain.DealTypeBlock,
		Shape:    domain.ShapeDual,
		Rows: []domain.RawRow{{
			"tradeDate":      "2024-01-11",
			"symbol":         "INFY",
			"clientName":     "hdfc mutual fund",
			"sellClientName": "Promoter Holdings",
			"quantity":       "500000.0",
			"price":          "1500.25",
		}},
	}

	deals, _, err := n.Normalize([]*domain.RawBatch{batch})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "HDFC MUTUAL FUND", deals[0].BuyerName)
	assert.Equal(t, "PROMOTER HOLDINGS", deals[0].SellerName)
	assert.Equal(t, int64(500000), deals[0].Quantity)
	assert.Equal(t, domain.SideUnknown, deals[0].Side)
	assert.Equal(t, day("2024-01-11"), deals[0].TradeDate)
}

func TestNormalize_DateColumnDetection(t *testing.T) {
	n := New(DefaultSchema())
	batch := &domain.RawBatch{
		Source:   "bulk-archive",
		DealType: domain.DealTypeBulk,
		Shape:    domain.ShapeSingle,
		Columns:  []string{"DT", "SYMBOL ", "client name", "BUY / SELL"},
		Rows: []domain.RawRow{{
			"DT":          "02/01/2024",
			"SYMBOL ":     "TCS",
			"client name": "UTI MF",
			"BUY / SELL":  "S",
		}},
	}

	deals, _, err := n.Normalize([]*domain.RawBatch{batch})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, day("2024-01-02"), deals[0].TradeDate)
	assert.Equal(t, domain.SideSell, deals[0].Side)
	assert.Equal(t, int64(0), deals[0].Quantity, "absent quantity column stays zero")
}

func TestNormalize_SchemaUnresolvable(t *testing.T) {
	n := New(DefaultSchema())
	tests := []struct {
		name  string
		batch *domain.RawBatch
	}{
		{
			name: "no date column",
			batch: &domain.RawBatch{Source: "s", Shape: domain.ShapeSingle,
				Columns: []string{"Symbol", "Client Name", "Buy/Sell"},
				Rows:    []domain.RawRow{{"Symbol": "A"}}},
		},
		{
			name: "single shape without side",
			batch: &domain.RawBatch{Source: "s", Shape: domain.ShapeSingle,
				Columns: []string{"Date", "Symbol", "Client Name"},
				Rows:    []domain.RawRow{{"Symbol": "A"}}},
		},
		{
			name: "dual shape without seller",
			batch: &domain.RawBatch{Source: "s", Shape: domain.ShapeDual,
				Columns: []string{"tradeDate", "symbol", "clientName"},
				Rows:    []domain.RawRow{{"symbol": "A"}}},
		},
		{
			name: "unknown shape",
			batch: &domain.RawBatch{Source: "s",
				Columns: []string{"Date", "Symbol"},
				Rows:    []domain.RawRow{{"Symbol": "A"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := n.Normalize([]*domain.RawBatch{tt.batch})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ports.ErrSchemaUnresolvable))
		})
	}
}

func TestNormalize_EmptyBatchesSkipped(t *testing.T) {
	n := New(DefaultSchema())
	deals, stats, err := n.Normalize([]*domain.RawBatch{nil, {Source: "empty", Shape: domain.ShapeDual}})
	require.NoError(t, err)
	assert.Empty(t, deals)
	assert.Equal(t, Stats{}, stats)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"16-Oct-2026", "2026-10-16", true},
		{"1-Jan-2024", "2024-01-01", true},
		{"2024-01-05", "2024-01-05", true},
		{"05-01-2024", "2024-01-05", true},
		{"2024-01-05T10:15:00+05:30", "2024-01-05", true},
		{" 5 Jan 2024 ", "2024-01-05", true},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, day(tt.want), got)
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}
