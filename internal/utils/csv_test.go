package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfDealFlow/internal/domain"
)

func TestWriteDealsToCSV(t *testing.T) {
	day, _ := time.Parse(domain.DateLayout, "2024-01-10")
	deals := []*domain.Deal{
		{TradeDate: day, Symbol: "INFY", SecurityName: "Infosys, Ltd", DealType: domain.DealTypeBulk,
			ClientName: "SBI MUTUAL FUND", Side: domain.SideBuy, Quantity: 1000,
			Price: decimal.RequireFromString("1500.25"), Signal: domain.SignalAccumulation},
		{TradeDate: day, Symbol: "HDFCBANK", DealType: domain.DealTypeBlock,
			BuyerName: "X LLP", SellerName: "HDFC MUTUAL FUND", Quantity: 5,
			Price: decimal.RequireFromString("1650.5"), Signal: domain.SignalExit},
	}

	path := filepath.Join(t.TempDir(), "deals.csv")
	require.NoError(t, WriteDealsToCSV(deals, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, dealColumns, records[0])
	assert.Equal(t, "Infosys, Ltd", records[1][2], "commas are quoted")
	assert.Equal(t, "1000", records[1][8])
	assert.Equal(t, "1500.25", records[1][9])
	assert.Equal(t, "ACCUMULATION", records[1][11])
	assert.Equal(t, "HDFC MUTUAL FUND", records[2][7])
	assert.Equal(t, "EXIT", records[2][11])
}

func TestWriteDealsToCSV_BadPath(t *testing.T) {
	err := WriteDealsToCSV(nil, filepath.Join(t.TempDir(), "missing", "deals.csv"))
	assert.Error(t, err)
}
