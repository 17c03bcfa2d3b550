package utils

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"mfDealFlow/internal/domain"
)

var dealColumns = []string{
	"trade_date", "symbol", "security_name", "deal_type", "client_name", "side",
	"buyer_name", "seller_name", "quantity", "price", "remarks", "signal",
}

// WriteDealsToCSV exports classified deals to filename.
func WriteDealsToCSV(deals []*domain.Deal, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteDeals(file, deals); err != nil {
		return err
	}
	return file.Close()
}

// WriteDeals writes a header row and one row per deal to w.
func WriteDeals(w io.Writer, deals []*domain.Deal) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(dealColumns); err != nil {
		return err
	}
	for _, d := range deals {
		err := writer.Write([]string{
			d.TradeDate.Format(domain.DateLayout),
			d.Symbol,
			d.SecurityName,
			string(d.DealType),
			d.ClientName,
			string(d.Side),
			d.BuyerName,
			d.SellerName,
			strconv.FormatInt(d.Quantity, 10),
			d.Price.String(),
			d.Remarks,
			string(d.Signal),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
