package normalize

import "strings"

// Field declares one canonical field and the source column names that carry it.
type Field struct {
	Name    string
	Aliases []string
}

// Schema is the declared set of canonical fields.
type Schema struct {
	Date         Field
	Symbol       Field
	SecurityName Field
	Client       Field
	Side         Field
	Buyer        Field
	Seller       Field
	Quantity     Field
	Price        Field
	Remarks      Field
}

// DefaultSchema covers the NSE archive CSV headers and the JSON API keys.
func DefaultSchema() Schema {
	return Schema{
		Date:         Field{Name: "Trade Date", Aliases: []string{"Trade Date", "Date", "tradeDate", "BD_DT_DATE", "date"}},
		Symbol:       Field{Name: "Symbol", Aliases: []string{"Symbol", "symbol", "BD_SYMBOL"}},
		SecurityName: Field{Name: "Security Name", Aliases: []string{"Security Name", "securityName", "secName", "name", "BD_SCRIP_NAME"}},
		Client:       Field{Name: "Client Name", Aliases: []string{"Client Name", "clientName", "BD_CLIENT_NAME"}},
		Side:         Field{Name: "Buy/Sell", Aliases: []string{"Buy/Sell", "buySell", "BD_BUY_SELL"}},
		Buyer:        Field{Name: "Buyer", Aliases: []string{"clientName", "buyerName", "Buyer", "buyClientName"}},
		Seller:       Field{Name: "Seller", Aliases: []string{"sellClientName", "sellerName", "Seller"}},
		Quantity:     Field{Name: "Quantity Traded", Aliases: []string{"Quantity Traded", "quantity", "quantityTraded", "qty", "BD_QTY_TRD"}},
		Price:        Field{Name: "Trade Price / Wght. Avg. Price", Aliases: []string{"Trade Price / Wght. Avg. Price", "price", "tradePrice", "watp", "BD_TP_WATP"}},
		Remarks:      Field{Name: "Remarks", Aliases: []string{"Remarks", "remarks", "BD_REMARKS"}},
	}
}

// dateTokens are the loose names accepted for a date column when no declared
// alias is present.
var dateTokens = map[string]bool{"date": true, "tradedate": true, "dt": true}

// columnKey folds case and removes spaces.
func columnKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// resolve finds the source column carrying f. Verbatim alias matches are
// preferred over folded ones; within each pass the first match wins.
func resolve(columns []string, f Field, loose map[string]bool) (string, bool) {
	for _, alias := range append([]string{f.Name}, f.Aliases...) {
		for _, c := range columns {
			if c == alias {
				return c, true
			}
		}
	}
	for _, c := range columns {
		ck := columnKey(c)
		for _, alias := range append([]string{f.Name}, f.Aliases...) {
			if ck == columnKey(alias) {
				return c, true
			}
		}
	}
	if loose != nil {
		for _, c := range columns {
			if loose[columnKey(c)] {
				return c, true
			}
		}
	}
	return "", false
}
