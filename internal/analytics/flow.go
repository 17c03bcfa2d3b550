package analytics

import (
	"sort"
	"time"

	"mfDealFlow/internal/domain"
)

// DailyFlow is the net institutional quantity for one trade date.
type DailyFlow struct {
	Date         time.Time
	Accumulated  int64
	Exited       int64
	Net          int64
	Accumulation int
	Exit         int
}

// AnalyzeFlow builds the stock-wise summary from classified deals.
// Deals must already carry their Signal; IGNORE rows only count towards Total.
func AnalyzeFlow(deals []*domain.Deal) *domain.FlowSummary {
	summary := &domain.FlowSummary{
		Total:    len(deals),
		BySymbol: make([]domain.SymbolFlow, 0),
	}

	type key struct {
		symbol string
		signal domain.Signal
	}
	index := make(map[key]int)

	for _, d := range deals {
		switch d.Signal {
		case domain.SignalAccumulation:
			summary.Accumulation++
		case domain.SignalExit:
			summary.Exit++
		default:
			continue
		}

		k := key{symbol: d.Symbol, signal: d.Signal}
		i, ok := index[k]
		if !ok {
			i = len(summary.BySymbol)
			index[k] = i
			summary.BySymbol = append(summary.BySymbol, domain.SymbolFlow{Symbol: d.Symbol, Signal: d.Signal})
		}
		summary.BySymbol[i].Quantity += d.Quantity
		summary.BySymbol[i].Trades++
	}

	// Largest quantity first; ties by symbol then signal so output is stable.
	sort.Slice(summary.BySymbol, func(i, j int) bool {
		a, b := summary.BySymbol[i], summary.BySymbol[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Signal < b.Signal
	})

	return summary
}

// GetDailyFlow returns accumulated and exited quantity per trade date,
// oldest first.
func GetDailyFlow(deals []*domain.Deal) []DailyFlow {
	byDay := make(map[time.Time]*DailyFlow)
	for _, d := range deals {
		if !d.Signal.IsActionable() {
			continue
		}
		day := domain.TruncateDay(d.TradeDate)
		f, ok := byDay[day]
		if !ok {
			f = &DailyFlow{Date: day}
			byDay[day] = f
		}
		if d.Signal == domain.SignalAccumulation {
			f.Accumulated += d.Quantity
			f.Accumulation++
		} else {
			f.Exited += d.Quantity
			f.Exit++
		}
		f.Net = f.Accumulated - f.Exited
	}

	out := make([]DailyFlow, 0, len(byDay))
	for _, f := range byDay {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
