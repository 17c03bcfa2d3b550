// Package merge folds freshly fetched deals into the historical table.
//
// Everything here is pure: no I/O, no clock, no hidden state. Persistence is
// the caller's last step and only happens when Result.NoOp is false.
package merge

import (
	"sort"
	"time"

	"mfDealFlow/internal/domain"
)

// Result is the outcome of one merge.
type Result struct {
	Deals         []*domain.Deal // Full table after the merge
	Added         []*domain.Deal // Incoming rows that were appended
	PreviousMark  time.Time      // Max trade date before the merge (zero on first run)
	HighWaterMark time.Time      // Max trade date after the merge
	Filtered      int            // Incoming rows rejected by the high-water-mark
	Duplicates    int            // Rows removed by full-row dedup
	NoOp          bool           // Nothing to append; existing table must not be rewritten
}

// Merge appends incoming deals newer than the existing high-water-mark.
//
// When hasExisting is false the whole incoming batch becomes the table. When
// true, only rows with a trade date strictly after max(existing) are kept, so
// re-running on already merged data is a no-op. Full-row duplicates are
// removed after concatenation, keeping the first occurrence.
func Merge(existing []*domain.Deal, hasExisting bool, incoming []*domain.Deal) Result {
	var res Result

	candidates := incoming
	if hasExisting {
		res.PreviousMark = MaxTradeDate(existing)
		candidates = make([]*domain.Deal, 0, len(incoming))
		for _, d := range incoming {
			if d.TradeDate.After(res.PreviousMark) {
				candidates = append(candidates, d)
			}
		}
		res.Filtered = len(incoming) - len(candidates)
	}

	if len(candidates) == 0 {
		res.NoOp = true
		res.Deals = existing
		res.HighWaterMark = res.PreviousMark
		return res
	}

	combined := make([]*domain.Deal, 0, len(existing)+len(candidates))
	combined = append(combined, existing...)
	combined = append(combined, candidates...)

	seen := make(map[string]struct{}, len(combined))
	res.Deals = make([]*domain.Deal, 0, len(combined))
	for i, d := range combined {
		k := d.Key()
		if _, dup := seen[k]; dup {
			res.Duplicates++
			continue
		}
		seen[k] = struct{}{}
		res.Deals = append(res.Deals, d)
		if i >= len(existing) {
			res.Added = append(res.Added, d)
		}
	}

	if len(res.Added) == 0 {
		// every candidate duplicated an existing row
		res.NoOp = true
		res.Deals = existing
		res.HighWaterMark = res.PreviousMark
		return res
	}
	res.HighWaterMark = MaxTradeDate(res.Deals)
	return res
}

// MaxTradeDate returns the latest trade date, or the zero time for no deals.
func MaxTradeDate(deals []*domain.Deal) time.Time {
	var max time.Time
	for _, d := range deals {
		if d.TradeDate.After(max) {
			max = d.TradeDate
		}
	}
	return max
}

// Bounds returns the earliest and latest trade dates present.
func Bounds(deals []*domain.Deal) domain.DateRange {
	if len(deals) == 0 {
		return domain.DateRange{}
	}
	r := domain.DateRange{Start: deals[0].TradeDate, End: deals[0].TradeDate}
	for _, d := range deals[1:] {
		if d.TradeDate.Before(r.Start) {
			r.Start = d.TradeDate
		}
		if d.TradeDate.After(r.End) {
			r.End = d.TradeDate
		}
	}
	return r
}

// FilterByDateRange returns the deals whose trade date lies in the inclusive
// range. Input order is preserved; the input slice is not modified.
func FilterByDateRange(deals []*domain.Deal, r domain.DateRange) []*domain.Deal {
	out := make([]*domain.Deal, 0, len(deals))
	for _, d := range deals {
		if r.Contains(d.TradeDate) {
			out = append(out, d)
		}
	}
	return out
}

// SortByDateDesc orders deals newest first, then by symbol, in place.
func SortByDateDesc(deals []*domain.Deal) {
	sort.SliceStable(deals, func(i, j int) bool {
		if !deals[i].TradeDate.Equal(deals[j].TradeDate) {
			return deals[i].TradeDate.After(deals[j].TradeDate)
		}
		return deals[i].Symbol < deals[j].Symbol
	})
}
