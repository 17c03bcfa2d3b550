package domain

import "time"

// Outcome is the status a consumer branches on after a run or query.
type Outcome string

const (
	OutcomeSuccess           Outcome = "SUCCESS"
	OutcomeNoNewData         Outcome = "NO_NEW_DATA"
	OutcomeSourceUnavailable Outcome = "SOURCE_UNAVAILABLE"
	OutcomeNoData            Outcome = "NO_DATA"
)

// RunReport summarises one ingestion run.
type RunReport struct {
	RunID         string
	StartedAt     time.Time
	Outcome       Outcome
	Sources       []SourceStatus
	Fetched       int       // Raw rows returned by all sources
	Dropped       int       // Rows removed by normalization
	Added         int       // Rows appended to the store
	Total         int       // Rows in the store after the run
	HighWaterMark time.Time // Max trade date in the store after the run
	Accumulation  int       // Accumulation signals among added rows
	Exit          int       // Exit signals among added rows
}

// QueryResult is a classified, filtered view over the store.
type QueryResult struct {
	Outcome Outcome
	Range   DateRange // Effective range after defaulting open bounds
	Deals   []*Deal
}

// SymbolFlow is the stock-wise aggregate of actionable deals.
type SymbolFlow struct {
	Symbol   string
	Signal   Signal
	Quantity int64
	Trades   int
}

// FlowSummary is the aggregate view consumers display above the detail table.
type FlowSummary struct {
	Outcome      Outcome
	Range        DateRange
	Accumulation int
	Exit         int
	Total        int
	BySymbol     []SymbolFlow
}
