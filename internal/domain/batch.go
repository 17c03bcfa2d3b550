package domain

// RawRow is one undecoded source row keyed by the source's own column names.
type RawRow map[string]string

// RawBatch is everything one source returned in a fetch cycle.
type RawBatch struct {
	Source   string   // Logical source name, e.g. "bulk-archive"
	DealType DealType // Tag applied to every row of the batch
	Shape    Shape    // Counterparty layout of the source
	Columns  []string // Column names in source order
	Rows     []RawRow
}

// SourceStatus describes the outcome of one source in a fetch cycle.
type SourceStatus struct {
	Name     string
	DealType DealType
	Rows     int
	Err      error // Non-nil when the source was skipped
}

// Available reports whether the source produced a usable response.
func (s SourceStatus) Available() bool {
	return s.Err == nil
}

// FetchResult aggregates the batches of all sources that answered.
type FetchResult struct {
	Batches  []*RawBatch
	Statuses []SourceStatus
}

// AllFailed reports whether no source produced a usable response.
func (f *FetchResult) AllFailed() bool {
	for _, s := range f.Statuses {
		if s.Available() {
			return false
		}
	}
	return true
}

// RowCount returns the total number of raw rows across batches.
func (f *FetchResult) RowCount() int {
	n := 0
	for _, b := range f.Batches {
		n += len(b.Rows)
	}
	return n
}
