package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mfDealFlow/internal/analytics"
	"mfDealFlow/internal/classify"
	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/merge"
	"mfDealFlow/internal/normalize"
	"mfDealFlow/internal/ports"
)

// QueryOptions selects the rows returned by Query and Summary.
type QueryOptions struct {
	Range          domain.DateRange // Zero bounds default to the data's own bounds
	ActionableOnly bool             // Drop IGNORE rows
	Symbol         string           // Optional exact symbol match
}

// PipelineService orchestrates ingestion and the classified read view.
// Run is not safe for concurrent use; callers serialize it.
type PipelineService struct {
	logger     ports.Logger
	fetcher    ports.DealFetcher
	normalizer *normalize.Normalizer
	classifier *classify.Classifier
	store      ports.DealStore
	now        func() time.Time
}

// NewPipelineService creates a new application service instance.
func NewPipelineService(
	logger ports.Logger,
	fetcher ports.DealFetcher,
	normalizer *normalize.Normalizer,
	classifier *classify.Classifier,
	store ports.DealStore,
) (*PipelineService, error) {
	if logger == nil || fetcher == nil || normalizer == nil || classifier == nil || store == nil {
		return nil, fmt.Errorf("missing required dependencies for PipelineService: %w", ports.ErrConfigurationError)
	}
	return &PipelineService{
		logger:     logger,
		fetcher:    fetcher,
		normalizer: normalizer,
		classifier: classifier,
		store:      store,
		now:        time.Now,
	}, nil
}

// Run performs one ingestion: fetch, normalize, load, merge, save.
//
// Source failures never abort the run; if every source failed the report
// carries OutcomeSourceUnavailable and nothing is written. Schema, load and
// persistence faults return an error and leave the store untouched.
func (s *PipelineService) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now().UTC(),
	}
	logFields := map[string]interface{}{"runID": report.RunID}
	s.logger.Info(ctx, "Ingestion run started", logFields)

	fetched := s.fetcher.Fetch(ctx)
	report.Sources = fetched.Statuses
	report.Fetched = fetched.RowCount()

	if fetched.AllFailed() {
		report.Outcome = domain.OutcomeSourceUnavailable
		s.fillStoreState(ctx, report)
		s.logger.Warn(ctx, "No source produced a usable response", map[string]interface{}{
			"runID": report.RunID, "sources": len(fetched.Statuses),
		})
		return report, nil
	}

	incoming, stats, err := s.normalizer.Normalize(fetched.Batches)
	if err != nil {
		s.logger.Error(ctx, err, "Normalization failed", logFields)
		return report, fmt.Errorf("run %s: %w", report.RunID, err)
	}
	report.Dropped = stats.Dropped()
	if stats.Dropped() > 0 {
		s.logger.Warn(ctx, "Rows dropped during normalization", map[string]interface{}{
			"runID": report.RunID, "badDates": stats.DroppedDates, "malformed": stats.DroppedMalformed,
		})
	}

	existing, hasExisting, err := s.load(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load store", logFields)
		return report, fmt.Errorf("run %s: %w", report.RunID, err)
	}

	result := merge.Merge(existing, hasExisting, incoming)
	report.Total = len(result.Deals)
	report.HighWaterMark = result.HighWaterMark

	if result.NoOp {
		report.Outcome = domain.OutcomeNoNewData
		s.logger.Info(ctx, "No new data after high-water-mark", map[string]interface{}{
			"runID": report.RunID, "incoming": len(incoming), "filtered": result.Filtered,
			"highWaterMark": formatMark(result.PreviousMark),
		})
		return report, nil
	}

	if err := s.store.Save(ctx, result.Deals); err != nil {
		s.logger.Error(ctx, err, "Failed to persist store", logFields)
		if !errors.Is(err, ports.ErrPersistenceFailure) {
			err = fmt.Errorf("%w: %w", ports.ErrPersistenceFailure, err)
		}
		return report, fmt.Errorf("run %s: %w", report.RunID, err)
	}

	report.Added = len(result.Added)
	for _, sig := range s.classifier.ClassifyAll(result.Added) {
		switch sig {
		case domain.SignalAccumulation:
			report.Accumulation++
		case domain.SignalExit:
			report.Exit++
		}
	}
	report.Outcome = domain.OutcomeSuccess

	s.logger.Info(ctx, "Ingestion run completed", map[string]interface{}{
		"runID":         report.RunID,
		"added":         report.Added,
		"total":         report.Total,
		"duplicates":    result.Duplicates,
		"highWaterMark": formatMark(report.HighWaterMark),
		"accumulation":  report.Accumulation,
		"exit":          report.Exit,
	})
	return report, nil
}

// Query returns classified deals in the requested range, newest first.
// ErrStoreNotFound is returned as-is so callers can tell "never ran" from
// "no rows match".
func (s *PipelineService) Query(ctx context.Context, opts QueryOptions) (*domain.QueryResult, error) {
	if !opts.Range.Start.IsZero() && !opts.Range.End.IsZero() && opts.Range.Start.After(opts.Range.End) {
		return nil, fmt.Errorf("start %s is after end %s: %w",
			opts.Range.Start.Format(domain.DateLayout), opts.Range.End.Format(domain.DateLayout), ports.ErrInvalidRequest)
	}

	all, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	effective := merge.Bounds(all)
	if !opts.Range.Start.IsZero() {
		effective.Start = domain.TruncateDay(opts.Range.Start)
	}
	if !opts.Range.End.IsZero() {
		effective.End = domain.TruncateDay(opts.Range.End)
	}

	selected := merge.FilterByDateRange(all, effective)
	if opts.Symbol != "" {
		symbol := domain.NormalizeName(opts.Symbol)
		bySymbol := selected[:0:0]
		for _, d := range selected {
			if domain.NormalizeName(d.Symbol) == symbol {
				bySymbol = append(bySymbol, d)
			}
		}
		selected = bySymbol
	}

	classified := s.classifier.Annotate(selected)
	if opts.ActionableOnly {
		actionable := classified[:0]
		for _, d := range classified {
			if d.Signal.IsActionable() {
				actionable = append(actionable, d)
			}
		}
		classified = actionable
	}
	merge.SortByDateDesc(classified)

	result := &domain.QueryResult{Outcome: domain.OutcomeSuccess, Range: effective, Deals: classified}
	if len(classified) == 0 {
		result.Outcome = domain.OutcomeNoData
	}
	s.logger.Debug(ctx, "Query served", map[string]interface{}{
		"start": formatMark(effective.Start), "end": formatMark(effective.End),
		"symbol": opts.Symbol, "actionableOnly": opts.ActionableOnly, "rows": len(classified),
	})
	return result, nil
}

// Summary aggregates actionable deals per symbol and signal.
func (s *PipelineService) Summary(ctx context.Context, opts QueryOptions) (*domain.FlowSummary, error) {
	opts.ActionableOnly = true
	q, err := s.Query(ctx, opts)
	if err != nil {
		return nil, err
	}
	summary := analytics.AnalyzeFlow(q.Deals)
	summary.Outcome = q.Outcome
	summary.Range = q.Range
	return summary, nil
}

// HighWaterMark reports the latest trade date in the store.
func (s *PipelineService) HighWaterMark(ctx context.Context) (time.Time, error) {
	return s.store.HighWaterMark(ctx)
}

// load maps a missing store onto "no existing table".
func (s *PipelineService) load(ctx context.Context) ([]*domain.Deal, bool, error) {
	existing, err := s.store.Load(ctx)
	if errors.Is(err, ports.ErrStoreNotFound) {
		s.logger.Info(ctx, "No existing store, first run will create it")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// fillStoreState records the current store size for reports of runs that
// never reached the merge.
func (s *PipelineService) fillStoreState(ctx context.Context, report *domain.RunReport) {
	existing, err := s.store.Load(ctx)
	if err != nil {
		return
	}
	report.Total = len(existing)
	report.HighWaterMark = merge.MaxTradeDate(existing)
}

func formatMark(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format(domain.DateLayout)
}

// SourceSummary renders per-source statuses as "name=rows" or "name=ERR".
func SourceSummary(statuses []domain.SourceStatus) string {
	parts := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if st.Available() {
			parts = append(parts, fmt.Sprintf("%s=%d", st.Name, st.Rows))
		} else {
			parts = append(parts, st.Name+"=ERR")
		}
	}
	return strings.Join(parts, " ")
}

// OutcomeErr maps a run outcome onto the error taxonomy for callers that
// branch with errors.Is. SUCCESS maps to nil.
func OutcomeErr(report *domain.RunReport) error {
	if report == nil {
		return nil
	}
	switch report.Outcome {
	case domain.OutcomeNoNewData:
		return ports.ErrNoNewData
	case domain.OutcomeSourceUnavailable:
		return ports.ErrSourceUnavailable
	default:
		return nil
	}
}
