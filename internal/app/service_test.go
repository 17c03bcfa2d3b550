package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfDealFlow/internal/classify"
	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/normalize"
	"mfDealFlow/internal/ports"
)

// Mock implementations
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockFetcher struct {
	result *domain.FetchResult
}

func (m *mockFetcher) Fetch(ctx context.Context) *domain.FetchResult {
	return m.result
}

type mockStore struct {
	deals   []*domain.Deal
	exists  bool
	loadErr error
	saveErr error
	saves   int
}

func (m *mockStore) Load(ctx context.Context) ([]*domain.Deal, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if !m.exists {
		return nil, ports.ErrStoreNotFound
	}
	return append([]*domain.Deal(nil), m.deals...), nil
}

func (m *mockStore) Save(ctx context.Context, deals []*domain.Deal) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.deals = append([]*domain.Deal(nil), deals...)
	m.exists = true
	return nil
}

func (m *mockStore) HighWaterMark(ctx context.Context) (time.Time, error) {
	if !m.exists {
		return time.Time{}, ports.ErrStoreNotFound
	}
	var max time.Time
	for _, d := range m.deals {
		if d.TradeDate.After(max) {
			max = d.TradeDate
		}
	}
	return max, nil
}

func (m *mockStore) Close() error { return nil }

var archiveColumns = []string{"Date", "Symbol", "Security Name", "Client Name", "Buy/Sell", "Quantity Traded", "Trade Price / Wght. Avg. Price"}

func archiveRow(date, symbol, client, side, qty string) domain.RawRow {
	return domain.RawRow{
		"Date": date, "Symbol": symbol, "Security Name": symbol + " Ltd", "Client Name": client,
		"Buy/Sell": side, "Quantity Traded": qty, "Trade Price / Wght. Avg. Price": "100.5",
	}
}

func fetchOf(rows ...domain.RawRow) *mockFetcher {
	return &mockFetcher{result: &domain.FetchResult{
		Batches: []*domain.RawBatch{{
			Source: "bulk-archive", DealType: domain.DealTypeBulk, Shape: domain.ShapeSingle,
			Columns: archiveColumns, Rows: rows,
		}},
		Statuses: []domain.SourceStatus{{Name: "bulk-archive", DealType: domain.DealTypeBulk, Rows: len(rows)}},
	}}
}

func newTestService(t *testing.T, fetcher ports.DealFetcher, store ports.DealStore) (*PipelineService, *mockLogger) {
	t.Helper()
	ks, err := classify.DefaultKeywordSet()
	require.NoError(t, err)
	c, err := classify.New(ks)
	require.NoError(t, err)
	logger := &mockLogger{}
	svc, err := NewPipelineService(logger, fetcher, normalize.New(normalize.DefaultSchema()), c, store)
	require.NoError(t, err)
	return svc, logger
}

func date(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func TestNewPipelineService(t *testing.T) {
	_, err := NewPipelineService(nil, nil, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}

func TestPipelineService_Run_FirstRun(t *testing.T) {
	store := &mockStore{}
	svc, _ := newTestService(t, fetchOf(
		archiveRow("10-Jan-2024", "INFY", "SBI MUTUAL FUND", "BUY", "1,000"),
		archiveRow("10-Jan-2024", "TCS", "HDFC MUTUAL FUND", "SELL", "500"),
		archiveRow("10-Jan-2024", "ITC", "SOME TRADER", "BUY", "10"),
		archiveRow("not a date", "ITC", "SOME TRADER", "BUY", "10"),
	), store)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, domain.OutcomeSuccess, report.Outcome)
	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 3, report.Added)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Accumulation)
	assert.Equal(t, 1, report.Exit)
	assert.Equal(t, date("2024-01-10"), report.HighWaterMark)
	assert.Equal(t, 1, store.saves)
}

func TestPipelineService_Run_AppendsOnlyNewerDates(t *testing.T) {
	store := &mockStore{exists: true, deals: []*domain.Deal{
		{TradeDate: date("2024-01-10"), Symbol: "INFY", DealType: domain.DealTypeBulk, Shape: domain.ShapeSingle,
			ClientName: "X", Side: domain.SideBuy, Quantity: 1},
	}}
	svc, _ := newTestService(t, fetchOf(
		archiveRow("09-Jan-2024", "OLD", "SBI MUTUAL FUND", "BUY", "1"),
		archiveRow("11-Jan-2024", "NEW", "SBI MUTUAL FUND", "BUY", "1"),
	), store)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, report.Outcome)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, date("2024-01-11"), report.HighWaterMark)
	for _, d := range store.deals {
		assert.NotEqual(t, "OLD", d.Symbol)
	}
}

func TestPipelineService_Run_IsIdempotent(t *testing.T) {
	store := &mockStore{}
	svc, _ := newTestService(t, fetchOf(archiveRow("10-Jan-2024", "INFY", "SBI MUTUAL FUND", "BUY", "1")), store)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, first.Outcome)
	before := append([]*domain.Deal(nil), store.deals...)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNoNewData, second.Outcome)
	assert.Equal(t, 1, store.saves, "no-op run must not write")
	assert.Equal(t, before, store.deals)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestPipelineService_Run_AllSourcesFailed(t *testing.T) {
	store := &mockStore{}
	fetcher := &mockFetcher{result: &domain.FetchResult{
		Statuses: []domain.SourceStatus{
			{Name: "bulk-archive", Err: fmt.Errorf("x: %w", ports.ErrSourceUnavailable)},
			{Name: "block-archive", Err: fmt.Errorf("y: %w", ports.ErrSourceUnavailable)},
		},
	}}
	svc, logger := newTestService(t, fetcher, store)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSourceUnavailable, report.Outcome)
	assert.Equal(t, 0, store.saves)
	assert.Contains(t, logger.warnMsgs, "No source produced a usable response")
	assert.Equal(t, "bulk-archive=ERR block-archive=ERR", SourceSummary(report.Sources))
}

func TestPipelineService_Run_SchemaUnresolvable(t *testing.T) {
	store := &mockStore{}
	fetcher := &mockFetcher{result: &domain.FetchResult{
		Batches: []*domain.RawBatch{{
			Source: "bulk-archive", DealType: domain.DealTypeBulk, Shape: domain.ShapeSingle,
			Columns: []string{"Foo"}, Rows: []domain.RawRow{{"Foo": "bar"}},
		}},
		Statuses: []domain.SourceStatus{{Name: "bulk-archive", Rows: 1}},
	}}
	svc, _ := newTestService(t, fetcher, store)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrSchemaUnresolvable))
	assert.Equal(t, 0, store.saves)
}

func TestPipelineService_Run_LoadAndSaveFailures(t *testing.T) {
	t.Run("corrupt store aborts before save", func(t *testing.T) {
		store := &mockStore{loadErr: fmt.Errorf("bad row: %w", ports.ErrCorruptStore)}
		svc, _ := newTestService(t, fetchOf(archiveRow("10-Jan-2024", "INFY", "A", "BUY", "1")), store)
		_, err := svc.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrCorruptStore))
		assert.Equal(t, 0, store.saves)
	})

	t.Run("save failure is a persistence failure", func(t *testing.T) {
		store := &mockStore{saveErr: errors.New("disk full")}
		svc, logger := newTestService(t, fetchOf(archiveRow("10-Jan-2024", "INFY", "A", "BUY", "1")), store)
		_, err := svc.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrPersistenceFailure))
		assert.Contains(t, logger.errorMsgs, "Failed to persist store")
	})
}

func seededStore() *mockStore {
	mk := func(d, sym, client string, side domain.Side, qty int64) *domain.Deal {
		return &domain.Deal{TradeDate: date(d), Symbol: sym, DealType: domain.DealTypeBulk, Shape: domain.ShapeSingle,
			ClientName: client, Side: side, Quantity: qty}
	}
	return &mockStore{exists: true, deals: []*domain.Deal{
		mk("2023-12-01", "INFY", "SBI MUTUAL FUND", domain.SideBuy, 100),
		mk("2024-01-05", "INFY", "HDFC MUTUAL FUND", domain.SideSell, 40),
		mk("2024-01-10", "TCS", "UTI MUTUAL FUND", domain.SideBuy, 70),
		mk("2024-02-01", "ITC", "RANDOM TRADER", domain.SideBuy, 5),
	}}
}

func TestPipelineService_Query(t *testing.T) {
	svc, _ := newTestService(t, &mockFetcher{}, seededStore())
	ctx := context.Background()

	t.Run("open range defaults to data bounds", func(t *testing.T) {
		res, err := svc.Query(ctx, QueryOptions{})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
		assert.Equal(t, date("2023-12-01"), res.Range.Start)
		assert.Equal(t, date("2024-02-01"), res.Range.End)
		require.Len(t, res.Deals, 4)
		assert.Equal(t, "ITC", res.Deals[0].Symbol, "newest first")
		assert.Equal(t, domain.SignalIgnore, res.Deals[0].Signal)
	})

	t.Run("actionable only within range", func(t *testing.T) {
		res, err := svc.Query(ctx, QueryOptions{
			Range:          domain.DateRange{Start: date("2024-01-01"), End: date("2024-01-31")},
			ActionableOnly: true,
		})
		require.NoError(t, err)
		require.Len(t, res.Deals, 2)
		assert.Equal(t, domain.SignalAccumulation, res.Deals[0].Signal)
		assert.Equal(t, domain.SignalExit, res.Deals[1].Signal)
	})

	t.Run("symbol filter", func(t *testing.T) {
		res, err := svc.Query(ctx, QueryOptions{Symbol: " infy "})
		require.NoError(t, err)
		assert.Len(t, res.Deals, 2)
	})

	t.Run("no rows in range", func(t *testing.T) {
		res, err := svc.Query(ctx, QueryOptions{Range: domain.DateRange{Start: date("2025-01-01")}})
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeNoData, res.Outcome)
		assert.Empty(t, res.Deals)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := svc.Query(ctx, QueryOptions{Range: domain.DateRange{Start: date("2024-02-01"), End: date("2024-01-01")}})
		assert.True(t, errors.Is(err, ports.ErrInvalidRequest))
	})
}

func TestPipelineService_Query_StoreNotFound(t *testing.T) {
	svc, _ := newTestService(t, &mockFetcher{}, &mockStore{})
	_, err := svc.Query(context.Background(), QueryOptions{})
	assert.True(t, errors.Is(err, ports.ErrStoreNotFound))
}

func TestPipelineService_Summary(t *testing.T) {
	svc, _ := newTestService(t, &mockFetcher{}, seededStore())

	s, err := svc.Summary(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, s.Outcome)
	assert.Equal(t, 2, s.Accumulation)
	assert.Equal(t, 1, s.Exit)
	assert.Equal(t, 3, s.Total)
	require.Len(t, s.BySymbol, 3)
	assert.Equal(t, domain.SymbolFlow{Symbol: "INFY", Signal: domain.SignalAccumulation, Quantity: 100, Trades: 1}, s.BySymbol[0])
}

func TestOutcomeErr(t *testing.T) {
	assert.NoError(t, OutcomeErr(&domain.RunReport{Outcome: domain.OutcomeSuccess}))
	assert.NoError(t, OutcomeErr(nil))
	assert.ErrorIs(t, OutcomeErr(&domain.RunReport{Outcome: domain.OutcomeNoNewData}), ports.ErrNoNewData)
	assert.ErrorIs(t, OutcomeErr(&domain.RunReport{Outcome: domain.OutcomeSourceUnavailable}), ports.ErrSourceUnavailable)
}
