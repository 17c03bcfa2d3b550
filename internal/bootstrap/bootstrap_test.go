package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfDealFlow/config"
	"mfDealFlow/internal/adapters/logger"
	"mfDealFlow/internal/app"
	"mfDealFlow/internal/domain"
)

const bulkCSV = "Date,Symbol,Security Name,Client Name,Buy/Sell,Quantity Traded,Trade Price / Wght. Avg. Price,Remarks\n" +
	"10-JAN-2024,INFY,Infosys Ltd,SBI MUTUAL FUND,BUY,\"1,000\",1500.25,-\n" +
	"10-JAN-2024,TCS,Tata Consultancy,SOME TRADER,SELL,500,3999,-\n"

const blockCSV = "Date,Symbol,Security Name,Client Name,Buy/Sell,Quantity Traded,Trade Price / Wght. Avg. Price,Remarks\n" +
	"10-JAN-2024,HDFCBANK,HDFC Bank,HDFC MUTUAL FUND,SELL,2500,1650.5,-\n"

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bulk.csv", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(bulkCSV)) })
	mux.HandleFunc("/block.csv", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(blockCSV)) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srv *httptest.Server, backend config.StoreBackend) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		SourceMode:      config.SourceModeArchive,
		BulkArchiveURL:  srv.URL + "/bulk.csv",
		BlockArchiveURL: srv.URL + "/block.csv",
		HomeURL:         srv.URL + "/",
		HTTPTimeout:     5 * time.Second,
		StoreBackend:    backend,
		DBPath:          filepath.Join(dir, "deals.db"),
		SnapshotPath:    filepath.Join(dir, "deals.msgpack"),
		LogLevel:        logger.LevelError,
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	for _, backend := range []config.StoreBackend{config.StoreSQLite, config.StoreMsgpack} {
		t.Run(string(backend), func(t *testing.T) {
			srv := newFeedServer(t)
			cfg := testConfig(t, srv, backend)
			p, err := Build(cfg, logger.NewStdLogger(cfg.LogLevel))
			require.NoError(t, err)
			defer p.Close()

			ctx := context.Background()

			report, err := p.Service.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeSuccess, report.Outcome)
			assert.Equal(t, 3, report.Added)
			assert.Equal(t, 1, report.Accumulation)
			assert.Equal(t, 1, report.Exit)

			again, err := p.Service.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeNoNewData, again.Outcome)

			res, err := p.Service.Query(ctx, app.QueryOptions{ActionableOnly: true})
			require.NoError(t, err)
			require.Len(t, res.Deals, 2)

			mark, err := p.Store.HighWaterMark(ctx)
			require.NoError(t, err)
			assert.Equal(t, "2024-01-10", mark.Format(domain.DateLayout))
		})
	}
}

func TestNewSources(t *testing.T) {
	srv := newFeedServer(t)
	cfg := testConfig(t, srv, config.StoreMsgpack)
	p, err := Build(cfg, logger.NewStdLogger(logger.LevelError))
	require.NoError(t, err)
	defer p.Close()

	cases := map[config.SourceMode][]string{
		config.SourceModeArchive: {"bulk-archive", "block-archive"},
		config.SourceModeAPI:     {"bulk-api", "block-api"},
		config.SourceModeBoth:    {"bulk-archive", "block-archive", "bulk-api", "block-api"},
	}
	for mode, want := range cases {
		cfg.SourceMode = mode
		var names []string
		for _, s := range NewSources(cfg, p.Client) {
			names = append(names, s.Name())
		}
		assert.Equal(t, want, names, string(mode))
	}
}

func TestBuild_BadKeywordsFile(t *testing.T) {
	srv := newFeedServer(t)
	cfg := testConfig(t, srv, config.StoreMsgpack)
	cfg.KeywordsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(cfg, logger.NewStdLogger(logger.LevelError))
	require.Error(t, err)
}
