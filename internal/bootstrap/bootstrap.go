// Package bootstrap assembles the pipeline from configuration. It is shared
// by the ingest, serve and report binaries.
package bootstrap

import (
	"context"
	"fmt"

	"mfDealFlow/config"
	"mfDealFlow/internal/adapters/nse"
	"mfDealFlow/internal/adapters/snapshot"
	"mfDealFlow/internal/adapters/sqlite"
	"mfDealFlow/internal/app"
	"mfDealFlow/internal/classify"
	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/fetch"
	"mfDealFlow/internal/normalize"
	"mfDealFlow/internal/ports"
)

// Pipeline holds the wired components.
type Pipeline struct {
	Store   ports.DealStore
	Client  *nse.Client
	Fetcher *fetch.Fetcher
	Service *app.PipelineService
	logger  ports.Logger
}

// Build wires every component. The caller owns the result and must Close it.
func Build(cfg *config.Config, logger ports.Logger) (*Pipeline, error) {
	ctx := context.Background()

	store, err := NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	client, err := nse.NewClient(nse.ClientConfig{
		HomeURL:   cfg.HomeURL,
		UserAgent: cfg.UserAgent,
		Referer:   cfg.Referer,
		Timeout:   cfg.HTTPTimeout,
		Logger:    logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize NSE client: %w", err)
	}

	ks, err := loadKeywords(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	classifier, err := classify.New(ks)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to compile keyword set: %w: %w", ports.ErrConfigurationError, err)
	}
	logger.Info(ctx, "Keyword set loaded", map[string]interface{}{
		"version": ks.Version, "institutions": len(ks.Institutions), "file": cfg.KeywordsFile,
	})

	sources := NewSources(cfg, client)
	fetcher := fetch.New(sources, client, logger)

	svc, err := app.NewPipelineService(logger, fetcher, normalize.New(normalize.DefaultSchema()), classifier, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Pipeline{Store: store, Client: client, Fetcher: fetcher, Service: svc, logger: logger}, nil
}

// NewStore opens the configured persistence backend.
func NewStore(cfg *config.Config, logger ports.Logger) (ports.DealStore, error) {
	switch cfg.StoreBackend {
	case config.StoreMsgpack:
		s, err := snapshot.New(cfg.SnapshotPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
		}
		return s, nil
	case config.StoreSQLite, "":
		r, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database repository: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q: %w", cfg.StoreBackend, ports.ErrConfigurationError)
	}
}

// NewSources returns the sources for the configured mode, archive feeds first.
func NewSources(cfg *config.Config, client *nse.Client) []ports.DealSource {
	var sources []ports.DealSource
	if cfg.UsesArchive() {
		sources = append(sources,
			nse.NewArchiveSource(client, "bulk-archive", cfg.BulkArchiveURL, domain.DealTypeBulk),
			nse.NewArchiveSource(client, "block-archive", cfg.BlockArchiveURL, domain.DealTypeBlock),
		)
	}
	if cfg.UsesAPI() {
		sources = append(sources,
			nse.NewAPISource(client, "bulk-api", cfg.BulkAPIURL, domain.DealTypeBulk),
			nse.NewAPISource(client, "block-api", cfg.BlockAPIURL, domain.DealTypeBlock),
		)
	}
	return sources
}

func loadKeywords(cfg *config.Config) (*classify.KeywordSet, error) {
	if cfg.KeywordsFile == "" {
		return classify.DefaultKeywordSet()
	}
	ks, err := classify.LoadKeywordSet(cfg.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords from %s: %w: %w", cfg.KeywordsFile, ports.ErrConfigurationError, err)
	}
	return ks, nil
}

// Close releases the store.
func (p *Pipeline) Close() error {
	if err := p.Store.Close(); err != nil {
		p.logger.Error(context.Background(), err, "Error closing store")
		return err
	}
	return nil
}
