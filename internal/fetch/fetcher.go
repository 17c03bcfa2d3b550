// Package fetch runs one sequential fetch cycle over the configured sources.
package fetch

import (
	"context"
	"fmt"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// Fetcher queries every source in order and collects what answered.
type Fetcher struct {
	sources []ports.DealSource
	warmer  ports.SessionWarmer
	logger  ports.Logger
}

// New creates a Fetcher. warmer may be nil when no source needs a session.
func New(sources []ports.DealSource, warmer ports.SessionWarmer, logger ports.Logger) *Fetcher {
	return &Fetcher{sources: sources, warmer: warmer, logger: logger}
}

// Sources returns the configured sources in fetch order.
func (f *Fetcher) Sources() []ports.DealSource {
	return f.sources
}

// Fetch never fails as a whole: a source that errors is recorded in its
// status and skipped. Callers use FetchResult.AllFailed to tell "nothing
// answered" apart from "answered with zero rows".
func (f *Fetcher) Fetch(ctx context.Context) *domain.FetchResult {
	result := &domain.FetchResult{}
	warmed := false

	for _, src := range f.sources {
		status := domain.SourceStatus{Name: src.Name(), DealType: src.DealType()}

		if err := ctx.Err(); err != nil {
			status.Err = fmt.Errorf("%s: %w: %w", src.Name(), ports.ErrSourceUnavailable, err)
			result.Statuses = append(result.Statuses, status)
			continue
		}

		if src.RequiresSession() && !warmed && f.warmer != nil {
			warmed = true
			// A failed warm-up is not fatal; the source reports its own failure.
			_ = f.warmer.WarmUp(ctx)
		}

		batch, err := src.Fetch(ctx)
		if err != nil {
			status.Err = err
			f.logger.Warn(ctx, "Source unavailable, skipping", map[string]interface{}{
				"source": src.Name(), "dealType": string(src.DealType()), "error": err.Error(),
			})
			result.Statuses = append(result.Statuses, status)
			continue
		}

		batch.DealType = src.DealType()
		if batch.Source == "" {
			batch.Source = src.Name()
		}
		status.Rows = len(batch.Rows)
		result.Statuses = append(result.Statuses, status)
		result.Batches = append(result.Batches, batch)

		f.logger.Info(ctx, "Source fetched", map[string]interface{}{
			"source": src.Name(), "dealType": string(src.DealType()), "rows": status.Rows,
		})
	}
	return result
}
