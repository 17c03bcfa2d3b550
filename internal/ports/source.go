package ports

import (
	"context"

	"mfDealFlow/internal/domain"
)

// DealSource fetches the raw rows of one disclosure feed.
type DealSource interface {
	// Name returns the logical source name used in logs and reports.
	Name() string
	// DealType returns the tag applied to every row of this source.
	DealType() domain.DealType
	// RequiresSession reports whether the source only answers after a warm-up visit.
	RequiresSession() bool
	// Fetch issues a single request. Failures are wrapped in ErrSourceUnavailable.
	Fetch(ctx context.Context) (*domain.RawBatch, error)
}

// SessionWarmer performs the landing-page visit some sources need before they
// serve data.
type SessionWarmer interface {
	WarmUp(ctx context.Context) error
}

// DealFetcher runs one fetch cycle over all configured sources.
// Per-source failures are reported in the result, never returned.
type DealFetcher interface {
	Fetch(ctx context.Context) *domain.FetchResult
}
