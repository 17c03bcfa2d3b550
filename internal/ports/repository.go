package ports

import (
	"context"
	"time"

	"mfDealFlow/internal/domain"
)

// DealStore persists the historical deal table as one snapshot.
// There is exactly one writer; Save replaces the whole snapshot or nothing.
type DealStore interface {
	// Load returns every persisted deal. Returns ErrStoreNotFound before the first Save.
	Load(ctx context.Context) ([]*domain.Deal, error)
	// Save replaces the persisted snapshot with deals. On error the previous
	// snapshot is left intact.
	Save(ctx context.Context, deals []*domain.Deal) error
	// HighWaterMark returns the max trade date of the snapshot.
	// Returns ErrStoreNotFound before the first Save.
	HighWaterMark(ctx context.Context) (time.Time, error)
	// Close releases underlying resources.
	Close() error
}
