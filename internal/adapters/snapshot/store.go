// Package snapshot persists the deal table as a single msgpack file.
//
// Save writes to a temporary file in the same directory and renames it over
// the target, so readers see either the previous snapshot or the new one.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

const formatVersion = 1

// file is the on-disk layout. Fields are additive; unknown fields are ignored
// on decode, so older files reload without migration.
type file struct {
	Version       int       `msgpack:"version"`
	SavedAt       time.Time `msgpack:"saved_at"`
	HighWaterMark string    `msgpack:"high_water_mark"`
	Rows          []row     `msgpack:"rows"`
}

type row struct {
	TradeDate    string `msgpack:"trade_date"`
	Symbol       string `msgpack:"symbol"`
	SecurityName string `msgpack:"security_name,omitempty"`
	DealType     string `msgpack:"deal_type"`
	Shape        string `msgpack:"shape"`
	ClientName   string `msgpack:"client_name,omitempty"`
	Side         string `msgpack:"side,omitempty"`
	BuyerName    string `msgpack:"buyer_name,omitempty"`
	SellerName   string `msgpack:"seller_name,omitempty"`
	Quantity     int64  `msgpack:"quantity"`
	Price        string `msgpack:"price"`
	Remarks      string `msgpack:"remarks,omitempty"`
}

// Store implements ports.DealStore on a msgpack file.
type Store struct {
	path   string
	logger ports.Logger
}

// New creates a Store at path. The parent directory is created if needed.
func New(path string, logger ports.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for snapshot store")
	}
	if path == "" {
		path = "./data/bulk_block_master.msgpack"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(path), err)
	}
	return &Store{path: path, logger: logger}, nil
}

func (s *Store) read() (*file, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot '%s': %w", s.path, err)
	}
	var f file
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot '%s': %w: %w", s.path, ports.ErrCorruptStore, err)
	}
	return &f, nil
}

// Load returns every persisted deal in stored order.
func (s *Store) Load(ctx context.Context) ([]*domain.Deal, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	deals := make([]*domain.Deal, 0, len(f.Rows))
	for i, r := range f.Rows {
		d, err := r.toDeal()
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: %w", i, err)
		}
		deals = append(deals, d)
	}
	s.logger.Debug(ctx, "Snapshot loaded", map[string]interface{}{"path": s.path, "count": len(deals)})
	return deals, nil
}

// Save writes the snapshot atomically.
func (s *Store) Save(ctx context.Context, deals []*domain.Deal) error {
	f := file{Version: formatVersion, SavedAt: time.Now().UTC(), Rows: make([]row, 0, len(deals))}
	var mark time.Time
	for _, d := range deals {
		f.Rows = append(f.Rows, fromDeal(d))
		if d.TradeDate.After(mark) {
			mark = d.TradeDate
		}
	}
	if !mark.IsZero() {
		f.HighWaterMark = mark.Format(domain.DateLayout)
	}

	data, err := msgpack.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w: %w", ports.ErrPersistenceFailure, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w: %w", ports.ErrPersistenceFailure, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp snapshot: %w: %w", ports.ErrPersistenceFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp snapshot: %w: %w", ports.ErrPersistenceFailure, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp snapshot: %w: %w", ports.ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace snapshot '%s': %w: %w", s.path, ports.ErrPersistenceFailure, err)
	}

	s.logger.Info(ctx, "Snapshot saved", map[string]interface{}{"path": s.path, "rows": len(deals), "highWaterMark": f.HighWaterMark})
	return nil
}

// HighWaterMark returns the max trade date recorded in the snapshot header.
func (s *Store) HighWaterMark(ctx context.Context) (time.Time, error) {
	f, err := s.read()
	if err != nil {
		return time.Time{}, err
	}
	if f.HighWaterMark == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, f.HighWaterMark)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid high-water-mark %q: %w", f.HighWaterMark, ports.ErrCorruptStore)
	}
	return t, nil
}

// Close is a no-op; the file is only open during Load and Save.
func (s *Store) Close() error {
	return nil
}

func fromDeal(d *domain.Deal) row {
	return row{
		TradeDate:    d.TradeDate.Format(domain.DateLayout),
		Symbol:       d.Symbol,
		SecurityName: d.SecurityName,
		DealType:     string(d.DealType),
		Shape:        string(d.Shape),
		ClientName:   d.ClientName,
		Side:         string(d.Side),
		BuyerName:    d.BuyerName,
		SellerName:   d.SellerName,
		Quantity:     d.Quantity,
		Price:        d.Price.String(),
		Remarks:      d.Remarks,
	}
}

func (r row) toDeal() (*domain.Deal, error) {
	t, err := time.Parse(domain.DateLayout, r.TradeDate)
	if err != nil {
		return nil, fmt.Errorf("invalid trade_date %q: %w", r.TradeDate, ports.ErrCorruptStore)
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", r.Price, ports.ErrCorruptStore)
	}
	return &domain.Deal{
		TradeDate:    t,
		Symbol:       r.Symbol,
		SecurityName: r.SecurityName,
		DealType:     domain.DealType(r.DealType),
		Shape:        domain.Shape(r.Shape),
		ClientName:   r.ClientName,
		Side:         domain.Side(r.Side),
		BuyerName:    r.BuyerName,
		SellerName:   r.SellerName,
		Quantity:     r.Quantity,
		Price:        price,
		Remarks:      r.Remarks,
	}, nil
}
