package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.DealStore using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/bulk_block.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist. The layout is additive
// only, so reloads never need a migration step.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS deals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_date TEXT NOT NULL,
		symbol TEXT NOT NULL,
		security_name TEXT NOT NULL DEFAULT '',
		deal_type TEXT NOT NULL,
		shape TEXT NOT NULL,
		client_name TEXT NOT NULL DEFAULT '',
		side TEXT NOT NULL DEFAULT '',
		buyer_name TEXT NOT NULL DEFAULT '',
		seller_name TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		price TEXT NOT NULL DEFAULT '0',
		remarks TEXT NOT NULL DEFAULT '',
		row_key TEXT NOT NULL UNIQUE
	);

	-- one row describing the current snapshot; absent until the first save
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		saved_at TIMESTAMP NOT NULL,
		row_count INTEGER NOT NULL,
		high_water_mark TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deals_trade_date ON deals (trade_date);
	CREATE INDEX IF NOT EXISTS idx_deals_symbol ON deals (symbol);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Load returns every persisted deal in insertion order.
func (r *Repository) Load(ctx context.Context) ([]*domain.Deal, error) {
	if _, err := r.HighWaterMark(ctx); err != nil {
		return nil, err
	}

	const query = `
	SELECT trade_date, symbol, security_name, deal_type, shape, client_name, side,
	       buyer_name, seller_name, quantity, price, remarks
	FROM deals
	ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	deals := make([]*domain.Deal, 0)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal during Load: %w", err)
		}
		deals = append(deals, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deal rows: %w", err)
	}
	r.logger.Debug(ctx, "Deals loaded", map[string]interface{}{"count": len(deals)})
	return deals, nil
}

// Save replaces the snapshot inside one transaction.
func (r *Repository) Save(ctx context.Context, deals []*domain.Deal) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w: %w", ports.ErrPersistenceFailure, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error(ctx, rbErr, "Failed to roll back save transaction")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM deals`); err != nil {
		return fmt.Errorf("failed to clear deals: %w: %w", ports.ErrPersistenceFailure, err)
	}

	const insert = `
	INSERT INTO deals (trade_date, symbol, security_name, deal_type, shape, client_name, side,
	                   buyer_name, seller_name, quantity, price, remarks, row_key)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare deal insert: %w: %w", ports.ErrPersistenceFailure, err)
	}
	defer stmt.Close()

	var mark time.Time
	for _, d := range deals {
		if _, err = stmt.ExecContext(ctx,
			d.TradeDate.Format(domain.DateLayout), d.Symbol, d.SecurityName, d.DealType, d.Shape,
			d.ClientName, d.Side, d.BuyerName, d.SellerName, d.Quantity, d.Price.String(), d.Remarks,
			d.Key()); err != nil {
			return fmt.Errorf("failed to insert deal %s on %s: %w: %w",
				d.Symbol, d.TradeDate.Format(domain.DateLayout), ports.ErrPersistenceFailure, err)
		}
		if d.TradeDate.After(mark) {
			mark = d.TradeDate
		}
	}

	const upsertSnapshot = `
	INSERT INTO snapshots (id, saved_at, row_count, high_water_mark) VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, row_count = excluded.row_count,
	                              high_water_mark = excluded.high_water_mark`
	if _, err = tx.ExecContext(ctx, upsertSnapshot, time.Now().UTC(), len(deals), mark.Format(domain.DateLayout)); err != nil {
		return fmt.Errorf("failed to record snapshot: %w: %w", ports.ErrPersistenceFailure, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w: %w", ports.ErrPersistenceFailure, err)
	}
	r.logger.Info(ctx, "Deal snapshot saved", map[string]interface{}{"rows": len(deals), "highWaterMark": mark.Format(domain.DateLayout)})
	return nil
}

// HighWaterMark returns the max trade date recorded with the snapshot.
func (r *Repository) HighWaterMark(ctx context.Context) (time.Time, error) {
	var mark string
	err := r.db.QueryRowContext(ctx, `SELECT high_water_mark FROM snapshots WHERE id = 1`).Scan(&mark)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ports.ErrStoreNotFound
		}
		return time.Time{}, fmt.Errorf("failed to query snapshot metadata: %w", err)
	}
	if mark == "" || mark == (time.Time{}).Format(domain.DateLayout) {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, mark)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid high-water-mark %q: %w", mark, ports.ErrCorruptStore)
	}
	return t, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(s scanner) (*domain.Deal, error) {
	d := &domain.Deal{}
	var tradeDate, dealType, shape, side, price string
	err := s.Scan(&tradeDate, &d.Symbol, &d.SecurityName, &dealType, &shape, &d.ClientName, &side,
		&d.BuyerName, &d.SellerName, &d.Quantity, &price, &d.Remarks)
	if err != nil {
		return nil, err
	}
	if d.TradeDate, err = time.Parse(domain.DateLayout, tradeDate); err != nil {
		return nil, fmt.Errorf("invalid trade_date %q: %w", tradeDate, ports.ErrCorruptStore)
	}
	if d.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, ports.ErrCorruptStore)
	}
	d.DealType = domain.DealType(dealType)
	d.Shape = domain.Shape(shape)
	d.Side = domain.Side(side)
	return d, nil
}
