// Package sqlite is a GORM/SQLite history backend. The event id is the
// table's primary key, which is what makes Record write-once.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/id"
)

// compile-time interface check
var _ history.Store = (*Store)(nil)

// Store implements history.Store on a gorm.DB.
type Store struct {
	db    *gorm.DB
	runID id.ID
}

// Option configures a Store.
type Option func(*Store)

// WithRunID stamps every record with the run that wrote it.
func WithRunID(run id.ID) Option {
	return func(s *Store) { s.runID = run }
}

// New wraps an existing gorm connection.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to a SQLite database. dsn is a file path or ":memory:".
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history/sqlite: open %s: %w", dsn, err)
	}

	// A single connection keeps ":memory:" databases from splitting per
	// pooled connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("history/sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db, opts...), nil
}

// DB returns the underlying gorm database for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates the history table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&historyModel{}); err != nil {
		return fmt.Errorf("history/sqlite: migration failed: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, ev event.Event) error {
	m := toHistoryModel(ev, s.runID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&historyModel{}).Where("tx_id = ?", m.TxID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: tx %d", history.ErrDuplicateEvent, m.TxID)
		}

		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: tx %d", history.ErrDuplicateEvent, m.TxID)
			}
			return err
		}
		return nil
	})
}

func (s *Store) Lookup(ctx context.Context, tx uint32) (event.Event, bool, error) {
	var m historyModel
	err := s.db.WithContext(ctx).Where("tx_id = ?", tx).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	ev, err := fromHistoryModel(&m)
	if err != nil {
		return nil, false, err
	}
	return ev, true, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&historyModel{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
