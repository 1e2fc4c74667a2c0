// Package bolt is a BoltDB-backed history. All events live in one bucket
// keyed by the big-endian event id, so a cursor walks them in id order.
//
// Record checks for the key before writing, inside the same update
// transaction, so an existing entry is never overwritten.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	boltdb "github.com/boltdb/bolt"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/id"
)

const bucketName = "clearing_history"

// compile-time interface check
var _ history.Store = (*Store)(nil)

// Store wraps a BoltDB database file.
type Store struct {
	db    *boltdb.DB
	runID id.ID
}

// Option configures a Store.
type Option func(*Store)

// WithRunID stamps every record with the run that wrote it.
func WithRunID(run id.ID) Option {
	return func(s *Store) { s.runID = run }
}

type record struct {
	event.Row
	RunID      id.ID     `json:"run_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Open opens (or creates) the database file at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := boltdb.Open(path, 0o600, &boltdb.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("history/bolt: open %s: %w", path, err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate creates the bucket if it does not exist yet.
func (s *Store) Migrate(_ context.Context) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
}

func (s *Store) Record(_ context.Context, ev event.Event) error {
	data, err := json.Marshal(record{
		Row:        event.ToRow(ev),
		RunID:      s.runID,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("history/bolt: encode tx %d: %w", ev.Tx(), err)
	}

	return s.db.Update(func(tx *boltdb.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("history/bolt: bucket %q missing, call Migrate", bucketName)
		}

		key := txKey(ev.Tx())
		if b.Get(key) != nil {
			return fmt.Errorf("%w: tx %d", history.ErrDuplicateEvent, ev.Tx())
		}
		return b.Put(key, data)
	})
}

func (s *Store) Lookup(_ context.Context, txID uint32) (event.Event, bool, error) {
	var (
		ev    event.Event
		found bool
	)

	err := s.db.View(func(tx *boltdb.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		v := b.Get(txKey(txID))
		if v == nil {
			return nil
		}

		var rec record
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("history/bolt: decode tx %d: %w", txID, err)
		}
		decoded, err := rec.Event()
		if err != nil {
			return fmt.Errorf("history/bolt: decode tx %d: %w", txID, err)
		}
		ev, found = decoded, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return ev, found, nil
}

func (s *Store) Len(_ context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *boltdb.Tx) error {
		if b := tx.Bucket([]byte(bucketName)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(*boltdb.Tx) error { return nil })
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func txKey(tx uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, tx)
	return key
}
