// Package history defines the ledger history: an append-only, write-once
// record of accepted monetary events addressable by event id. Reference
// events (dispute, resolve, chargeback) resolve their target through it.
//
// Backends live in sub-packages: memory (default), bolt, sqlite and mongo.
package history

import (
	"context"
	"errors"

	"github.com/xraph/clearing/event"
)

// ErrDuplicateEvent is returned by Record when the event id is already
// present. The stored copy is left untouched.
var ErrDuplicateEvent = errors.New("history: duplicate event")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history: store is closed")

// Store is the ledger history contract.
type Store interface {
	// Record inserts ev under ev.Tx(). It fails with ErrDuplicateEvent if
	// the id is already present and never overwrites.
	Record(ctx context.Context, ev event.Event) error

	// Lookup returns the event stored under tx. The bool is false when no
	// event has that id; there is no partial matching.
	Lookup(ctx context.Context, tx uint32) (event.Event, bool, error)

	// Len is the number of recorded events.
	Len(ctx context.Context) (int, error)

	// Migrate prepares the backend (tables, buckets, indexes).
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
