// Package memory is the in-process history backend. It is the default and
// lives only as long as the run.
package memory

import (
	"context"
	"fmt"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
)

// compile-time interface check
var _ history.Store = (*Store)(nil)

// Store keeps events in a map keyed by event id. It is owned by a single
// engine and is not safe for concurrent use.
type Store struct {
	events map[uint32]event.Event
	closed bool
}

func New() *Store {
	return &Store{events: make(map[uint32]event.Event)}
}

func (s *Store) Record(_ context.Context, ev event.Event) error {
	if s.closed {
		return history.ErrClosed
	}
	if _, exists := s.events[ev.Tx()]; exists {
		return fmt.Errorf("%w: tx %d", history.ErrDuplicateEvent, ev.Tx())
	}
	s.events[ev.Tx()] = ev
	return nil
}

func (s *Store) Lookup(_ context.Context, tx uint32) (event.Event, bool, error) {
	if s.closed {
		return nil, false, history.ErrClosed
	}
	ev, ok := s.events[tx]
	return ev, ok, nil
}

func (s *Store) Len(_ context.Context) (int, error) {
	return len(s.events), nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	if s.closed {
		return history.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.closed = true
	return nil
}
