package clearing

import (
	"context"
	"errors"
	"io"

	"github.com/xraph/clearing/event"
)

// Stats counts event outcomes for one engine.
type Stats struct {
	Seen    int `json:"seen"`
	Applied int `json:"applied"`
	Clamped int `json:"clamped"`

	InsufficientFunds int `json:"insufficient_funds"`
	UnknownReference  int `json:"unknown_reference"`
	Duplicate         int `json:"duplicate"`
	UnknownAccount    int `json:"unknown_account"`
	Locked            int `json:"locked"`
	Invalid           int `json:"invalid"`
	StoreFailures     int `json:"store_failures"`

	AccountsOpened int `json:"accounts_opened"`
	AccountsLocked int `json:"accounts_locked"`
}

// Rejected is the total of all rejection counters.
func (s Stats) Rejected() int {
	return s.InsufficientFunds + s.UnknownReference + s.Duplicate +
		s.UnknownAccount + s.Locked + s.Invalid + s.StoreFailures
}

// Merge adds other's counters into s.
func (s Stats) Merge(other Stats) Stats {
	s.Seen += other.Seen
	s.Applied += other.Applied
	s.Clamped += other.Clamped
	s.InsufficientFunds += other.InsufficientFunds
	s.UnknownReference += other.UnknownReference
	s.Duplicate += other.Duplicate
	s.UnknownAccount += other.UnknownAccount
	s.Locked += other.Locked
	s.Invalid += other.Invalid
	s.StoreFailures += other.StoreFailures
	s.AccountsOpened += other.AccountsOpened
	s.AccountsLocked += other.AccountsLocked
	return s
}

func (s *Stats) count(err error) {
	switch {
	case errors.Is(err, ErrStoreFailure):
		s.StoreFailures++
	case errors.Is(err, ErrInsufficientFunds):
		s.InsufficientFunds++
	case errors.Is(err, ErrUnknownReferencedEvent):
		s.UnknownReference++
	case errors.Is(err, ErrDuplicateEvent):
		s.Duplicate++
	case errors.Is(err, ErrUnknownAccount):
		s.UnknownAccount++
	case errors.Is(err, ErrAccountLocked):
		s.Locked++
	default:
		s.Invalid++
	}
}

// Source yields events in arrival order. Next returns io.EOF when the
// stream is exhausted; any other error ends the run.
type Source interface {
	Next(ctx context.Context) (event.Event, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (event.Event, error)

// Next implements Source.
func (f SourceFunc) Next(ctx context.Context) (event.Event, error) { return f(ctx) }

// Events is a Source over a fixed slice.
func Events(evs ...event.Event) Source {
	i := 0
	return SourceFunc(func(context.Context) (event.Event, error) {
		if i >= len(evs) {
			return nil, io.EOF
		}
		ev := evs[i]
		i++
		return ev, nil
	})
}

// Run drains src through Apply. Rejected events are logged, counted and
// skipped. The run stops early only on a source error, a fatal apply error
// (such as a failing history store) or context cancellation.
func (e *Engine) Run(ctx context.Context, src Source) (Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return e.stats, err
		}

		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return e.stats, nil
		}
		if err != nil {
			return e.stats, err
		}

		if err := e.Apply(ctx, ev); IsFatal(err) {
			return e.stats, err
		}
	}
}
