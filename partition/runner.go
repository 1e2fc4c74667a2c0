// Package partition runs several engines side by side, each owning the
// accounts and history of the clients routed to it.
//
// Events are routed by client id, so every event of one client reaches the
// same engine in arrival order. Engines share nothing until Snapshot merges
// their accounts. Duplicate detection is scoped to a partition: two events
// with the same id for clients in different partitions are both accepted.
package partition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tidwall/btree"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/clearing"
	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/id"
)

// DefaultBuffer is the per-partition channel capacity.
const DefaultBuffer = 1024

// StoreFactory opens the history store for partition i of n.
type StoreFactory func(ctx context.Context, i, n int) (history.Store, error)

// Runner fans one event stream out to N engines.
type Runner struct {
	parts   []*part
	logger  *slog.Logger
	buffer  int
	opts    []clearing.Option
	runID   id.ID
	started bool
}

type part struct {
	id     id.PartitionID
	engine *clearing.Engine
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Each engine logs with a partition attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithBuffer sets the per-partition channel capacity.
func WithBuffer(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// WithRunID sets the run id shared by every engine.
func WithRunID(run id.ID) Option {
	return func(r *Runner) { r.runID = run }
}

// WithEngineOptions passes options to every engine. Plugins given here are
// shared by all partitions and must be safe for concurrent use.
func WithEngineOptions(opts ...clearing.Option) Option {
	return func(r *Runner) { r.opts = append(r.opts, opts...) }
}

// New opens n partitions, each with a store from factory.
func New(ctx context.Context, n int, factory StoreFactory, opts ...Option) (*Runner, error) {
	if n < 1 {
		return nil, clearing.ValidationError{Field: "partitions", Message: fmt.Sprintf("must be at least 1, got %d", n)}
	}

	r := &Runner{
		logger: slog.Default(),
		buffer: DefaultBuffer,
		runID:  id.NewRunID(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range n {
		store, err := factory(ctx, i, n)
		if err != nil {
			r.closeStores()
			return nil, fmt.Errorf("partition %d: open store: %w", i, err)
		}

		pid := id.NewPartitionID()
		engineOpts := append([]clearing.Option{
			clearing.WithLogger(r.logger.With("partition", i, "partition_id", pid.String())),
			clearing.WithRunID(r.runID),
		}, r.opts...)

		r.parts = append(r.parts, &part{
			id:     pid,
			engine: clearing.New(store, engineOpts...),
		})
	}

	return r, nil
}

// RunID is shared by every partition's engine.
func (r *Runner) RunID() id.ID { return r.runID }

// Len is the number of partitions.
func (r *Runner) Len() int { return len(r.parts) }

// Route returns the partition index for client.
func (r *Runner) Route(client uint16) int {
	return int(client) % len(r.parts)
}

// Engine returns the engine of partition i.
func (r *Runner) Engine(i int) *clearing.Engine { return r.parts[i].engine }

// Start starts every engine.
func (r *Runner) Start(ctx context.Context) error {
	for i, p := range r.parts {
		if err := p.engine.Start(ctx); err != nil {
			return fmt.Errorf("partition %d: %w", i, err)
		}
	}
	r.started = true
	r.logger.Info("partitioned runner started", "partitions", len(r.parts), "run_id", r.runID.String())
	return nil
}

// Stop stops every engine and closes its store.
func (r *Runner) Stop(ctx context.Context) error {
	var errs clearing.MultiError
	for i, p := range r.parts {
		if err := p.engine.Stop(ctx); err != nil {
			errs.Add(fmt.Errorf("partition %d: %w", i, err))
		}
	}
	r.started = false
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Run drains src, applying each event on the partition that owns its
// client. It returns the merged stats once every partition is done. A
// source error or a fatal apply error on any partition cancels the rest.
func (r *Runner) Run(ctx context.Context, src clearing.Source) (clearing.Stats, error) {
	if !r.started {
		return clearing.Stats{}, clearing.ErrNotStarted
	}

	g, ctx := errgroup.WithContext(ctx)

	queues := make([]chan event.Event, len(r.parts))
	for i := range queues {
		queues[i] = make(chan event.Event, r.buffer)
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for {
			ev, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if ev == nil {
				continue
			}

			select {
			case queues[r.Route(ev.Client())] <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	for i, p := range r.parts {
		q := queues[i]
		engine := p.engine
		g.Go(func() error {
			_, err := engine.Run(ctx, channelSource(q))
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			return nil
		})
	}

	err := g.Wait()
	return r.Stats(), err
}

// channelSource adapts a queue to clearing.Source.
func channelSource(q <-chan event.Event) clearing.Source {
	return clearing.SourceFunc(func(ctx context.Context) (event.Event, error) {
		select {
		case ev, ok := <-q:
			if !ok {
				return nil, io.EOF
			}
			return ev, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// Stats merges the counters of every partition.
func (r *Runner) Stats() clearing.Stats {
	var total clearing.Stats
	for _, p := range r.parts {
		total = total.Merge(p.engine.Stats())
	}
	return total
}

// Account returns one client's balance from the partition that owns it.
func (r *Runner) Account(client uint16) (account.Balance, bool) {
	return r.parts[r.Route(client)].engine.Account(client)
}

// Snapshot merges every partition's accounts in client order.
func (r *Runner) Snapshot() account.Snapshot {
	var merged btree.Map[uint16, account.Balance]
	for _, p := range r.parts {
		p.engine.Snapshot().Each(func(b account.Balance) bool {
			merged.Set(b.Client, b)
			return true
		})
	}

	balances := make([]account.Balance, 0, merged.Len())
	merged.Scan(func(_ uint16, b account.Balance) bool {
		balances = append(balances, b)
		return true
	})
	return account.NewSnapshot(balances)
}

func (r *Runner) closeStores() {
	for _, p := range r.parts {
		_ = p.engine.Stop(context.Background())
	}
}
