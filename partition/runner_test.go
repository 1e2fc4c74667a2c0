package partition_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing"
	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	boltstore "github.com/xraph/clearing/history/bolt"
	"github.com/xraph/clearing/history/memory"
	"github.com/xraph/clearing/partition"
	"github.com/xraph/clearing/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func memoryStores(context.Context, int, int) (history.Store, error) {
	return memory.New(), nil
}

func amt(s string) types.Amount { return types.MustParseAmount(s) }

func start(t *testing.T, n int, factory partition.StoreFactory, opts ...partition.Option) *partition.Runner {
	t.Helper()
	ctx := context.Background()
	opts = append([]partition.Option{partition.WithLogger(quiet), partition.WithBuffer(4)}, opts...)
	r, err := partition.New(ctx, n, factory, opts...)
	require.NoError(t, err)
	require.NoError(t, r.Start(ctx))
	t.Cleanup(func() { _ = r.Stop(ctx) })
	return r
}

// workload builds a stream over many clients whose final balances are
// known: every client deposits 10, withdraws 3, and odd clients dispute and
// charge back their deposit.
func workload(clients int) ([]event.Event, map[uint16][2]string) {
	var evs []event.Event
	want := make(map[uint16][2]string)
	tx := uint32(0)
	for c := range clients {
		client := uint16(c)
		tx++
		depTx := tx
		evs = append(evs, event.Deposit{ClientID: client, TxID: depTx, Amount: amt("10")})
		tx++
		evs = append(evs, event.Withdrawal{ClientID: client, TxID: tx, Amount: amt("3")})
		if c%2 == 1 {
			evs = append(evs,
				event.Dispute{ClientID: client, TxID: depTx},
				event.Chargeback{ClientID: client, TxID: depTx},
			)
			want[client] = [2]string{"0.0000", "true"}
		} else {
			want[client] = [2]string{"7.0000", "false"}
		}
	}
	return evs, want
}

func TestRunnerMatchesSingleEngine(t *testing.T) {
	ctx := context.Background()
	evs, want := workload(64)

	for _, n := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("Partitions%d", n), func(t *testing.T) {
			r := start(t, n, memoryStores)
			stats, err := r.Run(ctx, clearing.Events(evs...))
			require.NoError(t, err)

			assert.Equal(t, len(evs), stats.Seen)
			assert.Equal(t, len(evs), stats.Applied)
			assert.Equal(t, 32, stats.AccountsLocked)

			snap := r.Snapshot()
			require.Equal(t, 64, snap.Len())
			prev := -1
			for _, b := range snap.Accounts() {
				assert.Greater(t, int(b.Client), prev)
				prev = int(b.Client)
				assert.Equal(t, want[b.Client][0], b.Total.String(), "client %d", b.Client)
				assert.Equal(t, want[b.Client][1], fmt.Sprint(b.Locked), "client %d", b.Client)
			}
		})
	}
}

func TestRunnerRoute(t *testing.T) {
	r := start(t, 4, memoryStores)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 1, r.Route(5))
	assert.Equal(t, 3, r.Route(65535))

	ctx := context.Background()
	_, err := r.Run(ctx, clearing.Events(event.Deposit{ClientID: 5, TxID: 1, Amount: amt("1")}))
	require.NoError(t, err)

	_, ok := r.Engine(1).Account(5)
	assert.True(t, ok)
	_, ok = r.Engine(0).Account(5)
	assert.False(t, ok)
	b, ok := r.Account(5)
	require.True(t, ok)
	assert.Equal(t, "1.0000", b.Available.String())
}

func TestRunnerSharesRunID(t *testing.T) {
	r := start(t, 3, memoryStores)
	for i := range r.Len() {
		assert.Equal(t, r.RunID(), r.Engine(i).RunID())
	}
}

func TestRunnerDuplicatesArePerPartition(t *testing.T) {
	ctx := context.Background()
	r := start(t, 2, memoryStores)

	stats, err := r.Run(ctx, clearing.Events(
		event.Deposit{ClientID: 0, TxID: 1, Amount: amt("1")},
		event.Deposit{ClientID: 2, TxID: 1, Amount: amt("1")},
		event.Deposit{ClientID: 1, TxID: 1, Amount: amt("1")},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, 1, stats.Duplicate)
}

func TestRunnerInvalidCount(t *testing.T) {
	_, err := partition.New(context.Background(), 0, memoryStores)
	var verr clearing.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestRunnerFactoryError(t *testing.T) {
	boom := errors.New("no disk")
	_, err := partition.New(context.Background(), 3, func(_ context.Context, i, _ int) (history.Store, error) {
		if i == 2 {
			return nil, boom
		}
		return memory.New(), nil
	}, partition.WithLogger(quiet))
	require.ErrorIs(t, err, boom)
}

func TestRunnerNotStarted(t *testing.T) {
	r, err := partition.New(context.Background(), 2, memoryStores, partition.WithLogger(quiet))
	require.NoError(t, err)
	_, err = r.Run(context.Background(), clearing.Events())
	require.ErrorIs(t, err, clearing.ErrNotStarted)
}

func TestRunnerSourceError(t *testing.T) {
	r := start(t, 2, memoryStores)
	boom := errors.New("truncated input")
	n := 0
	_, err := r.Run(context.Background(), clearing.SourceFunc(func(context.Context) (event.Event, error) {
		n++
		if n > 3 {
			return nil, boom
		}
		return event.Deposit{ClientID: uint16(n), TxID: uint32(n), Amount: amt("1")}, nil
	}))
	require.ErrorIs(t, err, boom)
}

func TestRunnerBoltPartitions(t *testing.T) {
	dir := t.TempDir()
	factory := func(_ context.Context, i, _ int) (history.Store, error) {
		return boltstore.Open(filepath.Join(dir, fmt.Sprintf("part-%d.db", i)))
	}

	evs, want := workload(10)
	r := start(t, 3, factory)
	_, err := r.Run(context.Background(), clearing.Events(evs...))
	require.NoError(t, err)

	for c, w := range want {
		b, ok := r.Account(c)
		require.True(t, ok)
		assert.Equal(t, w[0], b.Total.String())
	}
}
