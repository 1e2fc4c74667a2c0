// Package historytest is a conformance suite every history.Store backend
// runs from its own tests.
package historytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/types"
)

// Factory returns a fresh, migrated, empty store. The suite closes it.
type Factory func(t *testing.T) history.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("RecordAndLookup", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		defer s.Close()

		dep := event.Deposit{ClientID: 1, TxID: 1, Amount: types.MustParseAmount("5.1234")}
		wd := event.Withdrawal{ClientID: 2, TxID: 4294967295, Amount: types.Zero()}

		require.NoError(t, s.Record(ctx, dep))
		require.NoError(t, s.Record(ctx, wd))

		got, ok, err := s.Lookup(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assertSameEvent(t, dep, got)

		got, ok, err = s.Lookup(ctx, 4294967295)
		require.NoError(t, err)
		require.True(t, ok)
		assertSameEvent(t, wd, got)

		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("LookupMissing", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		defer s.Close()

		require.NoError(t, s.Record(ctx, event.Deposit{ClientID: 1, TxID: 10, Amount: types.MustParseAmount("1")}))

		for _, tx := range []uint32{0, 1, 9, 11, 100} {
			got, ok, err := s.Lookup(ctx, tx)
			require.NoError(t, err)
			assert.False(t, ok, "tx %d", tx)
			assert.Nil(t, got)
		}
	})

	t.Run("DuplicateKeepsOriginal", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		defer s.Close()

		original := event.Deposit{ClientID: 1, TxID: 7, Amount: types.MustParseAmount("3")}
		require.NoError(t, s.Record(ctx, original))

		err := s.Record(ctx, event.Withdrawal{ClientID: 9, TxID: 7, Amount: types.MustParseAmount("99")})
		require.ErrorIs(t, err, history.ErrDuplicateEvent)

		got, ok, err := s.Lookup(ctx, 7)
		require.NoError(t, err)
		require.True(t, ok)
		assertSameEvent(t, original, got)

		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func assertSameEvent(t *testing.T, want, got event.Event) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Kind(), got.Kind())
	assert.Equal(t, want.Client(), got.Client())
	assert.Equal(t, want.Tx(), got.Tx())

	wm, wantMonetary := want.(event.Monetary)
	gm, gotMonetary := got.(event.Monetary)
	require.Equal(t, wantMonetary, gotMonetary)
	if wantMonetary {
		assert.True(t, wm.Value().Equal(gm.Value()), "amount: want %s, got %s", wm.Value(), gm.Value())
	}
}
