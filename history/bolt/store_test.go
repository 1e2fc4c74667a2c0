package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/history/bolt"
	"github.com/xraph/clearing/history/historytest"
	"github.com/xraph/clearing/id"
	"github.com/xraph/clearing/types"
)

func newTestStore(t *testing.T, path string) *bolt.Store {
	t.Helper()
	s, err := bolt.Open(path, bolt.WithRunID(id.NewRunID()))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestConformance(t *testing.T) {
	historytest.Run(t, func(t *testing.T) history.Store {
		return newTestStore(t, filepath.Join(t.TempDir(), "history.db"))
	})
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s := newTestStore(t, path)
	require.NoError(t, s.Record(ctx, event.Deposit{ClientID: 3, TxID: 30, Amount: types.MustParseAmount("12.5")}))
	require.NoError(t, s.Close())

	reopened := newTestStore(t, path)
	defer reopened.Close()

	got, ok, err := reopened.Lookup(ctx, 30)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, event.KindDeposit, got.Kind())
	assert.Equal(t, "12.5000", got.(event.Monetary).Value().String())

	err = reopened.Record(ctx, event.Deposit{ClientID: 3, TxID: 30, Amount: types.MustParseAmount("1")})
	assert.ErrorIs(t, err, history.ErrDuplicateEvent)
}

func TestRecordBeforeMigrate(t *testing.T) {
	s, err := bolt.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	err = s.Record(context.Background(), event.Deposit{ClientID: 1, TxID: 1, Amount: types.MustParseAmount("1")})
	assert.Error(t, err)

	_, ok, err := s.Lookup(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
