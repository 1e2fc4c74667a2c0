package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/history/historytest"
	"github.com/xraph/clearing/history/sqlite"
	"github.com/xraph/clearing/id"
	"github.com/xraph/clearing/types"
)

func TestConformance(t *testing.T) {
	historytest.Run(t, func(t *testing.T) history.Store {
		s, err := sqlite.Open(":memory:")
		require.NoError(t, err)
		require.NoError(t, s.Migrate(context.Background()))
		return s
	})
}

func TestRunIDStamped(t *testing.T) {
	ctx := context.Background()
	run := id.NewRunID()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "history.sqlite"), sqlite.WithRunID(run))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	require.NoError(t, s.Record(ctx, event.Deposit{ClientID: 1, TxID: 5, Amount: types.MustParseAmount("2")}))

	var stored id.ID
	require.NoError(t, s.DB().Table("clearing_history").Select("run_id").Where("tx_id = ?", 5).Row().Scan(&stored))
	assert.Equal(t, run.String(), stored.String())
	assert.Equal(t, id.PrefixRun, stored.Prefix())

	got, ok, err := s.Lookup(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2.0000", got.(event.Deposit).Amount.String())
}

func TestRunIDUnstamped(t *testing.T) {
	ctx := context.Background()

	s, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	require.NoError(t, s.Record(ctx, event.Deposit{ClientID: 1, TxID: 5, Amount: types.MustParseAmount("2")}))

	stored := id.NewRunID()
	require.NoError(t, s.DB().Table("clearing_history").Select("run_id").Where("tx_id = ?", 5).Row().Scan(&stored))
	assert.True(t, stored.IsNil())

	_, ok, err := s.Lookup(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}
