package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/history/historytest"
	"github.com/xraph/clearing/history/memory"
	"github.com/xraph/clearing/types"
)

func TestConformance(t *testing.T) {
	historytest.Run(t, func(t *testing.T) history.Store {
		return memory.New()
	})
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Close())

	err := s.Record(ctx, event.Deposit{ClientID: 1, TxID: 1, Amount: types.MustParseAmount("1")})
	assert.ErrorIs(t, err, history.ErrClosed)

	_, _, err = s.Lookup(ctx, 1)
	assert.ErrorIs(t, err, history.ErrClosed)
	assert.ErrorIs(t, s.Ping(ctx), history.ErrClosed)
}
