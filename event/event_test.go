package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/types"
)

func amt(s string) *types.Amount {
	a := types.MustParseAmount(s)
	return &a
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  event.Kind
	}{
		{"deposit", event.KindDeposit},
		{" Withdrawal ", event.KindWithdrawal},
		{"DISPUTE", event.KindDispute},
		{"resolve", event.KindResolve},
		{"chargeback", event.KindChargeback},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := event.ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := event.ParseKind("refund")
	assert.ErrorIs(t, err, event.ErrUnknownKind)
}

func TestNewVariants(t *testing.T) {
	tests := []struct {
		kind     event.Kind
		amount   *types.Amount
		monetary bool
	}{
		{event.KindDeposit, amt("1.5"), true},
		{event.KindWithdrawal, amt("0"), true},
		{event.KindDispute, nil, false},
		{event.KindResolve, amt("9"), false},
		{event.KindChargeback, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			ev, err := event.New(tt.kind, 7, 42, tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ev.Kind())
			assert.Equal(t, uint16(7), ev.Client())
			assert.Equal(t, uint32(42), ev.Tx())
			assert.Equal(t, tt.monetary, tt.kind.Monetary())

			m, isMonetary := ev.(event.Monetary)
			assert.Equal(t, tt.monetary, isMonetary)
			if isMonetary {
				assert.True(t, m.Value().Equal(*tt.amount))
			}

			r, isRef := ev.(event.Reference)
			assert.Equal(t, !tt.monetary, isRef)
			if isRef {
				assert.Equal(t, uint32(42), r.Ref())
			}
		})
	}
}

func TestNewRejects(t *testing.T) {
	_, err := event.New(event.KindDeposit, 1, 1, nil)
	assert.ErrorIs(t, err, event.ErrMissingAmount)

	_, err = event.New(event.KindWithdrawal, 1, 1, amt("-0.0001"))
	assert.ErrorIs(t, err, event.ErrNegativeAmount)

	_, err = event.New(event.Kind("transfer"), 1, 1, amt("1"))
	assert.ErrorIs(t, err, event.ErrUnknownKind)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, event.Validate(event.Deposit{ClientID: 1, TxID: 1, Amount: types.Zero()}))
	assert.NoError(t, event.Validate(event.Dispute{ClientID: 1, TxID: 1}))
	assert.ErrorIs(t, event.Validate(event.Deposit{ClientID: 1, TxID: 1, Amount: types.MustParseAmount("-1")}), event.ErrNegativeAmount)
	assert.ErrorIs(t, event.Validate(nil), event.ErrUnknownKind)
}

func TestRowRoundTrip(t *testing.T) {
	events := []event.Event{
		event.Deposit{ClientID: 1, TxID: 1, Amount: types.MustParseAmount("5")},
		event.Withdrawal{ClientID: 1, TxID: 2, Amount: types.MustParseAmount("3")},
		event.Chargeback{ClientID: 2, TxID: 10},
	}

	for _, ev := range events {
		t.Run(event.Describe(ev), func(t *testing.T) {
			row := event.ToRow(ev)
			_, isMonetary := ev.(event.Monetary)
			assert.Equal(t, isMonetary, row.Amount != nil)

			back, err := row.Event()
			require.NoError(t, err)
			assert.Equal(t, ev, back)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "deposit client=1 tx=1 amount=5.0000",
		event.Describe(event.Deposit{ClientID: 1, TxID: 1, Amount: types.MustParseAmount("5")}))
	assert.Equal(t, "dispute client=2 tx=10", event.Describe(event.Dispute{ClientID: 2, TxID: 10}))
}
