package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/plugin"
	"github.com/xraph/clearing/types"
)

type recorder struct {
	name string
	mu   sync.Mutex
	log  []string
	fail bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) add(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, s)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) OnEventApplied(_ context.Context, ev event.Event, _ account.Balance) error {
	return r.add("applied:" + ev.Kind().String())
}

func (r *recorder) OnUnderfundedClamp(_ context.Context, n plugin.ClampNotice) error {
	return r.add("clamp:" + n.Shortfall.String())
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnEventRejected(ctx context.Context, _ event.Event, _ error) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func TestRegisterDuplicate(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&recorder{name: "a"}))
	assert.Error(t, r.Register(&recorder{name: "a"}))
	assert.Equal(t, 1, r.Count())
	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("b"))
	assert.Len(t, r.List(), 1)
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	ctx := context.Background()
	r := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	require.NoError(t, r.Register(rec))

	dep := event.Deposit{ClientID: 1, TxID: 1, Amount: types.MustParseAmount("1")}
	r.EmitEventApplied(ctx, dep, account.Balance{})
	r.EmitAccountCreated(ctx, account.Balance{})
	r.EmitUnderfundedClamp(ctx, plugin.ClampNotice{Event: dep, Shortfall: types.MustParseAmount("0.5")})

	assert.Equal(t, []string{"applied:deposit", "clamp:0.5000"}, rec.log)
}

func TestHookErrorsAreSwallowed(t *testing.T) {
	r := plugin.NewRegistry()
	rec := &recorder{name: "rec", fail: true}
	require.NoError(t, r.Register(rec))

	assert.NotPanics(t, func() {
		r.EmitEventApplied(context.Background(), event.Dispute{ClientID: 1, TxID: 1}, account.Balance{})
	})
	assert.Len(t, rec.log, 1)
}

func TestHookTimeout(t *testing.T) {
	r := plugin.NewRegistry().WithTimeout(10 * time.Millisecond)
	require.NoError(t, r.Register(slow{}))

	start := time.Now()
	r.EmitEventRejected(context.Background(), event.Dispute{ClientID: 1, TxID: 1}, errors.New("x"))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}
