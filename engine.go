package clearing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/btree"

	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
	"github.com/xraph/clearing/id"
	"github.com/xraph/clearing/plugin"
	"github.com/xraph/clearing/types"
)

// LockPolicy decides what happens to events for a locked account.
type LockPolicy int

const (
	// LockPolicyReject rejects every event for a locked account with
	// ErrAccountLocked.
	LockPolicyReject LockPolicy = iota
	// LockPolicyAllow keeps applying events; the lock is only reported.
	LockPolicyAllow
)

func (p LockPolicy) String() string {
	switch p {
	case LockPolicyReject:
		return "reject"
	case LockPolicyAllow:
		return "allow"
	default:
		return fmt.Sprintf("LockPolicy(%d)", int(p))
	}
}

// ParseLockPolicy accepts "reject" and "allow".
func ParseLockPolicy(s string) (LockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return LockPolicyReject, nil
	case "allow":
		return LockPolicyAllow, nil
	}
	return 0, ValidationError{Field: "lock_policy", Message: fmt.Sprintf("unknown policy %q", s)}
}

// Engine replays events into per-client accounts. It owns its account
// table and its history store exclusively and is not safe for concurrent
// use: events are applied one at a time in arrival order.
type Engine struct {
	accounts *btree.Map[uint16, *account.Account]
	history  history.Store
	plugins  *plugin.Registry
	logger   *slog.Logger

	lockPolicy LockPolicy
	runID      id.ID
	started    bool
	stats      Stats
}

// New creates an Engine over a history store.
func New(store history.Store, opts ...Option) *Engine {
	e := &Engine{
		accounts:   new(btree.Map[uint16, *account.Account]),
		history:    store,
		plugins:    plugin.NewRegistry(),
		logger:     slog.Default(),
		lockPolicy: LockPolicyReject,
		runID:      id.NewRunID(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithLockPolicy sets how locked accounts treat further events.
func WithLockPolicy(p LockPolicy) Option {
	return func(e *Engine) {
		e.lockPolicy = p
	}
}

// WithRunID overrides the generated run id.
func WithRunID(run id.ID) Option {
	return func(e *Engine) {
		e.runID = run
	}
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// RunID identifies this engine's run.
func (e *Engine) RunID() id.ID { return e.runID }

// Plugins exposes the registry for late registration.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start prepares the history store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.history.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrStoreFailure, err)
	}

	e.plugins.EmitInit(ctx, e)
	e.started = true

	e.logger.Info("clearing engine started",
		"run_id", e.runID.String(),
		"lock_policy", e.lockPolicy.String(),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts plugins down and closes the history store.
func (e *Engine) Stop(ctx context.Context) error {
	e.plugins.EmitShutdown(ctx)
	e.started = false

	recorded, err := e.history.Len(ctx)
	if err != nil {
		e.logger.Warn("history length unavailable", "error", err)
	}

	e.logger.Info("clearing engine stopped",
		"run_id", e.runID.String(),
		"applied", e.stats.Applied,
		"rejected", e.stats.Rejected(),
		"clamped", e.stats.Clamped,
		"recorded", recorded,
	)

	return e.history.Close()
}

// ──────────────────────────────────────────────────
// Apply
// ──────────────────────────────────────────────────

// outcome is the staged result of one event, committed only if every
// step succeeded.
type outcome struct {
	next   *account.Account
	opened bool
	locked bool
	clamp  *plugin.ClampNotice
	record bool
}

// Apply applies one event. It returns nil when the event changed state,
// an *EventError wrapping a sentinel when it was rejected. A rejected
// event leaves every account and the history exactly as they were.
//
// Clamps are not errors: they are reported to OnUnderfundedClamp plugins
// and the log, and Apply returns nil.
func (e *Engine) Apply(ctx context.Context, ev event.Event) error {
	if !e.started {
		return ErrNotStarted
	}

	e.stats.Seen++
	if err := event.Validate(ev); err != nil {
		return e.reject(ctx, ev, err)
	}

	current, exists := e.accounts.Get(ev.Client())
	if exists && current.Locked && e.lockPolicy == LockPolicyReject {
		return e.reject(ctx, ev, ErrAccountLocked)
	}

	var (
		out *outcome
		err error
	)
	switch ev := ev.(type) {
	case event.Deposit:
		out, err = e.deposit(ctx, current, ev)
	case event.Withdrawal:
		out, err = e.withdraw(ctx, current, ev)
	case event.Dispute:
		out, err = e.dispute(ctx, current, ev)
	case event.Resolve:
		out, err = e.resolve(ctx, current, ev)
	case event.Chargeback:
		out, err = e.chargeback(ctx, current, ev)
	default:
		err = fmt.Errorf("%w: %T", event.ErrUnknownKind, ev)
	}
	if err != nil {
		return e.reject(ctx, ev, err)
	}

	if out.record {
		if err := e.history.Record(ctx, ev); err != nil {
			return e.reject(ctx, ev, e.storeErr(err))
		}
	}

	e.commit(ctx, ev, out)
	return nil
}

func (e *Engine) deposit(ctx context.Context, current *account.Account, ev event.Deposit) (*outcome, error) {
	if err := e.ensureUnseen(ctx, ev); err != nil {
		return nil, err
	}

	if current == nil {
		return &outcome{next: account.New(ev.ClientID, ev.Amount), opened: true, record: true}, nil
	}

	next := current.Clone()
	next.Available = next.Available.Add(ev.Amount)
	return &outcome{next: next, record: true}, nil
}

func (e *Engine) withdraw(ctx context.Context, current *account.Account, ev event.Withdrawal) (*outcome, error) {
	if current == nil {
		return nil, ErrUnknownAccount
	}
	if err := e.ensureUnseen(ctx, ev); err != nil {
		return nil, err
	}
	if !current.Available.GreaterOrEqual(ev.Amount) {
		return nil, fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, current.Available, ev.Amount)
	}

	next := current.Clone()
	next.Available = next.Available.Sub(ev.Amount)
	return &outcome{next: next, record: true}, nil
}

func (e *Engine) dispute(ctx context.Context, current *account.Account, ev event.Dispute) (*outcome, error) {
	amount, next, err := e.referenced(ctx, current, ev)
	if err != nil {
		return nil, err
	}

	out := &outcome{next: next}
	if next.Available.GreaterOrEqual(amount) {
		next.Available = next.Available.Sub(amount)
		next.Held = next.Held.Add(amount)
		return out, nil
	}

	moved := next.Available
	next.Held = next.Held.Add(moved)
	next.Available = types.Zero()
	out.clamp = clampNotice(ev, amount, moved)
	return out, nil
}

func (e *Engine) resolve(ctx context.Context, current *account.Account, ev event.Resolve) (*outcome, error) {
	amount, next, err := e.referenced(ctx, current, ev)
	if err != nil {
		return nil, err
	}

	out := &outcome{next: next}
	if next.Held.GreaterOrEqual(amount) {
		next.Held = next.Held.Sub(amount)
		next.Available = next.Available.Add(amount)
		return out, nil
	}

	moved := next.Held
	next.Available = next.Available.Add(moved)
	next.Held = types.Zero()
	out.clamp = clampNotice(ev, amount, moved)
	return out, nil
}

func (e *Engine) chargeback(ctx context.Context, current *account.Account, ev event.Chargeback) (*outcome, error) {
	amount, next, err := e.referenced(ctx, current, ev)
	if err != nil {
		return nil, err
	}

	out := &outcome{next: next, locked: !next.Locked}
	next.Locked = true

	if next.Held.GreaterOrEqual(amount) {
		next.Held = next.Held.Sub(amount)
		return out, nil
	}

	moved := next.Held
	next.Held = types.Zero()
	out.clamp = clampNotice(ev, amount, moved)
	return out, nil
}

// referenced resolves a reference event to the original monetary amount
// and a working copy of the account. A reference to an id that is missing,
// or that belongs to another client, is ErrUnknownReferencedEvent.
func (e *Engine) referenced(ctx context.Context, current *account.Account, ev event.Reference) (types.Amount, *account.Account, error) {
	original, ok, err := e.history.Lookup(ctx, ev.Ref())
	if err != nil {
		return types.Amount{}, nil, e.storeErr(err)
	}
	if !ok {
		return types.Amount{}, nil, fmt.Errorf("%w: tx %d", ErrUnknownReferencedEvent, ev.Ref())
	}
	if original.Client() != ev.Client() {
		return types.Amount{}, nil, fmt.Errorf("%w: tx %d belongs to client %d", ErrUnknownReferencedEvent, ev.Ref(), original.Client())
	}
	if current == nil {
		return types.Amount{}, nil, ErrUnknownAccount
	}

	m, ok := original.(event.Monetary)
	if !ok {
		return types.Amount{}, nil, fmt.Errorf("%w: tx %d is a %s", ErrUnknownReferencedEvent, ev.Ref(), original.Kind())
	}

	return m.Value(), current.Clone(), nil
}

func (e *Engine) ensureUnseen(ctx context.Context, ev event.Event) error {
	_, seen, err := e.history.Lookup(ctx, ev.Tx())
	if err != nil {
		return e.storeErr(err)
	}
	if seen {
		return fmt.Errorf("%w: tx %d", ErrDuplicateEvent, ev.Tx())
	}
	return nil
}

func (e *Engine) storeErr(err error) error {
	if errors.Is(err, history.ErrDuplicateEvent) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}

func clampNotice(ev event.Event, requested, moved types.Amount) *plugin.ClampNotice {
	return &plugin.ClampNotice{
		Event:     ev,
		Requested: requested,
		Moved:     moved,
		Shortfall: requested.Sub(moved),
		Reason:    ErrUnderfundedClamp,
	}
}

func (e *Engine) commit(ctx context.Context, ev event.Event, out *outcome) {
	out.next.Touch()
	e.accounts.Set(ev.Client(), out.next)
	after := out.next.Balance()

	e.stats.Applied++
	if out.opened {
		e.stats.AccountsOpened++
		e.plugins.EmitAccountCreated(ctx, after)
	}

	e.logger.Debug("event applied",
		"event", event.Describe(ev),
		"available", after.Available.String(),
		"held", after.Held.String(),
		"locked", after.Locked,
	)
	e.plugins.EmitEventApplied(ctx, ev, after)

	if out.clamp != nil {
		out.clamp.After = after
		e.stats.Clamped++
		e.logger.Warn("underfunded clamp",
			"event", event.Describe(ev),
			"requested", out.clamp.Requested.String(),
			"moved", out.clamp.Moved.String(),
			"shortfall", out.clamp.Shortfall.String(),
			"error", out.clamp.Reason,
		)
		e.plugins.EmitUnderfundedClamp(ctx, *out.clamp)
	}

	if out.locked {
		e.stats.AccountsLocked++
		e.logger.Warn("account locked",
			"client", ev.Client(),
			"tx", ev.Tx(),
		)
		e.plugins.EmitAccountLocked(ctx, ev, after)
	}
}

func (e *Engine) reject(ctx context.Context, ev event.Event, err error) error {
	if ev == nil {
		e.stats.Invalid++
		return &EventError{Err: err}
	}

	e.stats.count(err)
	rej := rejectf(ev, err)

	level := slog.LevelWarn
	if errors.Is(err, ErrStoreFailure) {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, "event rejected",
		"event", event.Describe(ev),
		"error", err,
	)
	e.plugins.EmitEventRejected(ctx, ev, rej)

	return rej
}

// ──────────────────────────────────────────────────
// Read side
// ──────────────────────────────────────────────────

// Account returns the current balance of one client.
func (e *Engine) Account(client uint16) (account.Balance, bool) {
	a, ok := e.accounts.Get(client)
	if !ok {
		return account.Balance{}, false
	}
	return a.Balance(), true
}

// Snapshot returns every account ordered by client id.
func (e *Engine) Snapshot() account.Snapshot {
	balances := make([]account.Balance, 0, e.accounts.Len())
	e.accounts.Scan(func(_ uint16, a *account.Account) bool {
		balances = append(balances, a.Balance())
		return true
	})
	return account.NewSnapshot(balances)
}

// Stats returns the outcome counters so far.
func (e *Engine) Stats() Stats { return e.stats }
