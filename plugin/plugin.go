// Package plugin provides the hook system engines emit into. A plugin
// implements Plugin plus any subset of the hook interfaces below; the
// Registry discovers which at registration time.
package plugin

import (
	"context"

	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Event hooks
// ──────────────────────────────────────────────────

// OnEventApplied is called after an event changed an account and was
// committed. after is the account as it now stands.
type OnEventApplied interface {
	Plugin
	OnEventApplied(ctx context.Context, ev event.Event, after account.Balance) error
}

// OnEventRejected is called when an event was not applied. The account is
// unchanged.
type OnEventRejected interface {
	Plugin
	OnEventRejected(ctx context.Context, ev event.Event, reason error) error
}

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called when a deposit opens a new account.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, opened account.Balance) error
}

// OnAccountLocked is called when a chargeback locks an account.
type OnAccountLocked interface {
	Plugin
	OnAccountLocked(ctx context.Context, ev event.Event, locked account.Balance) error
}

// OnUnderfundedClamp is called when a dispute, resolve or chargeback found
// less than the referenced amount in the balance it draws from and moved
// the whole balance instead.
type OnUnderfundedClamp interface {
	Plugin
	OnUnderfundedClamp(ctx context.Context, notice ClampNotice) error
}

// ClampNotice describes one clamp.
type ClampNotice struct {
	Event event.Event
	// Requested is the referenced event's amount.
	Requested types.Amount
	// Moved is what was actually moved: the whole source balance.
	Moved types.Amount
	// Shortfall is Requested - Moved.
	Shortfall types.Amount
	// Reason is the error the engine logs for the clamp.
	Reason error
	After  account.Balance
}
