// Package observability provides a metrics extension that records engine
// lifecycle counts via a MetricFactory.
package observability

import (
	"context"
	"errors"

	"github.com/xraph/clearing"
	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnEventApplied     = (*MetricsExtension)(nil)
	_ plugin.OnEventRejected    = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated   = (*MetricsExtension)(nil)
	_ plugin.OnAccountLocked    = (*MetricsExtension)(nil)
	_ plugin.OnUnderfundedClamp = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide event metrics.
// Register it as a plugin to track replay outcomes.
type MetricsExtension struct {
	factory MetricFactory

	// Event metrics
	EventsApplied map[event.Kind]Counter
	DepositAmount Histogram

	// Rejection metrics
	RejectedFunds     Counter
	RejectedReference Counter
	RejectedDuplicate Counter
	RejectedOther     Counter

	// Account metrics
	AccountsOpened Counter
	AccountsLocked Counter

	// Clamp metrics
	Clamps         Counter
	ClampShortfall Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	m := &MetricsExtension{
		factory:       factory,
		EventsApplied: make(map[event.Kind]Counter, len(event.Kinds())),
		DepositAmount: factory.Histogram("clearing.deposit.amount"),

		RejectedFunds:     factory.Counter("clearing.rejected.insufficient_funds"),
		RejectedReference: factory.Counter("clearing.rejected.unknown_reference"),
		RejectedDuplicate: factory.Counter("clearing.rejected.duplicate"),
		RejectedOther:     factory.Counter("clearing.rejected.other"),

		AccountsOpened: factory.Counter("clearing.account.opened"),
		AccountsLocked: factory.Counter("clearing.account.locked"),

		Clamps:         factory.Counter("clearing.clamp"),
		ClampShortfall: factory.Histogram("clearing.clamp.shortfall"),
	}
	for _, k := range event.Kinds() {
		m.EventsApplied[k] = factory.Counter("clearing.event." + k.String() + ".applied")
	}
	return m
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnEventApplied implements plugin.OnEventApplied.
func (m *MetricsExtension) OnEventApplied(_ context.Context, ev event.Event, _ account.Balance) error {
	if c, ok := m.EventsApplied[ev.Kind()]; ok {
		c.Inc()
	}
	if d, ok := ev.(event.Deposit); ok {
		m.DepositAmount.Observe(d.Amount.Decimal().InexactFloat64())
	}
	return nil
}

// OnEventRejected implements plugin.OnEventRejected.
func (m *MetricsExtension) OnEventRejected(_ context.Context, _ event.Event, reason error) error {
	switch {
	case errors.Is(reason, clearing.ErrDuplicateEvent):
		m.RejectedDuplicate.Inc()
	case errors.Is(reason, clearing.ErrInsufficientFunds):
		m.RejectedFunds.Inc()
	case errors.Is(reason, clearing.ErrUnknownReferencedEvent):
		m.RejectedReference.Inc()
	default:
		m.RejectedOther.Inc()
	}
	return nil
}

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ account.Balance) error {
	m.AccountsOpened.Inc()
	return nil
}

// OnAccountLocked implements plugin.OnAccountLocked.
func (m *MetricsExtension) OnAccountLocked(_ context.Context, _ event.Event, _ account.Balance) error {
	m.AccountsLocked.Inc()
	return nil
}

// OnUnderfundedClamp implements plugin.OnUnderfundedClamp.
func (m *MetricsExtension) OnUnderfundedClamp(_ context.Context, n plugin.ClampNotice) error {
	m.Clamps.Inc()
	m.ClampShortfall.Observe(n.Shortfall.Decimal().InexactFloat64())
	return nil
}
