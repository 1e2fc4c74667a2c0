// Package audithook bridges engine lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter, or use
// LogRecorder to write the trail through a structured logger.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/id"
	"github.com/xraph/clearing/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnInit             = (*Extension)(nil)
	_ plugin.OnShutdown         = (*Extension)(nil)
	_ plugin.OnEventRejected    = (*Extension)(nil)
	_ plugin.OnAccountCreated   = (*Extension)(nil)
	_ plugin.OnAccountLocked    = (*Extension)(nil)
	_ plugin.OnUnderfundedClamp = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	ID         id.AuditID     `json:"id"`
	RunID      string         `json:"run_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes each audit event as one structured log record.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityError, SeverityCritical:
			level = slog.LevelError
		}
		logger.Log(ctx, level, "audit",
			"audit_id", evt.ID.String(),
			"run_id", evt.RunID,
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"reason", evt.Reason,
			"metadata", evt.Metadata,
		)
		return nil
	})
}

// runIdentified is satisfied by the engine handed to OnInit.
type runIdentified interface {
	RunID() id.ID
}

// Extension bridges engine lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger

	mu    sync.RWMutex
	runID string
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit implements plugin.OnInit.
func (e *Extension) OnInit(ctx context.Context, engine any) error {
	if r, ok := engine.(runIdentified); ok {
		e.mu.Lock()
		e.runID = r.RunID().String()
		e.mu.Unlock()
	}
	return e.record(ctx, ActionRunStarted, SeverityInfo, OutcomeSuccess,
		ResourceRun, e.currentRun(), CategoryRun, nil,
	)
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	return e.record(ctx, ActionRunFinished, SeverityInfo, OutcomeSuccess,
		ResourceRun, e.currentRun(), CategoryRun, nil,
	)
}

func (e *Extension) currentRun() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, opened account.Balance) error {
	return e.record(ctx, ActionAccountOpened, SeverityInfo, OutcomeSuccess,
		ResourceAccount, clientID(opened.Client), CategoryAccount, nil,
		"available", opened.Available.String(),
	)
}

// OnAccountLocked implements plugin.OnAccountLocked.
func (e *Extension) OnAccountLocked(ctx context.Context, ev event.Event, locked account.Balance) error {
	return e.record(ctx, ActionAccountLocked, SeverityCritical, OutcomeSuccess,
		ResourceAccount, clientID(locked.Client), CategoryAccount, nil,
		"tx", ev.Tx(),
		"available", locked.Available.String(),
		"held", locked.Held.String(),
	)
}

// ──────────────────────────────────────────────────
// Event hooks
// ──────────────────────────────────────────────────

// OnEventRejected implements plugin.OnEventRejected.
func (e *Extension) OnEventRejected(ctx context.Context, ev event.Event, reason error) error {
	return e.record(ctx, ActionEventRejected, SeverityWarning, OutcomeFailure,
		ResourceEvent, txID(ev.Tx()), CategoryIntegrity, reason,
		"kind", ev.Kind().String(),
		"client", ev.Client(),
	)
}

// OnUnderfundedClamp implements plugin.OnUnderfundedClamp.
func (e *Extension) OnUnderfundedClamp(ctx context.Context, n plugin.ClampNotice) error {
	return e.record(ctx, ActionBalanceClamped, SeverityWarning, OutcomePartial,
		ResourceEvent, txID(n.Event.Tx()), CategoryIntegrity, n.Reason,
		"kind", n.Event.Kind().String(),
		"client", n.Event.Client(),
		"requested", n.Requested.String(),
		"moved", n.Moved.String(),
		"shortfall", n.Shortfall.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func clientID(c uint16) string { return fmt.Sprintf("client:%d", c) }

func txID(tx uint32) string { return fmt.Sprintf("tx:%d", tx) }

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID(),
		RunID:      e.currentRun(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
