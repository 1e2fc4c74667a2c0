package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/clearing/account"
	"github.com/xraph/clearing/event"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages registered plugins and dispatches hooks to them in
// registration order. Hook errors are logged, never returned: a failing
// plugin cannot change the outcome of an event.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onEventApplied     []OnEventApplied
	onEventRejected    []OnEventRejected
	onAccountCreated   []OnAccountCreated
	onAccountLocked    []OnAccountLocked
	onUnderfundedClamp []OnUnderfundedClamp
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout. Non-positive values keep
// the current timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEventApplied); ok {
		r.onEventApplied = append(r.onEventApplied, v)
	}
	if v, ok := p.(OnEventRejected); ok {
		r.onEventRejected = append(r.onEventRejected, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnAccountLocked); ok {
		r.onAccountLocked = append(r.onAccountLocked, v)
	}
	if v, ok := p.(OnUnderfundedClamp); ok {
		r.onUnderfundedClamp = append(r.onUnderfundedClamp, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces lists the hook interfaces p implements.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	check := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	check(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	check(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	check(reflect.TypeOf((*OnEventApplied)(nil)).Elem(), "OnEventApplied")
	check(reflect.TypeOf((*OnEventRejected)(nil)).Elem(), "OnEventRejected")
	check(reflect.TypeOf((*OnAccountCreated)(nil)).Elem(), "OnAccountCreated")
	check(reflect.TypeOf((*OnAccountLocked)(nil)).Elem(), "OnAccountLocked")
	check(reflect.TypeOf((*OnUnderfundedClamp)(nil)).Elem(), "OnUnderfundedClamp")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Emission
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitEventApplied emits an applied event.
func (r *Registry) EmitEventApplied(ctx context.Context, ev event.Event, after account.Balance) {
	r.mu.RLock()
	plugins := r.onEventApplied
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnEventApplied", func() error {
			return p.OnEventApplied(ctx, ev, after)
		})
	}
}

// EmitEventRejected emits a rejected event.
func (r *Registry) EmitEventRejected(ctx context.Context, ev event.Event, reason error) {
	r.mu.RLock()
	plugins := r.onEventRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnEventRejected", func() error {
			return p.OnEventRejected(ctx, ev, reason)
		})
	}
}

// EmitAccountCreated emits an account opening.
func (r *Registry) EmitAccountCreated(ctx context.Context, opened account.Balance) {
	r.mu.RLock()
	plugins := r.onAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnAccountCreated", func() error {
			return p.OnAccountCreated(ctx, opened)
		})
	}
}

// EmitAccountLocked emits an account lock.
func (r *Registry) EmitAccountLocked(ctx context.Context, ev event.Event, locked account.Balance) {
	r.mu.RLock()
	plugins := r.onAccountLocked
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnAccountLocked", func() error {
			return p.OnAccountLocked(ctx, ev, locked)
		})
	}
}

// EmitUnderfundedClamp emits a clamp notice.
func (r *Registry) EmitUnderfundedClamp(ctx context.Context, notice ClampNotice) {
	r.mu.RLock()
	plugins := r.onUnderfundedClamp
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnUnderfundedClamp", func() error {
			return p.OnUnderfundedClamp(ctx, notice)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin hook failed",
			"plugin", pluginName,
			"hook", hook,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never stall the replay.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
