// Package common provides the shared contract machinery for scan modules.
package common

import (
	"context"
	"sync"
	"sync/atomic"

	"noctua/internal/core/domain"
	"noctua/internal/core/ports"
	"noctua/internal/platform/errors"
	"noctua/internal/platform/logx"
)

// Base implements the parts of ports.Module that behave identically in
// every module: the listener registry, the sticky error state, the
// cooperative stop check and the event notification path. Modules embed
// *Base and supply their own WatchedEvents, ProducedEvents, Setup and
// HandleEvent on top.
//
// Usage:
//  1. Embed *Base in your module struct and build it with NewBase(name)
//  2. Call Base.Setup from your own Setup before using the environment
//  3. Emit discoveries with Emit (or Notify for pre-built events)
//  4. Poll CheckForStop between work units in long handlers
type Base struct {
	name string

	mu           sync.RWMutex
	env          *ports.ModuleEnv
	listeners    []ports.Module
	outputFilter map[string]bool
	logger       logx.Logger

	errored atomic.Bool
}

// NewBase creates the contract machinery for the named module.
func NewBase(name string) *Base {
	return &Base{
		name:   name,
		logger: logx.NewSilent(),
	}
}

// Name returns the module name.
func (b *Base) Name() string {
	return b.name
}

// WatchedEvents returns the default watch set: everything.
// Modules narrow it by overriding.
func (b *Base) WatchedEvents() []string {
	return []string{domain.WildcardEventType}
}

// ProducedEvents returns the default produced set: nothing.
// Modules that emit events must override.
func (b *Base) ProducedEvents() []string {
	return []string{}
}

// Setup binds the module to a scan environment. Modules that override
// Setup must call this one first.
func (b *Base) Setup(ctx context.Context, env *ports.ModuleEnv, opts map[string]string) error {
	if env == nil {
		return errors.Errorf("module %s: nil scan environment", b.name)
	}

	b.mu.Lock()
	b.env = env
	if env.Logger != nil {
		b.logger = env.Logger.With("module", b.name)
	}
	b.mu.Unlock()

	return nil
}

// Env returns the scan environment bound in Setup, or nil before it.
func (b *Base) Env() *ports.ModuleEnv {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.env
}

// Logger returns the module-scoped logger. Silent until Setup runs.
func (b *Base) Logger() logx.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.logger
}

// RegisterListener adds a module interested in this module's output.
// Duplicate registrations (by name) are ignored.
func (b *Base) RegisterListener(m ports.Module) {
	if m == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.listeners {
		if l.Name() == m.Name() {
			return
		}
	}
	b.listeners = append(b.listeners, m)
}

// Listeners returns a copy of the registered listener set.
func (b *Base) Listeners() []ports.Module {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ports.Module, len(b.listeners))
	copy(out, b.listeners)
	return out
}

// ErrorState reports whether the module tripped its sticky error state.
func (b *Base) ErrorState() bool {
	return b.errored.Load()
}

// TripErrorState marks the module as failed for the rest of the scan.
// There is no way back: the dispatcher skips errored modules.
func (b *Base) TripErrorState() {
	if b.errored.CompareAndSwap(false, true) {
		b.Logger().Warn("module error state tripped, skipping for the rest of the scan")
	}
}

// SetOutputFilter restricts the event types this module may emit.
// An empty or nil filter means no restriction. The root event and
// events of the target's own type always pass.
func (b *Base) SetOutputFilter(types []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(types) == 0 {
		b.outputFilter = nil
		return
	}
	b.outputFilter = make(map[string]bool, len(types))
	for _, t := range types {
		b.outputFilter[t] = true
	}
}

// CheckForStop reports whether the module should abandon its work:
// the module errored, the scan-wide stop flag is up, or the persisted
// scan status reads ABORT-REQUESTED. Long-running handlers must poll
// it between work units.
func (b *Base) CheckForStop(ctx context.Context) bool {
	if b.errored.Load() {
		return true
	}

	env := b.Env()
	if env == nil {
		return false
	}
	if env.Stop != nil && env.Stop.IsSet() {
		return true
	}
	if env.Status != nil {
		status, err := env.Status.ReadScanStatus(ctx, env.ScanID)
		if err == nil && status == domain.ScanStatusAbortRequested {
			return true
		}
	}
	return false
}

// Notify hands a discovered event to the orchestrator sink, applying
// the module's output filter and the duplicate-path suppression: an
// event whose ancestor chain already contains the same type and data
// is persisted for the record but not re-delivered to listeners.
func (b *Base) Notify(ctx context.Context, ev *domain.Event) {
	if ev == nil || ctx.Err() != nil {
		return
	}

	env := b.Env()
	if env == nil || env.Sink == nil {
		b.Logger().Warn("event notified before setup, dropping", "type", ev.Type)
		return
	}

	if !b.passesOutputFilter(ev, env) {
		b.Logger().Debug("event dropped by output filter", "type", ev.Type)
		return
	}

	storeOnly := false
	if env.Arena != nil && env.Arena.PathContains(ev, ev.Type, ev.Data) {
		storeOnly = true
		b.Logger().Debug("duplicate on event path, storing without delivery",
			"type", ev.Type,
			"event", ev.String(),
		)
	}

	env.Sink.Accept(ev, storeOnly)
}

// Emit builds a child event attributed to this module and notifies it.
// Malformed events (empty type or data) are dropped with a debug trace.
func (b *Base) Emit(ctx context.Context, eventType, data string, src *domain.Event) {
	ev, err := domain.NewEvent(eventType, data, b.name, src)
	if err != nil {
		b.Logger().Debug("discarding malformed event", "type", eventType, "error", err.Error())
		return
	}
	b.Notify(ctx, ev)
}

// EmitWithConfidence is Emit with an explicit confidence tier for data
// the module could not verify directly (or verified outright). An
// out-of-range value keeps the event's default and logs a debug trace.
func (b *Base) EmitWithConfidence(ctx context.Context, eventType, data string, confidence int, src *domain.Event) {
	ev, err := domain.NewEvent(eventType, data, b.name, src)
	if err != nil {
		b.Logger().Debug("discarding malformed event", "type", eventType, "error", err.Error())
		return
	}
	if err := ev.SetConfidence(confidence); err != nil {
		b.Logger().Debug("ignoring invalid confidence", "type", eventType, "value", confidence)
	}
	b.Notify(ctx, ev)
}

// Close releases module resources. The default is a no-op; modules
// holding connections override it. Safe to call multiple times.
func (b *Base) Close() error {
	return nil
}

// passesOutputFilter applies the configured type restriction. The root
// event and the target's own event type are exempt so restricted runs
// still carry scan plumbing and target identity.
func (b *Base) passesOutputFilter(ev *domain.Event, env *ports.ModuleEnv) bool {
	b.mu.RLock()
	filter := b.outputFilter
	b.mu.RUnlock()

	if len(filter) == 0 {
		return true
	}
	if ev.Type == domain.EventTypeRoot {
		return true
	}
	if env.Target != nil && ev.Type == string(env.Target.Type()) {
		return true
	}
	return filter[ev.Type]
}
