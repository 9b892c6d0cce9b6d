// Package registry collects the pending restore actions of active stubs so
// a test-suite teardown can undo every patch in one call.
//
// A Registry instance can be constructed per test for isolation; a default
// process-wide instance backs the ergonomic top-level RestoreAll().
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one registered restore action.
//
// Go functions are not comparable, so registration hands back a UUID handle
// that the owner presents again to unregister.
type Handle string

// Registry is a process-lifetime set of pending restore actions.
//
// Thread-safety: all methods are safe for concurrent use via an internal
// mutex. The registry is the only shared mutable state in the module, so
// access is serialized here rather than in callers.
type Registry struct {
	mu      sync.Mutex
	actions map[Handle]func()
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{actions: make(map[Handle]func())}
}

// Register adds a restore action and returns its handle.
func (r *Registry) Register(restore func()) Handle {
	h := Handle(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[h] = restore
	return h
}

// Unregister removes the action for h. Removing an unknown or already
// removed handle is a no-op, which is what makes a second individual
// Restore on a stub safe.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actions, h)
}

// RestoreAll invokes every currently registered action and clears the set.
//
// The set is snapshotted and cleared before any action runs. Actions are
// independent (each touches a disjoint target/member pair), so invocation
// order is unspecified, and an action that unregisters itself mid-iteration
// cannot corrupt the walk because the walk is over the snapshot.
func (r *Registry) RestoreAll() {
	r.mu.Lock()
	snapshot := make([]func(), 0, len(r.actions))
	for _, restore := range r.actions {
		snapshot = append(snapshot, restore)
	}
	r.actions = make(map[Handle]func())
	r.mu.Unlock()

	for _, restore := range snapshot {
		restore()
	}
}

// Len returns the number of pending restore actions.
// Used for tests and diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

var defaultRegistry = New()

// Default returns the process-wide registry that stubs register with unless
// configured otherwise.
func Default() *Registry {
	return defaultRegistry
}

// RestoreAll restores every stub registered with the default registry.
// Commonly called from a test-suite teardown phase.
func RestoreAll() {
	defaultRegistry.RestoreAll()
}
