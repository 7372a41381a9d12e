// Package registry maps inference model ids to their callables. The
// registry is a constructed object handed to the dispatcher and the
// handlers at startup; registration happens explicitly during
// composition in cmd/server, never as an import side effect.
package registry

import "sync"

// ModelFunc executes one inference run. The returned value must be JSON
// serializable because it travels back to clients through the task
// status endpoint. A returned error marks the run as a transient
// failure, which the dispatcher may retry.
type ModelFunc func() (any, error)

// Registry is safe for concurrent use. Lookups happen on every dispatch
// while registration only happens at startup, so a RWMutex fits.
type Registry struct {
	mu  sync.RWMutex
	fns map[uint64]ModelFunc
}

func New() *Registry {
	return &Registry{fns: make(map[uint64]ModelFunc)}
}

// Register binds fn to the given model id, replacing any previous
// binding.
func (r *Registry) Register(id uint64, fn ModelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[id] = fn
}

// Lookup returns the callable for a model id, with ok=false when the id
// is not registered.
func (r *Registry) Lookup(id uint64) (ModelFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[id]
	return fn, ok
}

// Has reports whether a model id is registered.
func (r *Registry) Has(id uint64) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IDs returns the registered model ids in unspecified order.
func (r *Registry) IDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.fns))
	for id := range r.fns {
		ids = append(ids, id)
	}
	return ids
}
