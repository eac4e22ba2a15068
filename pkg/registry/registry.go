// Package registry implements capability registries: name to backend
// descriptor maps mutated by the admin surface and read by nodes during
// execution. Reads see atomic snapshots; a lookup concurrent with an admin
// write never observes a partially written entry.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/arborflow/arbor/pkg/domain"
)

// snapshot is an immutable view: writers build a fresh one and swap the
// pointer, readers dereference without locking.
type snapshot struct {
	caps  map[string]domain.Capability
	order []string
}

func emptySnapshot() *snapshot {
	return &snapshot{caps: map[string]domain.Capability{}}
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		caps:  make(map[string]domain.Capability, len(s.caps)),
		order: make([]string, len(s.order)),
	}
	for k, v := range s.caps {
		next.caps[k] = v
	}
	copy(next.order, s.order)
	return next
}

// InMemory is a copy-on-write capability registry. Get and List never
// block; Put, Remove and SetHealth serialize on a writer mutex and publish
// a new snapshot atomically.
type InMemory struct {
	mu   sync.Mutex // serializes writers only
	snap atomic.Pointer[snapshot]
}

// NewInMemory creates an empty registry.
func NewInMemory() *InMemory {
	r := &InMemory{}
	r.snap.Store(emptySnapshot())
	return r
}

// Get returns a snapshot of the named capability. The returned value is a
// clone; mutating it does not affect the registry.
func (r *InMemory) Get(name string) (domain.Capability, error) {
	s := r.snap.Load()
	cap, ok := s.caps[name]
	if !ok {
		return domain.Capability{}, domain.NewCapabilityNotFound(name)
	}
	if !cap.Enabled {
		return domain.Capability{}, domain.NewCapabilityDisabled(name)
	}
	return cap.Clone(), nil
}

// List returns clones of all capabilities, enabled or not, in insertion
// order.
func (r *InMemory) List() []domain.Capability {
	s := r.snap.Load()
	out := make([]domain.Capability, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.caps[name].Clone())
	}
	return out
}

// Put inserts or replaces a record. A replaced record keeps its original
// insertion position.
func (r *InMemory) Put(cap domain.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.snap.Load().clone()
	if _, exists := next.caps[cap.Name]; !exists {
		next.order = append(next.order, cap.Name)
	}
	next.caps[cap.Name] = cap.Clone()
	r.snap.Store(next)
}

// Remove deletes a record; removing an absent name is a no-op.
func (r *InMemory) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.snap.Load()
	if _, exists := cur.caps[name]; !exists {
		return
	}
	next := cur.clone()
	delete(next.caps, name)
	for i, n := range next.order {
		if n == name {
			next.order = append(next.order[:i], next.order[i+1:]...)
			break
		}
	}
	r.snap.Store(next)
}

// SetHealth updates the availability hint written by the external monitor.
func (r *InMemory) SetHealth(name string, health domain.Health) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.snap.Load()
	cap, ok := cur.caps[name]
	if !ok {
		return domain.NewCapabilityNotFound(name)
	}
	next := cur.clone()
	cap = cap.Clone()
	cap.Health = health
	next.caps[name] = cap
	r.snap.Store(next)
	return nil
}

// replaceAll swaps the whole registry content, preserving the given order.
// Used by file-backed reloads.
func (r *InMemory) replaceAll(caps []domain.Capability) {
	next := emptySnapshot()
	for _, c := range caps {
		if _, exists := next.caps[c.Name]; !exists {
			next.order = append(next.order, c.Name)
		}
		next.caps[c.Name] = c.Clone()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(next)
}
