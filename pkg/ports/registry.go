package ports

import "github.com/arborflow/arbor/pkg/domain"

// Registry is the read side of a capability registry, the only side the
// execution core consumes. Implementations must provide atomic snapshot
// semantics: a Get or List concurrent with an admin write never observes
// a partially written entry.
type Registry interface {
	// Get returns a snapshot of the named capability.
	// Fails with CodeCapabilityNotFound or CodeCapabilityDisabled.
	Get(name string) (domain.Capability, error)

	// List returns snapshots of all capabilities in insertion order.
	List() []domain.Capability
}

// AdminRegistry adds the mutation surface driven by the external admin
// tooling and the health hints written by the external monitor. Writes are
// visible to subsequently started lookups only.
type AdminRegistry interface {
	Registry

	// Put inserts or replaces a capability record.
	Put(cap domain.Capability)

	// Remove deletes a capability record; removing an absent name is a no-op.
	Remove(name string)

	// SetHealth updates the availability hint of an existing record.
	SetHealth(name string, health domain.Health) error
}

// Reloadable is implemented by registries backed by an external store.
type Reloadable interface {
	// Reload re-reads the backing store, replacing the current snapshot.
	Reload() error
}
