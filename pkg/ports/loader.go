package ports

import (
	"context"

	"github.com/arborflow/arbor/pkg/domain"
)

// TopologyLoader retrieves per-agent node graphs from the admin-managed
// store. Loaded topologies are immutable; the engine validates them before
// any node runs.
type TopologyLoader interface {
	// Load returns the topology for an agent.
	// Fails with CodeTopologyLoad if the agent is unknown.
	Load(agentID string) (*domain.Topology, error)

	// Agents lists the agent ids with a stored topology.
	Agents() ([]string, error)
}

// Watchable is implemented by loaders and registries that can signal
// backend changes, typically for hot reload.
type Watchable interface {
	// Watch returns a channel signaled whenever the backing store changes.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
