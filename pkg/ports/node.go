package ports

import (
	"context"

	"github.com/arborflow/arbor/pkg/domain"
)

// Node is one single-responsibility processing stage. Implementations are
// stateless: all per-request data lives in the ExecutionState, all wiring
// (registries, stores, backends) is injected at construction.
//
// Invoke receives the node's topology spec and the state by transfer; it
// must not retain the state after returning. The context carries the
// per-node timeout set by the engine.
type Node interface {
	// Type names the topology node type this implementation serves.
	Type() domain.NodeType

	// Invoke transforms the state and decides the next edge.
	Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome
}
