package nodes

import (
	"context"
	"log/slog"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// Planner decomposes the input into an ordered task list via the
// configured planner capability. Any unavailability degrades to a
// single-step plan equal to the raw input; planning never fails a request.
//
// Config: planner (capability name).
type Planner struct {
	reg      ports.Registry
	backends ports.Backends
	logger   *slog.Logger
}

// NewPlanner creates the node.
func NewPlanner(reg ports.Registry, backends ports.Backends, logger *slog.Logger) *Planner {
	return &Planner{reg: reg, backends: backends, logger: logger}
}

// Type implements ports.Node.
func (n *Planner) Type() domain.NodeType { return domain.NodePlanner }

// Invoke implements ports.Node.
func (n *Planner) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	degrade := func(reason string, err error) domain.Outcome {
		n.logger.Info("planner unavailable, using single-step plan",
			"reason", reason, "err", err)
		state.Plan = []domain.PlanStep{{Seq: 1, Description: state.Input}}
		state.Annotate(domain.AnnotationUnplanned)
		return domain.Continue()
	}

	name := spec.ConfigString("planner", "")
	if name == "" {
		return degrade("not configured", nil)
	}
	cap, err := lookup(n.reg, name, domain.KindPlanner)
	if err != nil {
		return degrade("lookup", err)
	}
	if cap.Down() {
		return degrade("health hint down", nil)
	}
	planner, err := n.backends.Planner(cap)
	if err != nil {
		return degrade("resolve", err)
	}

	steps, err := planner.Plan(ctx, state.Input)
	if err != nil || len(steps) == 0 {
		return degrade("plan", err)
	}
	state.Plan = steps
	return domain.Continue()
}
