package nodes

import (
	"context"
	"log/slog"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// ExternalAgent delegates the whole turn to a remote conversational agent
// and folds its reply back into the state. The wire protocol and response
// normalization live in the resolved backend; this node only handles
// capability resolution, retry and bookkeeping.
//
// Config: agent (capability name, required).
type ExternalAgent struct {
	reg      ports.Registry
	backends ports.Backends
	logger   *slog.Logger
}

// NewExternalAgent creates the node.
func NewExternalAgent(reg ports.Registry, backends ports.Backends, logger *slog.Logger) *ExternalAgent {
	return &ExternalAgent{reg: reg, backends: backends, logger: logger}
}

// Type implements ports.Node.
func (n *ExternalAgent) Type() domain.NodeType { return domain.NodeExternalAgent }

// Invoke implements ports.Node.
func (n *ExternalAgent) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	name := spec.ConfigString("agent", "")
	if name == "" {
		return domain.Fail(domain.NewError(domain.CodeValidation,
			"node %q has no agent configured", spec.ID))
	}
	cap, err := lookup(n.reg, name, domain.KindAgent)
	if err != nil {
		return domain.Fail(err)
	}
	if cap.Down() {
		return domain.Fail(domain.NewError(domain.CodeExternalCall,
			"agent %q is marked down", name))
	}
	agent, err := n.backends.Agent(cap)
	if err != nil {
		return domain.Fail(err)
	}

	req := ports.ModelRequest{
		History:   state.History,
		Input:     state.Input,
		Plan:      state.Plan,
		Grounding: state.Citations,
	}

	var resp *ports.ModelResponse
	err = withRetry(ctx, n.logger, name, func() error {
		var callErr error
		resp, callErr = agent.Converse(ctx, req)
		return callErr
	})
	if err != nil {
		return domain.Fail(domain.WrapError(domain.CodeExternalCall, err,
			"agent %q failed", name))
	}

	state.Draft = resp.Text
	state.ToolRequests = append(state.ToolRequests, resp.ToolCalls...)
	state.Usage.Add(resp.Usage)
	return domain.Continue()
}
