package nodes

import (
	"context"
	"log/slog"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

// LLMAgent produces the draft answer by invoking the configured model
// capability with the accumulated context: system prompt, history, plan
// and grounding. Transient backend faults are retried with backoff; a
// capability marked down is skipped without burning the retry budget.
//
// Config: llm (capability name, required).
type LLMAgent struct {
	reg      ports.Registry
	backends ports.Backends
	logger   *slog.Logger
}

// NewLLMAgent creates the node.
func NewLLMAgent(reg ports.Registry, backends ports.Backends, logger *slog.Logger) *LLMAgent {
	return &LLMAgent{reg: reg, backends: backends, logger: logger}
}

// Type implements ports.Node.
func (n *LLMAgent) Type() domain.NodeType { return domain.NodeLLMAgent }

// Invoke implements ports.Node.
func (n *LLMAgent) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	name := spec.ConfigString("llm", "")
	if name == "" {
		return domain.Fail(domain.NewError(domain.CodeValidation,
			"node %q has no llm configured", spec.ID))
	}
	cap, err := lookup(n.reg, name, domain.KindLLM)
	if err != nil {
		return domain.Fail(err)
	}
	if cap.Down() {
		// Health hint: skip the call instead of waiting out timeouts.
		return domain.Fail(domain.NewError(domain.CodeExternalCall,
			"model %q is marked down", name))
	}
	model, err := n.backends.Model(cap)
	if err != nil {
		return domain.Fail(err)
	}

	system, _ := cap.Backend["system_prompt"].(string)
	req := ports.ModelRequest{
		System:    system,
		History:   state.History,
		Input:     state.Input,
		Plan:      state.Plan,
		Grounding: state.Citations,
	}

	var resp *ports.ModelResponse
	err = withRetry(ctx, n.logger, name, func() error {
		var callErr error
		resp, callErr = model.Generate(ctx, req)
		return callErr
	})
	if err != nil {
		return domain.Fail(domain.WrapError(domain.CodeExternalCall, err,
			"model %q failed", name))
	}

	state.Draft = resp.Text
	state.ToolRequests = append(state.ToolRequests, resp.ToolCalls...)
	state.Usage.Add(resp.Usage)
	return domain.Continue()
}
