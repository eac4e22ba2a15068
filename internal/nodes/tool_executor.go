package nodes

import (
	"context"
	"log/slog"
	"time"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

const defaultCallTimeout = 10 * time.Second

// ToolExecutor runs the tool calls proposed by the reasoning stage,
// sequentially and in order. Every call produces a ToolResult: an unknown,
// disabled or failing tool is recorded as a structured error result and the
// remaining calls still run. The node itself never fails the request.
//
// Config: call_timeout (duration string, per call).
type ToolExecutor struct {
	reg      ports.Registry
	backends ports.Backends
	logger   *slog.Logger
}

// NewToolExecutor creates the node.
func NewToolExecutor(reg ports.Registry, backends ports.Backends, logger *slog.Logger) *ToolExecutor {
	return &ToolExecutor{reg: reg, backends: backends, logger: logger}
}

// Type implements ports.Node.
func (n *ToolExecutor) Type() domain.NodeType { return domain.NodeToolExecutor }

// Invoke implements ports.Node.
func (n *ToolExecutor) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	timeout := defaultCallTimeout
	if raw := spec.ConfigString("call_timeout", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	for _, call := range state.ToolRequests {
		result := n.run(ctx, call, timeout)
		state.ToolResults = append(state.ToolResults, result)
		if result.Status != "ok" {
			state.Annotate(domain.AnnotationIncomplete)
			n.logger.Warn("tool call failed",
				"tool", call.Name, "code", result.Code, "err", result.Error)
		}
	}
	return domain.Continue()
}

// run executes one tool call under its own deadline.
func (n *ToolExecutor) run(ctx context.Context, call domain.ToolRequest, timeout time.Duration) domain.ToolResult {
	started := time.Now()
	fail := func(err error) domain.ToolResult {
		return domain.ToolResult{
			ID:       call.ID,
			Name:     call.Name,
			Status:   "error",
			Code:     domain.CodeOf(err),
			Error:    err.Error(),
			Duration: time.Since(started),
		}
	}

	cap, err := lookup(n.reg, call.Name, domain.KindTool)
	if err != nil {
		return fail(err)
	}
	if cap.Down() {
		return fail(domain.NewError(domain.CodeExternalCall,
			"tool %q is marked down", call.Name))
	}
	tool, err := n.backends.Tool(cap)
	if err != nil {
		return fail(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out any
	err = withRetry(callCtx, n.logger, call.Name, func() error {
		var callErr error
		out, callErr = tool.Execute(callCtx, call.Args)
		return callErr
	})
	if err != nil {
		if callCtx.Err() != nil {
			err = domain.WrapError(domain.CodeExternalCall, err,
				"tool %q timed out", call.Name)
		}
		return fail(err)
	}

	return domain.ToolResult{
		ID:       call.ID,
		Name:     call.Name,
		Status:   "ok",
		Output:   out,
		Duration: time.Since(started),
	}
}
