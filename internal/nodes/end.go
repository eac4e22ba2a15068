package nodes

import (
	"context"
	"log/slog"

	"github.com/arborflow/arbor/pkg/domain"
)

// End assembles the final response envelope. A request that carries a
// failure surfaces the safe message and the error code; everything else
// returns the draft with its citations and annotations.
type End struct {
	logger *slog.Logger
}

// NewEnd creates the node.
func NewEnd(logger *slog.Logger) *End {
	return &End{logger: logger}
}

// Type implements ports.Node.
func (n *End) Type() domain.NodeType { return domain.NodeEnd }

// Invoke implements ports.Node.
func (n *End) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	sources := state.Citations
	if sources == nil {
		// Keep the field an empty list on the wire, never null.
		sources = []domain.Citation{}
	}
	resp := &domain.Response{
		Answer:      state.Draft,
		Sources:     sources,
		TraceID:     state.RequestID,
		TimingMS:    state.Elapsed().Milliseconds(),
		Annotations: state.Annotations,
	}

	if state.Failure != nil {
		resp.Answer = state.SafeMessage
		resp.Error = domain.NewError(state.Failure.Code, "%s", state.SafeMessage)
	}

	state.Final = resp
	return domain.Continue()
}
