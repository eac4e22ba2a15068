package nodes

import (
	"context"
	"log/slog"

	"github.com/arborflow/arbor/pkg/domain"
)

// ErrorHandler converts the recorded failure into a user-safe message.
// The full fault stays in the log and the audit trail; the message never
// carries backend names, credentials or internal error text. This node
// must not fail: the engine relies on it always continuing toward End.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates the node.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Type implements ports.Node.
func (n *ErrorHandler) Type() domain.NodeType { return domain.NodeErrorHandler }

// Invoke implements ports.Node.
func (n *ErrorHandler) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	if state.Failure == nil {
		// Reached without a recorded fault; keep the envelope honest.
		state.Failure = &domain.Failure{
			Node:    spec.ID,
			Code:    domain.CodeInternal,
			Message: "error handler reached without failure",
		}
	}

	state.SafeMessage = safeMessage(state.Failure.Code)
	state.Annotate(domain.AnnotationError)
	n.logger.Error("request failed",
		"request", state.RequestID,
		"node", state.Failure.Node,
		"code", state.Failure.Code,
		"err", state.Failure.Message)
	return domain.Continue()
}

// safeMessage maps an error code to text fit for an end user.
func safeMessage(code domain.Code) string {
	switch code {
	case domain.CodeValidation:
		return "Your request could not be understood. Please rephrase and try again."
	case domain.CodeCapabilityNotFound, domain.CodeCapabilityDisabled:
		return "A required capability is currently unavailable. Please try again later."
	case domain.CodeExternalCall:
		return "An upstream service did not respond in time. Please try again."
	case domain.CodeTopologyLoad, domain.CodeTopologyCycle:
		return "This agent is misconfigured. Please contact the operator."
	default:
		return "Something went wrong while handling your request. Please try again."
	}
}
