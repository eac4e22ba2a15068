package nodes

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/fingerprint"
	"github.com/arborflow/arbor/pkg/ports"
)

const (
	defaultHistoryLimit = 20
	defaultMaxInput     = 8192
)

// Start validates and normalizes the input, seeds the request identity and
// loads bounded session history for downstream prompts.
//
// Config: history_limit (int), max_input (int).
type Start struct {
	history ports.HistoryStore
	logger  *slog.Logger
}

// NewStart creates the node.
func NewStart(history ports.HistoryStore, logger *slog.Logger) *Start {
	return &Start{history: history, logger: logger}
}

// Type implements ports.Node.
func (n *Start) Type() domain.NodeType { return domain.NodeStart }

// Invoke implements ports.Node.
func (n *Start) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	// Identity first: a rejected request still gets a traceable id in its
	// failure envelope.
	state.RequestID = uuid.NewString()
	if state.Started.IsZero() {
		state.Started = time.Now()
	}

	input := strings.TrimSpace(state.RawInput)
	if input == "" {
		return domain.Fail(domain.NewError(domain.CodeValidation, "input is empty"))
	}
	if max := spec.ConfigInt("max_input", defaultMaxInput); len(input) > max {
		return domain.Fail(domain.NewError(domain.CodeValidation, "input exceeds %d bytes", max))
	}

	state.Input = input
	state.Fingerprint = fingerprint.New(input, state.AgentID)

	if state.SessionID != "" {
		limit := spec.ConfigInt("history_limit", defaultHistoryLimit)
		turns, err := n.history.History(ctx, state.SessionID, limit)
		if err != nil {
			// Missing history narrows the prompt but never blocks the request.
			n.logger.Warn("history load failed", "session", state.SessionID, "err", err)
		} else {
			state.History = turns
		}
	}

	return domain.Continue()
}
