package nodes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

const redactedMark = "[redacted]"

// Audit persists the accumulated trail of node transitions for the
// request. Configured sensitive tokens are scrubbed from entry details
// before they leave the process. Sink faults are logged, never fatal.
//
// Config: redact (list of tokens to scrub).
type Audit struct {
	sink   ports.AuditSink
	logger *slog.Logger
}

// NewAudit creates the node.
func NewAudit(sink ports.AuditSink, logger *slog.Logger) *Audit {
	return &Audit{sink: sink, logger: logger}
}

// Type implements ports.Node.
func (n *Audit) Type() domain.NodeType { return domain.NodeAudit }

// Invoke implements ports.Node.
func (n *Audit) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	if len(state.Audit) == 0 {
		return domain.Continue()
	}

	entries := state.Audit
	if tokens := spec.ConfigStrings("redact"); len(tokens) > 0 {
		entries = redact(entries, tokens)
	}

	if err := n.sink.Write(ctx, state.RequestID, entries); err != nil {
		n.logger.Warn("audit write failed", "request", state.RequestID, "err", err)
	}
	return domain.Continue()
}

// redact returns a copy of the trail with every occurrence of a sensitive
// token replaced in the detail fields.
func redact(entries []domain.AuditEntry, tokens []string) []domain.AuditEntry {
	out := make([]domain.AuditEntry, len(entries))
	copy(out, entries)
	for i := range out {
		for _, token := range tokens {
			if token == "" {
				continue
			}
			out[i].Detail = strings.ReplaceAll(out[i].Detail, token, redactedMark)
		}
	}
	return out
}
