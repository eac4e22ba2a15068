// Package nodes implements the closed set of processing stages a topology
// can schedule: Start, IntentRouter, Planner, LLMAgent, ExternalAgent,
// ToolExecutor, Grounding, MemoryStore, Audit, End and ErrorHandler.
//
// Every node is stateless: per-request data lives in the ExecutionState,
// wiring is injected at construction. Recoverable conditions degrade and
// annotate; only unrecoverable faults escalate through Outcome.Fail.
package nodes

import (
	"context"
	"log/slog"
	"time"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 150 * time.Millisecond
)

// lookup resolves a capability and checks its kind. The returned record is
// the snapshot this node keeps for the rest of the request.
func lookup(reg ports.Registry, name string, kind domain.CapabilityKind) (domain.Capability, error) {
	cap, err := reg.Get(name)
	if err != nil {
		return domain.Capability{}, err
	}
	if cap.Kind != kind {
		return domain.Capability{}, domain.NewError(domain.CodeInternal,
			"capability %q is a %s, expected %s", name, cap.Kind, kind)
	}
	return cap, nil
}

// withRetry runs call up to retryAttempts times, backing off linearly
// between transient faults. Non-transient faults and context cancellation
// end the loop immediately.
func withRetry(ctx context.Context, logger *slog.Logger, label string, call func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = call()
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt == retryAttempts {
			return err
		}
		logger.Debug("transient backend fault, retrying",
			"call", label, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * retryBaseDelay):
		}
	}
	return err
}

// All constructs the full node set for an engine.
func All(
	reg ports.Registry,
	backends ports.Backends,
	history ports.HistoryStore,
	cache ports.ResponseCache,
	audit ports.AuditSink,
	logger *slog.Logger,
) []ports.Node {
	return []ports.Node{
		NewStart(history, logger),
		NewIntentRouter(reg, backends, cache, logger),
		NewPlanner(reg, backends, logger),
		NewLLMAgent(reg, backends, logger),
		NewExternalAgent(reg, backends, logger),
		NewToolExecutor(reg, backends, logger),
		NewGrounding(reg, backends, logger),
		NewMemoryStore(history, cache, logger),
		NewAudit(audit, logger),
		NewEnd(logger),
		NewErrorHandler(logger),
	}
}
