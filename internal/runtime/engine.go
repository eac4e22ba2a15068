// Package runtime contains the execution engine: it loads an agent's
// topology, walks the node graph one step at a time and owns the
// cross-cutting guarantees nodes rely on: per-node timeouts, panic
// containment, failure redirection, audit entries and bounded
// termination.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

const defaultNodeTimeout = 30 * time.Second

// failureDetour bounds the failure path: error handler, optionally audit,
// then end.
const failureDetour = 4

// Engine walks topologies. It is stateless across requests and safe for
// concurrent use; all per-request data lives in the ExecutionState.
type Engine struct {
	loader      ports.TopologyLoader
	nodes       map[domain.NodeType]ports.Node
	logger      *slog.Logger
	nodeTimeout time.Duration
	metrics     *metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithNodeTimeout bounds the wall time of a single node invocation.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.nodeTimeout = d
		}
	}
}

// WithMetrics registers engine collectors. Without this option the
// engine records nothing.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = newMetrics(reg) }
}

// NewEngine creates an engine over the given loader and node set.
func NewEngine(loader ports.TopologyLoader, nodeSet []ports.Node, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		loader:      loader,
		nodes:       make(map[domain.NodeType]ports.Node, len(nodeSet)),
		logger:      logger,
		nodeTimeout: defaultNodeTimeout,
	}
	for _, n := range nodeSet {
		e.nodes[n.Type()] = n
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one request through the agent's topology and returns the
// final response envelope. A topology that cannot be loaded or validated
// is reported as an error before any node runs; every other fault is
// absorbed by the graph's error handler and lands in the envelope.
func (e *Engine) Execute(ctx context.Context, agentID, input string, sess domain.SessionContext) (*domain.Response, error) {
	topo, err := e.loader.Load(agentID)
	if err != nil {
		e.metrics.observeRequest(agentID, "load_error")
		return nil, domain.WrapError(domain.CodeTopologyLoad, err,
			"loading topology for agent %q", agentID)
	}
	if err := topo.Validate(); err != nil {
		e.metrics.observeRequest(agentID, "load_error")
		return nil, err
	}

	state := domain.NewExecutionState(agentID, input, sess)
	resp, err := e.walk(ctx, topo, state)
	if err != nil {
		e.metrics.observeRequest(agentID, "aborted")
		return nil, err
	}

	status := "ok"
	if resp.Error != nil {
		status = "failed"
	}
	e.metrics.observeRequest(agentID, status)
	return resp, nil
}

// Inspect returns the validated topology for an agent, for tooling and
// the validate command.
func (e *Engine) Inspect(agentID string) (*domain.Topology, error) {
	topo, err := e.loader.Load(agentID)
	if err != nil {
		return nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return topo, nil
}

// walk schedules nodes from start until the end node has run. The step
// budget is the node count plus the failure detour; exceeding it means
// the graph loops and the whole call fails with a cycle fault.
func (e *Engine) walk(ctx context.Context, topo *domain.Topology, state *domain.ExecutionState) (*domain.Response, error) {
	current, _ := topo.StartNode()
	budget := len(topo.Nodes) + 2
	handlingFailure := false

	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.WrapError(domain.CodeInternal, err,
				"request canceled at node %q", current.ID)
		}
		if steps >= budget {
			// A looping graph is an engine-level fault like a load failure:
			// it fails the whole call instead of landing in the envelope.
			return nil, domain.NewError(domain.CodeTopologyCycle,
				"step budget of %d exhausted at node %q", budget, current.ID)
		}

		outcome := e.step(ctx, topo, current, state)

		if outcome.Failed() {
			err := outcome.Err().WithNode(current.ID)
			e.logger.Warn("node failed", "node", current.ID, "code", err.Code, "err", err.Message)
			if handlingFailure {
				// A fault inside the failure path itself: give up on the
				// graph and return a generic envelope.
				return genericFailureResponse(state), nil
			}
			handlingFailure = true
			state.Failure = failureFrom(current.ID, err)
			current = e.failTarget(topo)
			budget = steps + failureDetour
			continue
		}

		if current.Type == domain.NodeEnd {
			if state.Final == nil {
				return nil, domain.NewError(domain.CodeInternal,
					"end node %q produced no response", current.ID)
			}
			return state.Final, nil
		}

		nextID := current.Next
		if redirect := outcome.Next(); redirect != "" {
			nextID = redirect
		}
		next, ok := topo.Node(nextID)
		if !ok {
			// Validation guarantees declared edges; only a redirect to an
			// undeclared id can land here.
			if handlingFailure {
				return genericFailureResponse(state), nil
			}
			handlingFailure = true
			state.Failure = failureFrom(current.ID, domain.NewError(domain.CodeInternal,
				"node %q redirected to undeclared node %q", current.ID, nextID))
			current = e.failTarget(topo)
			budget = steps + failureDetour
			continue
		}
		current = next
	}
}

// step dispatches one node under the engine's guarantees: a per-node
// deadline, panic containment and an audit entry for the transition.
func (e *Engine) step(ctx context.Context, topo *domain.Topology, spec domain.NodeSpec, state *domain.ExecutionState) (outcome domain.Outcome) {
	node, ok := e.nodes[spec.Type]
	if !ok {
		return domain.Fail(domain.NewError(domain.CodeInternal,
			"no implementation for node type %q", spec.Type))
	}

	if spec.Type == domain.NodeIntentRouter && topo.DefaultRoute != "" {
		spec = withDefaultRoute(spec, topo.DefaultRoute)
	}

	nodeCtx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	defer cancel()

	started := time.Now()
	defer func() {
		duration := time.Since(started)
		e.metrics.observeStep(string(spec.Type), duration)

		if r := recover(); r != nil {
			e.logger.Error("node panicked", "node", spec.ID, "panic", fmt.Sprint(r))
			outcome = domain.Fail(domain.NewError(domain.CodeInternal,
				"node %q panicked: %v", spec.ID, r))
		}

		entry := domain.AuditEntry{Node: spec.ID, Started: started, Duration: duration}
		switch {
		case outcome.Failed():
			entry.Status = "failed"
			entry.Detail = outcome.Err().Error()
			if nodeCtx.Err() == context.DeadlineExceeded {
				entry.Status = "timeout"
			}
		case outcome.Next() != "":
			entry.Status = "redirect"
			entry.Detail = outcome.Next()
		default:
			entry.Status = "ok"
		}
		state.AppendAudit(entry)
	}()

	outcome = node.Invoke(nodeCtx, spec, state)
	if outcome.Failed() && nodeCtx.Err() == context.DeadlineExceeded {
		outcome = domain.Fail(domain.WrapError(domain.CodeExternalCall, outcome.Err(),
			"node %q exceeded its %s deadline", spec.ID, e.nodeTimeout))
	}
	return outcome
}

// failTarget returns the graph's error handler, which validation
// guarantees to exist.
func (e *Engine) failTarget(topo *domain.Topology) domain.NodeSpec {
	handler, _ := topo.ErrorHandlerNode()
	return handler
}

// withDefaultRoute clones the spec config and seeds the topology-level
// default route. The clone keeps the shared topology immutable.
func withDefaultRoute(spec domain.NodeSpec, route string) domain.NodeSpec {
	cfg := make(map[string]any, len(spec.Config)+1)
	for k, v := range spec.Config {
		cfg[k] = v
	}
	if _, ok := cfg["default_route"]; !ok {
		cfg["default_route"] = route
	}
	spec.Config = cfg
	return spec
}

func failureFrom(nodeID string, err *domain.Error) *domain.Failure {
	return &domain.Failure{Node: nodeID, Code: err.Code, Message: err.Message}
}

// genericFailureResponse is the last-resort envelope when the failure
// path itself broke.
func genericFailureResponse(state *domain.ExecutionState) *domain.Response {
	return &domain.Response{
		Answer:      "Something went wrong while handling your request. Please try again.",
		TraceID:     state.RequestID,
		TimingMS:    state.Elapsed().Milliseconds(),
		Annotations: []string{domain.AnnotationError},
		Error:       domain.NewError(domain.CodeInternal, "request failed"),
	}
}
