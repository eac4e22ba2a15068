package domain

import "fmt"

// NodeType identifies one of the closed set of node implementations.
type NodeType string

const (
	NodeStart         NodeType = "start"
	NodeIntentRouter  NodeType = "intent_router"
	NodePlanner       NodeType = "planner"
	NodeLLMAgent      NodeType = "llm_agent"
	NodeExternalAgent NodeType = "external_agent"
	NodeToolExecutor  NodeType = "tool_executor"
	NodeGrounding     NodeType = "grounding"
	NodeMemoryStore   NodeType = "memory_store"
	NodeAudit         NodeType = "audit"
	NodeEnd           NodeType = "end"
	NodeErrorHandler  NodeType = "error_handler"
)

var knownNodeTypes = map[NodeType]bool{
	NodeStart: true, NodeIntentRouter: true, NodePlanner: true,
	NodeLLMAgent: true, NodeExternalAgent: true, NodeToolExecutor: true,
	NodeGrounding: true, NodeMemoryStore: true, NodeAudit: true,
	NodeEnd: true, NodeErrorHandler: true,
}

// KnownNodeType reports whether t names one of the implementations above.
func KnownNodeType(t NodeType) bool { return knownNodeTypes[t] }

// RouteCached is the reserved IntentRouter route label for a cache hit.
const RouteCached = "cached"

// NodeSpec describes one node of a topology: its default successor edge,
// labeled branch routes (IntentRouter) and free-form configuration
// (capability names, TTLs, redaction keys).
type NodeSpec struct {
	ID     string            `json:"id" yaml:"id"`
	Type   NodeType          `json:"type" yaml:"type"`
	Next   string            `json:"next,omitempty" yaml:"next,omitempty"`
	Routes map[string]string `json:"routes,omitempty" yaml:"routes,omitempty"`
	Config map[string]any    `json:"config,omitempty" yaml:"config,omitempty"`
}

// ConfigString reads a string config value with a fallback.
func (n NodeSpec) ConfigString(key, fallback string) string {
	if v, ok := n.Config[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// ConfigStrings reads a list config value ([]string or []any of strings).
func (n NodeSpec) ConfigStrings(key string) []string {
	switch v := n.Config[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ConfigInt reads an integer config value with a fallback.
func (n NodeSpec) ConfigInt(key string, fallback int) int {
	switch v := n.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// Topology is the immutable per-agent node graph. It is loaded once per
// execution and never mutated during a run; concurrent requests share it
// read-only.
type Topology struct {
	AgentID      string     `json:"agent" yaml:"agent"`
	DefaultRoute string     `json:"default_route,omitempty" yaml:"default_route,omitempty"`
	Nodes        []NodeSpec `json:"nodes" yaml:"nodes"`
}

// Node returns the spec with the given id.
func (t *Topology) Node(id string) (NodeSpec, bool) {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// first returns the first node of the given type.
func (t *Topology) first(typ NodeType) (NodeSpec, bool) {
	for _, n := range t.Nodes {
		if n.Type == typ {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// StartNode returns the graph entry point.
func (t *Topology) StartNode() (NodeSpec, bool) { return t.first(NodeStart) }

// EndNode returns the terminal node.
func (t *Topology) EndNode() (NodeSpec, bool) { return t.first(NodeEnd) }

// ErrorHandlerNode returns the fault sink every failure redirects to.
func (t *Topology) ErrorHandlerNode() (NodeSpec, bool) { return t.first(NodeErrorHandler) }

// Validate checks structural integrity: unique ids, known types, exactly
// one start and one end, an error handler, and every edge or route target
// resolving to a declared node. All violations are CodeTopologyLoad faults.
func (t *Topology) Validate() error {
	if t.AgentID == "" {
		return NewError(CodeTopologyLoad, "topology has no agent id")
	}
	if len(t.Nodes) == 0 {
		return NewError(CodeTopologyLoad, "topology %q has no nodes", t.AgentID)
	}

	ids := make(map[string]NodeSpec, len(t.Nodes))
	counts := make(map[NodeType]int)
	for _, n := range t.Nodes {
		if n.ID == "" {
			return NewError(CodeTopologyLoad, "topology %q contains a node without id", t.AgentID)
		}
		if !KnownNodeType(n.Type) {
			return NewError(CodeTopologyLoad, "node %q has unknown type %q", n.ID, n.Type)
		}
		if _, dup := ids[n.ID]; dup {
			return NewError(CodeTopologyLoad, "duplicate node id %q", n.ID)
		}
		ids[n.ID] = n
		counts[n.Type]++
	}

	if counts[NodeStart] != 1 {
		return NewError(CodeTopologyLoad, "topology %q needs exactly one start node, has %d", t.AgentID, counts[NodeStart])
	}
	if counts[NodeEnd] != 1 {
		return NewError(CodeTopologyLoad, "topology %q needs exactly one end node, has %d", t.AgentID, counts[NodeEnd])
	}
	if counts[NodeErrorHandler] == 0 {
		return NewError(CodeTopologyLoad, "topology %q has no error handler", t.AgentID)
	}

	for _, n := range t.Nodes {
		if n.Type != NodeEnd && n.Next == "" {
			return NewError(CodeTopologyLoad, "node %q has no successor edge", n.ID)
		}
		if n.Next != "" {
			if _, ok := ids[n.Next]; !ok {
				return NewError(CodeTopologyLoad, "node %q points at undeclared node %q", n.ID, n.Next)
			}
		}
		for label, target := range n.Routes {
			if _, ok := ids[target]; !ok {
				return NewError(CodeTopologyLoad, "route %q of node %q points at undeclared node %q", label, n.ID, target)
			}
		}
	}
	return nil
}

// String implements fmt.Stringer for logging.
func (t *Topology) String() string {
	return fmt.Sprintf("topology(%s, %d nodes)", t.AgentID, len(t.Nodes))
}
