package domain

// CapabilityKind enumerates the categories of swappable backends nodes can
// resolve through a registry.
type CapabilityKind string

const (
	KindLLM        CapabilityKind = "llm"
	KindTool       CapabilityKind = "tool"
	KindAgent      CapabilityKind = "agent"
	KindRouter     CapabilityKind = "router"
	KindPlanner    CapabilityKind = "planner"
	KindDataSource CapabilityKind = "datasource"
	KindCredential CapabilityKind = "credential"
)

// Health is the availability hint maintained by the external monitor.
// A "down" hint lets nodes skip a capability fast instead of exhausting
// the full call timeout.
type Health string

const (
	HealthUp      Health = "up"
	HealthDown    Health = "down"
	HealthUnknown Health = "unknown"
)

// Capability is one named backend record as the admin surface stores it.
// Backend is a free-form descriptor decoded by the backend resolver
// (provider name, model id, URL, rule set, ...). During execution a node
// keeps the snapshot it received from Get; admin mutation is only visible
// to lookups that happen afterwards.
type Capability struct {
	Name          string         `json:"name" yaml:"name"`
	Kind          CapabilityKind `json:"kind" yaml:"kind"`
	Enabled       bool           `json:"enabled" yaml:"enabled"`
	Health        Health         `json:"health,omitempty" yaml:"health,omitempty"`
	CredentialRef string         `json:"credential_ref,omitempty" yaml:"credential_ref,omitempty"`
	Backend       map[string]any `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// Clone returns an independent copy so registry snapshots cannot be
// mutated through a handed-out entry.
func (c Capability) Clone() Capability {
	cp := c
	if c.Backend != nil {
		cp.Backend = make(map[string]any, len(c.Backend))
		for k, v := range c.Backend {
			cp.Backend[k] = v
		}
	}
	return cp
}

// Down reports whether the monitor currently flags this capability as
// unavailable.
func (c Capability) Down() bool { return c.Health == HealthDown }
