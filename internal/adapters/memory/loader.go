package memory

import (
	"sort"
	"sync"

	"github.com/arborflow/arbor/pkg/domain"
)

// TopologyLoader keeps topologies in memory, keyed by agent id.
type TopologyLoader struct {
	mu         sync.RWMutex
	topologies map[string]*domain.Topology
}

// NewTopologyLoader creates an empty loader.
func NewTopologyLoader() *TopologyLoader {
	return &TopologyLoader{topologies: map[string]*domain.Topology{}}
}

// Add validates and stores a topology. Adding an agent twice replaces it.
func (l *TopologyLoader) Add(t *domain.Topology) error {
	if err := t.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.topologies[t.AgentID] = t
	return nil
}

// Load returns the topology for an agent.
func (l *TopologyLoader) Load(agentID string) (*domain.Topology, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.topologies[agentID]
	if !ok {
		return nil, domain.NewError(domain.CodeTopologyLoad, "no topology for agent %q", agentID)
	}
	return t, nil
}

// Agents lists the stored agent ids, sorted.
func (l *TopologyLoader) Agents() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.topologies))
	for id := range l.topologies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
