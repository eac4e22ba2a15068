// Package file loads per-agent topology definitions from a directory of
// YAML files, one file per agent (<agent>.yaml).
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arborflow/arbor/pkg/domain"
)

// Loader implements ports.TopologyLoader over a directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads, parses and validates the topology for an agent. All failure
// modes surface as CodeTopologyLoad so the engine can reject the request
// before any node runs.
func (l *Loader) Load(agentID string) (*domain.Topology, error) {
	if strings.ContainsAny(agentID, `/\`) {
		return nil, domain.NewError(domain.CodeTopologyLoad, "invalid agent id %q", agentID)
	}
	path := filepath.Join(l.dir, agentID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewError(domain.CodeTopologyLoad, "no topology for agent %q", agentID)
		}
		return nil, domain.WrapError(domain.CodeTopologyLoad, err, "read topology for agent %q", agentID)
	}

	var topo domain.Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, domain.WrapError(domain.CodeTopologyLoad, err, "parse topology %s", path)
	}
	if topo.AgentID == "" {
		topo.AgentID = agentID
	}
	if topo.AgentID != agentID {
		return nil, domain.NewError(domain.CodeTopologyLoad, "topology file %s declares agent %q", path, topo.AgentID)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// Agents lists agent ids by scanning for *.yaml files.
func (l *Loader) Agents() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read topology dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}
