package nodes

import (
	"context"
	"log/slog"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

const defaultGroundingLimit = 5

// Grounding retrieves supporting facts from the configured data sources
// and attaches them as citations. Retrieval is best-effort: a source that
// cannot be queried is skipped, and an answer with no citations is merely
// tagged ungrounded.
//
// Config: sources (capability names), limit (int, per source).
type Grounding struct {
	reg      ports.Registry
	backends ports.Backends
	logger   *slog.Logger
}

// NewGrounding creates the node.
func NewGrounding(reg ports.Registry, backends ports.Backends, logger *slog.Logger) *Grounding {
	return &Grounding{reg: reg, backends: backends, logger: logger}
}

// Type implements ports.Node.
func (n *Grounding) Type() domain.NodeType { return domain.NodeGrounding }

// Invoke implements ports.Node.
func (n *Grounding) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	limit := spec.ConfigInt("limit", defaultGroundingLimit)
	found := 0

	for _, name := range spec.ConfigStrings("sources") {
		hits, err := n.search(ctx, name, state.Input, limit)
		if err != nil {
			n.logger.Warn("grounding source skipped", "source", name, "err", err)
			continue
		}
		state.Citations = append(state.Citations, hits...)
		found += len(hits)
	}

	if found == 0 {
		state.Annotate(domain.AnnotationUngrounded)
	}
	return domain.Continue()
}

func (n *Grounding) search(ctx context.Context, name, query string, limit int) ([]domain.Citation, error) {
	cap, err := lookup(n.reg, name, domain.KindDataSource)
	if err != nil {
		return nil, err
	}
	if cap.Down() {
		return nil, domain.NewError(domain.CodeExternalCall,
			"data source %q is marked down", name)
	}
	source, err := n.backends.DataSource(cap)
	if err != nil {
		return nil, err
	}

	var hits []domain.Citation
	err = withRetry(ctx, n.logger, name, func() error {
		var callErr error
		hits, callErr = source.Search(ctx, query, limit)
		return callErr
	})
	return hits, err
}
