package nodes

import (
	"context"
	"log/slog"
	"time"

	"github.com/arborflow/arbor/pkg/domain"
	"github.com/arborflow/arbor/pkg/ports"
)

const defaultCacheTTL = 5 * time.Minute

// MemoryStore persists the finished turn: both exchange halves go to
// session history, and successful answers are written to the response
// cache under the input fingerprint. Writes are fire-and-forget; a
// storage fault is logged and the request still completes.
//
// Config: cache_ttl (duration string), cache (bool, default true).
type MemoryStore struct {
	history ports.HistoryStore
	cache   ports.ResponseCache
	logger  *slog.Logger
}

// NewMemoryStore creates the node.
func NewMemoryStore(history ports.HistoryStore, cache ports.ResponseCache, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{history: history, cache: cache, logger: logger}
}

// Type implements ports.Node.
func (n *MemoryStore) Type() domain.NodeType { return domain.NodeMemoryStore }

// Invoke implements ports.Node.
func (n *MemoryStore) Invoke(ctx context.Context, spec domain.NodeSpec, state *domain.ExecutionState) domain.Outcome {
	now := time.Now()

	if state.SessionID != "" {
		turns := []domain.Turn{
			{Role: "user", Text: state.Input, At: state.Started},
			{Role: "assistant", Text: state.Draft, At: now},
		}
		for _, turn := range turns {
			if err := n.history.AppendTurn(ctx, state.SessionID, turn); err != nil {
				n.logger.Warn("history write failed",
					"session", state.SessionID, "role", turn.Role, "err", err)
			}
		}
	}

	if n.shouldCache(spec, state) {
		ttl := defaultCacheTTL
		if raw := spec.ConfigString("cache_ttl", ""); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				ttl = d
			}
		}
		entry := domain.CachedAnswer{
			Answer:      state.Draft,
			Sources:     state.Citations,
			Annotations: state.Annotations,
			StoredAt:    now,
		}
		if err := n.cache.Put(ctx, state.Fingerprint, entry, ttl); err != nil {
			n.logger.Warn("cache write failed", "err", err)
		}
	}

	return domain.Continue()
}

// shouldCache gates the cache write: cache-served answers are not
// re-stored, failed requests and empty drafts never enter the cache.
func (n *MemoryStore) shouldCache(spec domain.NodeSpec, state *domain.ExecutionState) bool {
	if state.CacheHit || state.Failure != nil || state.Draft == "" {
		return false
	}
	if spec.ConfigString("cache", "true") == "false" {
		return false
	}
	return state.Fingerprint != ""
}
