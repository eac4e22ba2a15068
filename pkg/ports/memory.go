package ports

import (
	"context"
	"time"

	"github.com/arborflow/arbor/pkg/domain"
)

// HistoryStore persists conversation turns per session.
type HistoryStore interface {
	// History returns up to limit of the most recent turns, oldest first.
	History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)

	// AppendTurn adds one turn to the session. Last-write-wins per session;
	// concurrent appends must not corrupt an entry.
	AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error
}

// ResponseCache stores finished answers under input fingerprints.
type ResponseCache interface {
	// Get returns the cached answer for a fingerprint. Expired entries are
	// treated as absent (and lazily evicted); both cases return
	// domain.ErrCacheMiss.
	Get(ctx context.Context, fingerprint string) (*domain.CachedAnswer, error)

	// Put writes or refreshes an entry with the given TTL.
	Put(ctx context.Context, fingerprint string, answer domain.CachedAnswer, ttl time.Duration) error
}

// AuditSink persists the audit trail of a finished request.
type AuditSink interface {
	// Write appends the trail for a request id. Best effort: callers treat
	// failures as non-fatal.
	Write(ctx context.Context, requestID string, entries []domain.AuditEntry) error

	// Read returns the stored trail for a request id.
	Read(ctx context.Context, requestID string) ([]domain.AuditEntry, error)
}
