// Package memory provides in-process implementations of the history,
// cache, audit and topology ports. They back tests, examples and
// single-node deployments without Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arborflow/arbor/pkg/domain"
)

type cacheEntry struct {
	answer    domain.CachedAnswer
	expiresAt time.Time
}

// Store implements ports.HistoryStore, ports.ResponseCache and
// ports.AuditSink over mutex-guarded maps. Expired cache entries are
// treated as absent and lazily evicted on read.
type Store struct {
	mu      sync.Mutex
	history map[string][]domain.Turn
	cache   map[string]cacheEntry
	audits  map[string][]domain.AuditEntry

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		history: map[string][]domain.Turn{},
		cache:   map[string]cacheEntry{},
		audits:  map[string][]domain.AuditEntry{},
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// History returns up to limit of the most recent turns, oldest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.history[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// AppendTurn adds one turn to the session history.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[sessionID] = append(s.history[sessionID], turn)
	return nil
}

// Get returns the cached answer or domain.ErrCacheMiss.
func (s *Store) Get(ctx context.Context, fingerprint string) (*domain.CachedAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[fingerprint]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.cache, fingerprint)
		return nil, domain.ErrCacheMiss
	}
	answer := entry.answer
	return &answer, nil
}

// Put writes or refreshes an entry. ttl <= 0 means no expiry.
func (s *Store) Put(ctx context.Context, fingerprint string, answer domain.CachedAnswer, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := cacheEntry{answer: answer}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.cache[fingerprint] = entry
	return nil
}

// Write appends the audit trail for a request.
func (s *Store) Write(ctx context.Context, requestID string, entries []domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits[requestID] = append(s.audits[requestID], entries...)
	return nil
}

// Read returns the stored trail for a request.
func (s *Store) Read(ctx context.Context, requestID string) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.audits[requestID]
	out := make([]domain.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}
