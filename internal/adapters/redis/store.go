// Package redis persists the memory and cache service on Redis: session
// history as lists, response cache as TTL'd values, audit trails as lists
// per request id.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/arborflow/arbor/pkg/domain"
)

// Store implements ports.HistoryStore, ports.ResponseCache and
// ports.AuditSink on one Redis client.
type Store struct {
	client       *backend.Client
	prefix       string
	historyLimit int64
	auditTTL     time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix, default "arbor:".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithHistoryLimit caps the stored turns per session; older turns are
// trimmed on append. Default 200, 0 disables trimming.
func WithHistoryLimit(n int64) Option {
	return func(s *Store) { s.historyLimit = n }
}

// WithAuditTTL bounds how long audit trails are kept. Default 7 days.
func WithAuditTTL(ttl time.Duration) Option {
	return func(s *Store) { s.auditTTL = ttl }
}

// New creates a store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client:       client,
		prefix:       "arbor:",
		historyLimit: 200,
		auditTTL:     7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) historyKey(sessionID string) string { return s.prefix + "history:" + sessionID }
func (s *Store) cacheKey(fingerprint string) string { return s.prefix + "cache:" + fingerprint }
func (s *Store) auditKey(requestID string) string   { return s.prefix + "audit:" + requestID }

// History returns up to limit of the most recent turns, oldest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, s.historyKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	turns := make([]domain.Turn, 0, len(raw))
	for _, item := range raw {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode history turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendTurn pushes one turn and trims the session to the history limit.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.historyKey(sessionID), data)
	if s.historyLimit > 0 {
		pipe.LTrim(ctx, s.historyKey(sessionID), -s.historyLimit, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Get returns the cached answer or domain.ErrCacheMiss. Redis expires
// entries itself, so absent and expired look the same here.
func (s *Store) Get(ctx context.Context, fingerprint string) (*domain.CachedAnswer, error) {
	val, err := s.client.Get(ctx, s.cacheKey(fingerprint)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var answer domain.CachedAnswer
	if err := json.Unmarshal([]byte(val), &answer); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &answer, nil
}

// Put writes or refreshes an entry with the given TTL.
func (s *Store) Put(ctx context.Context, fingerprint string, answer domain.CachedAnswer, ttl time.Duration) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.cacheKey(fingerprint), data, ttl).Err(); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Write appends the audit trail for a request.
func (s *Store) Write(ctx context.Context, requestID string, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}
		pipe.RPush(ctx, s.auditKey(requestID), data)
	}
	if s.auditTTL > 0 {
		pipe.Expire(ctx, s.auditKey(requestID), s.auditTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write audit trail: %w", err)
	}
	return nil
}

// Read returns the stored trail for a request.
func (s *Store) Read(ctx context.Context, requestID string) ([]domain.AuditEntry, error) {
	raw, err := s.client.LRange(ctx, s.auditKey(requestID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit trail: %w", err)
	}
	entries := make([]domain.AuditEntry, 0, len(raw))
	for _, item := range raw {
		var e domain.AuditEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
