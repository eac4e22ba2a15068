package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborflow/arbor/internal/adapters/memory"
	"github.com/arborflow/arbor/pkg/domain"
)

func TestStore_HistoryOrderAndLimit(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.AppendTurn(ctx, "sess", domain.Turn{Role: "user", Text: text}))
	}

	turns, err := s.History(ctx, "sess", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Text, "bounded reads keep the most recent turns, oldest first")
	assert.Equal(t, "three", turns[1].Text)

	all, err := s.History(ctx, "sess", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := s.History(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_CacheTTL(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Put(ctx, "fp", domain.CachedAnswer{Answer: "hi"}, time.Minute))

	got, err := s.Get(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Answer)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "fp")
	assert.ErrorIs(t, err, domain.ErrCacheMiss, "expired entries read as absent")

	// Lazy eviction: the expired entry is gone even if the clock rolls back.
	now = now.Add(-2 * time.Minute)
	_, err = s.Get(ctx, "fp")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestStore_CacheMiss(t *testing.T) {
	s := memory.NewStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestStore_Audit(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	entries := []domain.AuditEntry{
		{Node: "start", Status: "ok"},
		{Node: "llm_agent", Status: "ok"},
	}
	require.NoError(t, s.Write(ctx, "req-1", entries))

	got, err := s.Read(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "start", got[0].Node)
}
