package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "conversations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	claims := s.ForAgent("claims", 0)

	ts := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, claims.Append(ctx, "c1", domain.UserMessage("hello", ts)))
	require.NoError(t, claims.Append(ctx, "c1", domain.AssistantMessage("hi there", ts.Add(time.Second))))

	h, err := claims.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, domain.RoleUser, h[0].Role)
	assert.Equal(t, "hello", h[0].Content)
	assert.Equal(t, domain.RoleAssistant, h[1].Role)
	assert.True(t, h[0].Timestamp.Equal(ts))
}

func TestSQLiteStore_UnknownConversationIsEmpty(t *testing.T) {
	s := newTestStore(t)
	h, err := s.ForAgent("policy", 0).History(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Empty(t, h)
}

func TestSQLiteStore_TrimsToLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	st := s.ForAgent("support", 20)

	for i := 1; i <= 25; i++ {
		require.NoError(t, st.Append(ctx, "c", domain.UserMessage(fmt.Sprintf("m%d", i), time.Now())))
	}

	h, err := st.History(ctx, "c")
	require.NoError(t, err)
	require.Len(t, h, 20)
	assert.Equal(t, "m6", h[0].Content)
	assert.Equal(t, "m25", h[19].Content)
}

func TestSQLiteStore_AgentsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.ForAgent("claims", 0).Append(ctx, "shared-id", domain.UserMessage("claims msg", time.Now())))
	require.NoError(t, s.ForAgent("policy", 0).Append(ctx, "shared-id", domain.UserMessage("policy msg", time.Now())))

	h, err := s.ForAgent("claims", 0).History(ctx, "shared-id")
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, "claims msg", h[0].Content)

	require.NoError(t, s.ForAgent("claims", 0).Clear(ctx, "shared-id"))
	h, _ = s.ForAgent("claims", 0).History(ctx, "shared-id")
	assert.Empty(t, h)
	h, _ = s.ForAgent("policy", 0).History(ctx, "shared-id")
	assert.Len(t, h, 1)
}

func TestSQLiteStore_CleanupIdle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()
	s.now = func() time.Time { return now }
	st := s.ForAgent("compliance", 0)

	require.NoError(t, st.Append(ctx, "stale", domain.UserMessage("a", now.Add(-3*time.Hour))))
	require.NoError(t, st.Append(ctx, "stale", domain.AssistantMessage("b", now.Add(-2*time.Hour))))
	require.NoError(t, st.Append(ctx, "active", domain.UserMessage("c", now.Add(-3*time.Hour))))
	require.NoError(t, st.Append(ctx, "active", domain.UserMessage("d", now.Add(-time.Minute))))

	deleted, err := s.Sweeper(time.Hour).SweepIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	h, _ := st.History(ctx, "stale")
	assert.Empty(t, h)
	h, _ = st.History(ctx, "active")
	assert.Len(t, h, 2)
}

func TestSQLiteStore_CleanupIdleZeroTTLKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	st := s.ForAgent("claims", 0)

	require.NoError(t, st.Append(ctx, "live", domain.UserMessage("hello", time.Now().Add(-time.Hour))))

	deleted, err := s.Sweeper(0).SweepIdle(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	h, err := st.History(ctx, "live")
	require.NoError(t, err)
	assert.Len(t, h, 1)
}

func TestSQLiteStore_Ping(t *testing.T) {
	assert.NoError(t, newTestStore(t).Ping(context.Background()))
}
