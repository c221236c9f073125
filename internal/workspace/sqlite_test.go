package workspace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := OpenSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestSQLiteCacheScheduleStateUpsert(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.ScheduleState(ctx, "sched-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.UpsertScheduleState(ctx, model.ScheduleState{ScheduleID: "sched-1", FireCount: 1, LastFiredAt: time.Now()}))
	require.NoError(t, cache.UpsertScheduleState(ctx, model.ScheduleState{ScheduleID: "sched-1", FireCount: 2, LastFiredAt: time.Now()}))

	s, ok, err := cache.ScheduleState(ctx, "sched-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, s.FireCount)
}

func TestSQLiteCacheCostEntries(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, cache.RecordCostEntry(ctx, model.CostEntry{Timestamp: now.Add(-2 * time.Hour), Skill: "seo-audit", ModelTier: model.TierSonnet, EstimatedUSD: 1}))
	require.NoError(t, cache.RecordCostEntry(ctx, model.CostEntry{Timestamp: now, Skill: "seo-audit", ModelTier: model.TierSonnet, EstimatedUSD: 2}))

	entries, err := cache.CostEntriesSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 2, entries[0].EstimatedUSD, 1e-9)
}
