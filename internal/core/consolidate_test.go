package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandmem/strand/internal/db"
	"github.com/strandmem/strand/pkg/types"
)

func insertAged(t *testing.T, store *db.DB, role types.AgentRole, project, content string, age time.Duration, usage int) *types.Memory {
	t.Helper()
	ctx := context.Background()
	created := time.Now().UTC().Add(-age)
	m := &types.Memory{
		ID:         generateID(),
		AgentRole:  role,
		Project:    project,
		Content:    content,
		Category:   "general",
		Type:       types.TypeDeclarative,
		Confidence: 0.7,
		UsageCount: usage,
		CreatedAt:  created,
		AccessedAt: created,
	}
	require.NoError(t, store.EnsureRole(ctx, role))
	require.NoError(t, store.EnsureProject(ctx, project))
	require.NoError(t, store.InsertMemoryGraph(ctx, m, nil, nil))
	return m
}

func TestConsolidate_FlagsSuperseded(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	old := insertAged(t, store, types.RoleBuilder, "webshop", "rate limit is 100", time.Hour, 1)
	newer := insertAged(t, store, types.RoleBuilder, "webshop", "rate limit is 200", time.Hour, 1)
	require.NoError(t, store.InsertEdge(ctx, &types.Edge{
		ID: generateID(), FromID: newer.ID, ToID: old.ID,
		Type: types.EdgeSupersedes, CreatedAt: time.Now().UTC(),
	}))

	report, err := engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SupersededFlagged)

	got, err := engine.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, got.Superseded)
}

func TestConsolidate_PromotesProvenProjectMemories(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	mgr := engine.Manager(types.RoleBuilder, "webshop")

	id, err := mgr.Remember(ctx, "never retry payments without an idempotency key", types.RememberOptions{
		Category:   "payments",
		Type:       types.TypeAntiPattern,
		Confidence: 0.9,
		Metadata:   types.Metadata{Outcome: "duplicate charges stopped", Success: true},
	})
	require.NoError(t, err)

	// Below the usage threshold nothing moves.
	report, err := engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Promoted)

	require.NoError(t, store.TouchMemories(ctx, []string{id}))
	require.NoError(t, store.TouchMemories(ctx, []string{id}))
	require.NoError(t, store.TouchMemories(ctx, []string{id}))

	report, err = engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)

	got, err := engine.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.ScopeGlobal, got.Scope())
}

func TestConsolidate_DoesNotPromoteLowQuality(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	m := insertAged(t, store, types.RoleBuilder, "webshop", "plain fact", time.Hour, 10)

	report, err := engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Promoted)

	got, err := engine.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ScopeProject, got.Scope())
}

func TestConsolidate_ExpiresUnusedOldMemories(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	stale := insertAged(t, store, types.RoleBuilder, "webshop", "never recalled", 61*24*time.Hour, 0)
	fresh := insertAged(t, store, types.RoleBuilder, "webshop", "also never recalled", 10*24*time.Hour, 0)
	used := insertAged(t, store, types.RoleBuilder, "webshop", "old but used", 120*24*time.Hour, 5)

	report, err := engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)

	_, err = engine.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = engine.Get(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = engine.Get(ctx, used.ID)
	assert.NoError(t, err)
}

func TestConsolidate_Idempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	old := insertAged(t, store, types.RoleBuilder, "webshop", "limit was 5", 61*24*time.Hour, 0)
	keep := insertAged(t, store, types.RoleBuilder, "webshop", "limit is 6", time.Hour, 2)
	require.NoError(t, store.InsertEdge(ctx, &types.Edge{
		ID: generateID(), FromID: keep.ID, ToID: old.ID,
		Type: types.EdgeSupersedes, CreatedAt: time.Now().UTC(),
	}))

	first, err := engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.True(t, first.Changed())

	second, err := engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.False(t, second.Changed(), "second pass must be a no-op")
}

func TestConsolidate_AbortLeavesStoreUntouched(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	// One memory due for flagging and one due for expiry.
	old := insertAged(t, store, types.RoleBuilder, "webshop", "window is 30", time.Hour, 1)
	newer := insertAged(t, store, types.RoleBuilder, "webshop", "window is 45", time.Hour, 1)
	require.NoError(t, store.InsertEdge(ctx, &types.Edge{
		ID: generateID(), FromID: newer.ID, ToID: old.ID,
		Type: types.EdgeSupersedes, CreatedAt: time.Now().UTC(),
	}))
	stale := insertAged(t, store, types.RoleBuilder, "webshop", "never recalled", 61*24*time.Hour, 0)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := engine.Consolidate(cancelled)
	require.Error(t, err)

	// No partial pass is ever visible.
	got, err := engine.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, got.Superseded)
	_, err = engine.Get(ctx, stale.ID)
	assert.NoError(t, err)
}

func TestConsolidate_DisabledIsANoOp(t *testing.T) {
	engine, store := newTestEngine(t)
	engine.Config().ConsolidationEnabled = false
	ctx := context.Background()

	m := insertAged(t, store, types.RoleBuilder, "webshop", "would expire", 200*24*time.Hour, 0)

	report, err := engine.Consolidate(ctx)
	require.NoError(t, err)
	assert.False(t, report.Changed())

	_, err = engine.Get(ctx, m.ID)
	assert.NoError(t, err)
}
