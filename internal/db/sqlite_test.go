package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandmem/strand/pkg/types"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestMemory(role types.AgentRole, project, content, category string) *types.Memory {
	now := time.Now().UTC()
	return &types.Memory{
		ID:         uuid.NewString(),
		AgentRole:  role,
		Project:    project,
		Content:    content,
		Category:   category,
		Type:       types.TypeDeclarative,
		Confidence: 0.7,
		CreatedAt:  now,
		AccessedAt: now,
	}
}

func insertMemory(t *testing.T, store *DB, m *types.Memory) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureRole(ctx, m.AgentRole))
	require.NoError(t, store.EnsureProject(ctx, m.Project))
	require.NoError(t, store.InsertMemoryGraph(ctx, m, nil, nil))
}

func edge(from, to string, typ types.EdgeType, weight float64) types.Edge {
	return types.Edge{
		ID:        uuid.NewString(),
		FromID:    from,
		ToID:      to,
		Type:      typ,
		Weight:    weight,
		CreatedAt: time.Now().UTC(),
	}
}

func TestInsertAndGetMemory(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	m := newTestMemory(types.RoleBuilder, "webshop", "Checkout uses optimistic locking", "database")
	m.Tags = []string{"concurrency", "orders"}
	m.Metadata = types.Metadata{SourceTask: "fix-checkout", Success: true}
	insertMemory(t, store, m)

	assert.Greater(t, m.Seq, int64(0), "seq should be assigned by the store")

	got, err := store.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, types.RoleBuilder, got.AgentRole)
	assert.Equal(t, "webshop", got.Project)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, []string{"concurrency", "orders"}, got.Tags)
	assert.Equal(t, "fix-checkout", got.Metadata.SourceTask)
	assert.True(t, got.Metadata.Success)
	assert.Equal(t, types.ScopeProject, got.Scope())
}

func TestGetMemory_NotFound(t *testing.T) {
	store := newTestDB(t)

	_, err := store.GetMemory(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestInsertMemoryGraph_DuplicateID(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	m := newTestMemory(types.RoleBuilder, "", "first", "general")
	insertMemory(t, store, m)

	dup := newTestMemory(types.RoleBuilder, "", "second", "general")
	dup.ID = m.ID
	err := store.InsertMemoryGraph(ctx, dup, nil, nil)
	assert.ErrorIs(t, err, types.ErrConstraintViolation)

	n, err := store.CountMemories(ctx, Filter{AllRoles: true, AnyProject: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertMemoryGraph_DanglingEdgeRollsBack(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureRole(ctx, types.RoleBuilder))

	m := newTestMemory(types.RoleBuilder, "", "points at nothing", "general")
	bad := edge(m.ID, "ghost-memory", types.EdgeSimilarTo, 0.5)

	err := store.InsertMemoryGraph(ctx, m, []types.Edge{bad}, nil)
	assert.ErrorIs(t, err, types.ErrConstraintViolation)

	// The whole transaction rolled back: no memory row either.
	n, err := store.CountMemories(ctx, Filter{AllRoles: true, AnyProject: true})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsertMemoryGraph_SupersessionCycleRejected(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	a := newTestMemory(types.RoleBuilder, "", "limit is 10", "config")
	insertMemory(t, store, a)

	b := newTestMemory(types.RoleBuilder, "", "limit is 20", "config")
	require.NoError(t, store.InsertMemoryGraph(ctx, b,
		[]types.Edge{edge(b.ID, a.ID, types.EdgeSupersedes, 0)}, nil))

	// a superseding b would close the loop a -> b -> a.
	c := newTestMemory(types.RoleBuilder, "", "limit is 30", "config")
	err := store.InsertMemoryGraph(ctx, c,
		[]types.Edge{edge(a.ID, b.ID, types.EdgeSupersedes, 0)}, nil)
	assert.ErrorIs(t, err, types.ErrConstraintViolation)

	// Self-supersession is a one-hop cycle.
	d := newTestMemory(types.RoleBuilder, "", "limit is 40", "config")
	err = store.InsertMemoryGraph(ctx, d,
		[]types.Edge{edge(d.ID, d.ID, types.EdgeSupersedes, 0)}, nil)
	assert.ErrorIs(t, err, types.ErrConstraintViolation)
}

func TestInsertMemoryGraph_DemotionsApply(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	old := newTestMemory(types.RoleBuilder, "", "timeout is 30 seconds", "config")
	old.Confidence = 0.8
	insertMemory(t, store, old)

	newer := newTestMemory(types.RoleBuilder, "", "timeout is 60 seconds", "config")
	err := store.InsertMemoryGraph(ctx, newer,
		[]types.Edge{edge(newer.ID, old.ID, types.EdgeSupersedes, 0)},
		[]Demotion{{MemoryID: old.ID, Factor: 0.5, Floor: 0.1}})
	require.NoError(t, err)

	got, err := store.GetMemory(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, got.Superseded)
	assert.InDelta(t, 0.4, got.Confidence, 0.001)
}

func TestInsertMemoryGraph_DemotionFloor(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	old := newTestMemory(types.RoleBuilder, "", "retries set to 3", "config")
	old.Confidence = 0.15
	insertMemory(t, store, old)

	newer := newTestMemory(types.RoleBuilder, "", "retries set to 5", "config")
	require.NoError(t, store.InsertMemoryGraph(ctx, newer,
		[]types.Edge{edge(newer.ID, old.ID, types.EdgeSupersedes, 0)},
		[]Demotion{{MemoryID: old.ID, Factor: 0.5, Floor: 0.1}}))

	got, err := store.GetMemory(ctx, old.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got.Confidence, 0.001, "confidence never drops below the floor")
}

func TestListMemories_ScopeIsolation(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	global := newTestMemory(types.RoleBuilder, "", "global fact", "general")
	alpha := newTestMemory(types.RoleBuilder, "alpha", "alpha fact", "general")
	beta := newTestMemory(types.RoleBuilder, "beta", "beta fact", "general")
	for _, m := range []*types.Memory{global, alpha, beta} {
		insertMemory(t, store, m)
	}

	// Project scope plus globals.
	got, err := store.ListMemories(ctx, Filter{Role: types.RoleBuilder, Project: "alpha", IncludeGlobal: true})
	require.NoError(t, err)
	ids := memoryIDs(got)
	assert.ElementsMatch(t, []string{global.ID, alpha.ID}, ids)

	// Project scope only.
	got, err = store.ListMemories(ctx, Filter{Role: types.RoleBuilder, Project: "alpha"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alpha.ID}, memoryIDs(got))

	// No project context: only globals, never another project's rows.
	got, err = store.ListMemories(ctx, Filter{Role: types.RoleBuilder})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{global.ID}, memoryIDs(got))

	// Consolidation-style scan sees everything.
	got, err = store.ListMemories(ctx, Filter{AllRoles: true, AnyProject: true})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestListMemories_RoleAndCategoryFilter(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	a := newTestMemory(types.RoleBuilder, "", "builder db note", "database")
	b := newTestMemory(types.RoleTester, "", "tester db note", "database")
	c := newTestMemory(types.RoleBuilder, "", "builder api note", "api")
	for _, m := range []*types.Memory{a, b, c} {
		insertMemory(t, store, m)
	}

	got, err := store.ListMemories(ctx, Filter{Role: types.RoleBuilder, Category: "database"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID}, memoryIDs(got))
}

func TestListMemories_ExcludesSupersededByDefault(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	live := newTestMemory(types.RoleBuilder, "", "current", "general")
	dead := newTestMemory(types.RoleBuilder, "", "outdated", "general")
	dead.Superseded = true
	insertMemory(t, store, live)
	insertMemory(t, store, dead)

	got, err := store.ListMemories(ctx, Filter{Role: types.RoleBuilder})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{live.ID}, memoryIDs(got))

	got, err = store.ListMemories(ctx, Filter{Role: types.RoleBuilder, IncludeSuperseded: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListMemories_NewestFirstAndLimit(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		m := newTestMemory(types.RoleBuilder, "", fmt.Sprintf("note %d", i), "general")
		insertMemory(t, store, m)
		ids = append(ids, m.ID)
	}

	got, err := store.ListMemories(ctx, Filter{Role: types.RoleBuilder, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[4], got[0].ID)
	assert.Equal(t, ids[3], got[1].ID)
}

func TestNeighbors_TwoHops(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	a := newTestMemory(types.RoleBuilder, "", "node a", "general")
	b := newTestMemory(types.RoleBuilder, "", "node b", "general")
	c := newTestMemory(types.RoleBuilder, "", "node c", "general")
	d := newTestMemory(types.RoleBuilder, "", "node d", "general")
	for _, m := range []*types.Memory{a, b, c, d} {
		insertMemory(t, store, m)
	}

	// a -- b -- c, d isolated. Edges are traversed in both directions.
	require.NoError(t, store.InsertEdge(ctx, ptrEdge(edge(a.ID, b.ID, types.EdgeSimilarTo, 0.6))))
	require.NoError(t, store.InsertEdge(ctx, ptrEdge(edge(c.ID, b.ID, types.EdgeSimilarTo, 0.5))))

	got, err := store.Neighbors(ctx, a.ID, 1, types.EdgeSimilarTo)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID}, memoryIDs(got))

	got, err = store.Neighbors(ctx, a.ID, 2, types.EdgeSimilarTo)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, memoryIDs(got))
}

func TestInsertEdge_MissingSourceRejected(t *testing.T) {
	store := newTestDB(t)

	e := edge("ghost", "anything", types.EdgeReferences, 0)
	err := store.InsertEdge(context.Background(), &e)
	assert.ErrorIs(t, err, types.ErrConstraintViolation)
}

func TestIncomingAndOutgoingEdges(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	a := newTestMemory(types.RoleBuilder, "", "from", "general")
	b := newTestMemory(types.RoleBuilder, "", "to", "general")
	insertMemory(t, store, a)
	insertMemory(t, store, b)

	e := edge(a.ID, b.ID, types.EdgeSupersedes, 0)
	require.NoError(t, store.InsertEdge(ctx, &e))

	out, err := store.OutgoingEdges(ctx, a.ID, types.EdgeSupersedes)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, b.ID, out[0].ToID)

	in, err := store.IncomingEdges(ctx, b.ID, types.EdgeSupersedes)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, a.ID, in[0].FromID)

	none, err := store.IncomingEdges(ctx, a.ID, types.EdgeSupersedes)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTouchMemories(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	m := newTestMemory(types.RoleBuilder, "", "touched", "general")
	insertMemory(t, store, m)

	require.NoError(t, store.TouchMemories(ctx, []string{m.ID}))
	require.NoError(t, store.TouchMemories(ctx, []string{m.ID}))

	got, err := store.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
	assert.False(t, got.AccessedAt.IsZero())

	// Empty slice is a no-op, not an error.
	require.NoError(t, store.TouchMemories(ctx, nil))
}

func TestPromoteToGlobal(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	m := newTestMemory(types.RoleBuilder, "alpha", "proven pattern", "general")
	insertMemory(t, store, m)

	require.NoError(t, store.PromoteToGlobal(ctx, m.ID))

	got, err := store.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Project)
	assert.Equal(t, types.ScopeGlobal, got.Scope())
}

func TestDeleteMemory_RemovesEdgesBothDirections(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	a := newTestMemory(types.RoleBuilder, "", "node a", "general")
	b := newTestMemory(types.RoleBuilder, "", "node b", "general")
	insertMemory(t, store, a)
	insertMemory(t, store, b)
	require.NoError(t, store.InsertEdge(ctx, ptrEdge(edge(a.ID, b.ID, types.EdgeSimilarTo, 0.5))))
	require.NoError(t, store.InsertEdge(ctx, ptrEdge(edge(b.ID, a.ID, types.EdgeReferences, 0))))

	require.NoError(t, store.DeleteMemory(ctx, a.ID))

	_, err := store.GetMemory(ctx, a.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	out, err := store.OutgoingEdges(ctx, b.ID, types.EdgeReferences)
	require.NoError(t, err)
	assert.Empty(t, out)
	in, err := store.IncomingEdges(ctx, b.ID, types.EdgeSimilarTo)
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestKeywordSearch(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	jwt := newTestMemory(types.RoleBuilder, "", "JWT validation requires clock skew tolerance", "auth")
	pool := newTestMemory(types.RoleBuilder, "", "Connection pool exhaustion under load", "database")
	insertMemory(t, store, jwt)
	insertMemory(t, store, pool)

	ids, err := store.KeywordSearch(ctx, []string{"jwt", "skew"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{jwt.ID}, ids)

	ids, err = store.KeywordSearch(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestKeywordSearch_StaysInSyncAfterDelete(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	m := newTestMemory(types.RoleBuilder, "", "ephemeral keyword zanzibar", "general")
	insertMemory(t, store, m)
	require.NoError(t, store.DeleteMemory(ctx, m.ID))

	ids, err := store.KeywordSearch(ctx, []string{"zanzibar"}, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestHasSupersessionPath_Transitive(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	a := newTestMemory(types.RoleBuilder, "", "v1", "config")
	b := newTestMemory(types.RoleBuilder, "", "v2", "config")
	c := newTestMemory(types.RoleBuilder, "", "v3", "config")
	insertMemory(t, store, a)
	insertMemory(t, store, b)
	insertMemory(t, store, c)
	require.NoError(t, store.InsertEdge(ctx, ptrEdge(edge(c.ID, b.ID, types.EdgeSupersedes, 0))))
	require.NoError(t, store.InsertEdge(ctx, ptrEdge(edge(b.ID, a.ID, types.EdgeSupersedes, 0))))

	ok, err := store.HasSupersessionPath(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasSupersessionPath(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTx_RollbackDiscardsAllMutations(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	flagged := newTestMemory(types.RoleBuilder, "alpha", "to be flagged", "general")
	doomed := newTestMemory(types.RoleBuilder, "alpha", "to be deleted", "general")
	promoted := newTestMemory(types.RoleBuilder, "alpha", "to be promoted", "general")
	for _, m := range []*types.Memory{flagged, doomed, promoted} {
		insertMemory(t, store, m)
	}

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetSuperseded(ctx, flagged.ID))
	require.NoError(t, tx.DeleteMemory(ctx, doomed.ID))
	require.NoError(t, tx.PromoteToGlobal(ctx, promoted.ID))
	require.NoError(t, tx.Rollback())

	got, err := store.GetMemory(ctx, flagged.ID)
	require.NoError(t, err)
	assert.False(t, got.Superseded)

	_, err = store.GetMemory(ctx, doomed.ID)
	assert.NoError(t, err, "deletion must not survive rollback")

	got, err = store.GetMemory(ctx, promoted.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Project)
}

func TestTx_CommitAppliesAllMutations(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	flagged := newTestMemory(types.RoleBuilder, "alpha", "to be flagged", "general")
	doomed := newTestMemory(types.RoleBuilder, "alpha", "to be deleted", "general")
	insertMemory(t, store, flagged)
	insertMemory(t, store, doomed)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetSuperseded(ctx, flagged.ID))
	require.NoError(t, tx.DeleteMemory(ctx, doomed.ID))
	require.NoError(t, tx.Commit())

	got, err := store.GetMemory(ctx, flagged.ID)
	require.NoError(t, err)
	assert.True(t, got.Superseded)

	_, err = store.GetMemory(ctx, doomed.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStats(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	a := newTestMemory(types.RoleBuilder, "alpha", "one", "general")
	b := newTestMemory(types.RoleTester, "", "two", "general")
	b.Superseded = true
	insertMemory(t, store, a)
	insertMemory(t, store, b)
	require.NoError(t, store.InsertEdge(ctx, ptrEdge(edge(a.ID, b.ID, types.EdgeSimilarTo, 0.4))))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats["memories"])
	assert.Equal(t, 1, stats["superseded"])
	assert.Equal(t, 2, stats["roles"])
	assert.Equal(t, 1, stats["projects"])
	assert.Equal(t, 1, stats["similar_to"])
	assert.Equal(t, 0, stats["supersedes"])
}

func TestClosedStore_ReturnsStoreUnavailable(t *testing.T) {
	store := newTestDB(t)
	require.NoError(t, store.Close())

	_, err := store.ListMemories(context.Background(), Filter{AllRoles: true, AnyProject: true})
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
}

func memoryIDs(memories []*types.Memory) []string {
	ids := make([]string, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	return ids
}

func ptrEdge(e types.Edge) *types.Edge { return &e }
