// Package core provides the main Strand memory engine
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/strandmem/strand/internal/db"
	"github.com/strandmem/strand/internal/similarity"
	"github.com/strandmem/strand/pkg/types"
)

// Engine owns the graph store and configuration. Role-scoped Managers are
// cheap views over it.
type Engine struct {
	db     *db.DB
	config *types.Config
	log    *zap.Logger

	// Serializes in-process writers. Multi-agent concurrent write semantics
	// are unspecified upstream, so same-process writers queue here.
	writeMu sync.Mutex
}

// New creates a new engine, opening (and migrating) the store at
// config.DBPath.
func New(cfg *types.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %v", types.ErrStoreUnavailable, err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return &Engine{db: database, config: cfg, log: logger}, nil
}

// NewWithDB wraps an already-open store. Used by tests.
func NewWithDB(database *db.DB, cfg *types.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{db: database, config: cfg, log: logger}
}

// Close shuts down the engine
func (e *Engine) Close() error {
	return e.db.Close()
}

// Config returns the engine configuration.
func (e *Engine) Config() *types.Config {
	return e.config
}

// Manager returns a role-scoped memory manager. An empty project means the
// manager operates at global scope only.
func (e *Engine) Manager(role types.AgentRole, project string) *Manager {
	return &Manager{engine: e, role: role, project: project}
}

// Manager is the per-role public surface of the memory engine: Remember,
// Recall, and LearnFromOthers.
type Manager struct {
	engine  *Engine
	role    types.AgentRole
	project string
}

// Role returns the owning agent role.
func (m *Manager) Role() types.AgentRole { return m.role }

// Remember validates and stores a new memory, wiring similarity and
// supersession edges in the same transaction. Returns the new memory id.
func (m *Manager) Remember(ctx context.Context, content string, opts types.RememberOptions) (string, error) {
	if content == "" {
		return "", fmt.Errorf("%w: empty content", types.ErrValidation)
	}
	if opts.Category == "" {
		return "", fmt.Errorf("%w: empty category", types.ErrValidation)
	}
	if opts.Confidence < 0 || opts.Confidence > 1 {
		return "", fmt.Errorf("%w: confidence %.2f out of range [0,1]", types.ErrValidation, opts.Confidence)
	}
	memType := opts.Type
	if memType == "" {
		memType = types.TypeDeclarative
	} else if _, err := types.ParseMemoryType(string(memType)); err != nil {
		return "", err
	}

	project := m.project
	if opts.Scope == types.ScopeGlobal {
		project = ""
	}

	e := m.engine
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.db.EnsureRole(ctx, m.role); err != nil {
		return "", err
	}
	if err := e.db.EnsureProject(ctx, project); err != nil {
		return "", err
	}

	now := timeNow()
	mem := &types.Memory{
		ID:         generateID(),
		AgentRole:  m.role,
		Project:    project,
		Content:    content,
		Category:   opts.Category,
		Type:       memType,
		Tags:       opts.Tags,
		Confidence: opts.Confidence,
		Metadata:   opts.Metadata,
		CreatedAt:  now,
		AccessedAt: now,
	}

	// Existing memories in the same owner+scope drive edge construction.
	existing, err := e.db.ListMemories(ctx, db.Filter{
		Role:          m.role,
		Project:       project,
		IncludeGlobal: true,
	})
	if err != nil {
		return "", err
	}

	var edges []types.Edge
	for _, other := range existing {
		score := similarity.Score(mem, other)
		if score > similarity.EdgeThreshold {
			edges = append(edges, types.Edge{
				ID:        generateID(),
				FromID:    mem.ID,
				ToID:      other.ID,
				Type:      types.EdgeSimilarTo,
				Weight:    score,
				CreatedAt: now,
			})
		}
	}

	supEdges, demotions := detectSupersessions(mem, existing, now)
	edges = append(edges, supEdges...)

	if err := e.db.InsertMemoryGraph(ctx, mem, edges, demotions); err != nil {
		return "", err
	}

	e.log.Debug("memory stored",
		zap.String("id", mem.ID),
		zap.String("role", string(m.role)),
		zap.String("category", mem.Category),
		zap.Int("edges", len(edges)),
		zap.Int("superseded", len(demotions)))

	return mem.ID, nil
}

// Recall retrieves memories for this role and scope. The retrieval strategy
// is chosen by candidate count unless the intent forces the simple path.
// No results is not an error: the result simply carries zero memories.
func (m *Manager) Recall(ctx context.Context, opts types.RecallOptions) (*types.RecallResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = m.engine.config.MaxContextMemories
	}

	filter := db.Filter{
		Role:              m.role,
		Project:           m.project,
		IncludeGlobal:     opts.IncludeGlobal || m.project == "",
		Category:          opts.Category,
		IncludeSuperseded: opts.IncludeOutdated,
	}

	strategy := types.StrategySimple
	if opts.Intent != types.IntentSimpleRecall && opts.Intent != types.IntentIncrementalUpdate {
		count, err := m.engine.db.CountMemories(ctx, filter)
		if err != nil {
			return &types.RecallResult{Strategy: strategy}, err
		}
		if count > m.engine.config.IterativeThreshold {
			strategy = types.StrategyIterative
		}
	}

	var memories []*types.Memory
	var err error
	if strategy == types.StrategyIterative {
		memories, err = m.iterativeRetrieve(ctx, filter, opts.MinQuality, limit)
	} else {
		memories, err = m.simpleRetrieve(ctx, filter, opts.MinQuality, limit)
	}
	if err != nil {
		return &types.RecallResult{Strategy: strategy}, err
	}

	ids := make([]string, len(memories))
	for i, mem := range memories {
		ids[i] = mem.ID
	}
	if err := m.engine.db.TouchMemories(ctx, ids); err != nil {
		// Usage bookkeeping failing should not lose the recall result.
		m.engine.log.Warn("touch memories failed", zap.Error(err))
	}

	m.engine.log.Debug("recall",
		zap.String("role", string(m.role)),
		zap.String("category", opts.Category),
		zap.String("strategy", string(strategy)),
		zap.Int("results", len(memories)))

	return &types.RecallResult{Memories: memories, Strategy: strategy}, nil
}

// LearnFromOthers retrieves cross-role memories in the given category.
// Roles without cross-role read permission get an empty result.
func (m *Manager) LearnFromOthers(ctx context.Context, category string, minQuality float64, limit int) ([]*types.Memory, error) {
	if !m.role.CanReadCrossRole() {
		return nil, nil
	}
	if limit <= 0 {
		limit = m.engine.config.MaxContextMemories
	}

	filter := db.Filter{
		AllRoles:      true,
		Project:       m.project,
		IncludeGlobal: true,
		Category:      category,
	}
	candidates, err := m.engine.db.ListMemories(ctx, filter)
	if err != nil {
		return nil, err
	}

	// Other roles only: the caller already has its own memories via Recall.
	var others []*types.Memory
	for _, mem := range candidates {
		if mem.AgentRole != m.role {
			others = append(others, mem)
		}
	}

	ranked := rankByQuality(others, minQuality)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	ids := make([]string, len(ranked))
	for i, mem := range ranked {
		ids[i] = mem.ID
	}
	if err := m.engine.db.TouchMemories(ctx, ids); err != nil {
		m.engine.log.Warn("touch memories failed", zap.Error(err))
	}

	return ranked, nil
}

// simpleRetrieve is the full-scan path: every matching non-superseded memory
// above the quality floor, ordered by (quality desc, recency desc).
func (m *Manager) simpleRetrieve(ctx context.Context, filter db.Filter, minQuality float64, limit int) ([]*types.Memory, error) {
	candidates, err := m.engine.db.ListMemories(ctx, filter)
	if err != nil {
		return nil, err
	}
	ranked := rankByQuality(candidates, minQuality)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

const maxRetrieveIterations = 3

// iterativeRetrieve is the plan/search/evaluate path for large knowledge
// bases: narrow by keyword match, expand through the similarity
// neighborhood, re-rank, and stop once the candidate set stabilizes.
func (m *Manager) iterativeRetrieve(ctx context.Context, filter db.Filter, minQuality float64, limit int) ([]*types.Memory, error) {
	// Narrow: seed from the full-text index using the category as the
	// keyword source, falling back to a filtered scan.
	tokens := tokenSlice(similarity.Tokenize(filter.Category))
	seedIDs, err := m.engine.db.KeywordSearch(ctx, tokens, limit*4)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]*types.Memory)
	for _, id := range seedIDs {
		mem, err := m.engine.db.GetMemory(ctx, id)
		if err != nil {
			continue
		}
		if m.admissible(mem, filter) {
			candidates[mem.ID] = mem
		}
	}
	if len(candidates) == 0 {
		scan, err := m.engine.db.ListMemories(ctx, db.Filter{
			Role:              filter.Role,
			Project:           filter.Project,
			IncludeGlobal:     filter.IncludeGlobal,
			Category:          filter.Category,
			IncludeSuperseded: filter.IncludeSuperseded,
			Limit:             limit * 4,
		})
		if err != nil {
			return nil, err
		}
		for _, mem := range scan {
			candidates[mem.ID] = mem
		}
	}

	for i := 0; i < maxRetrieveIterations; i++ {
		before := len(candidates)

		// Expand through the 2-hop similarity neighborhood of the current
		// candidate set.
		for _, mem := range snapshot(candidates) {
			neighbors, err := m.engine.db.Neighbors(ctx, mem.ID, 2, types.EdgeSimilarTo)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if m.admissible(n, filter) {
					candidates[n.ID] = n
				}
			}
		}

		// Evaluate: keep only the strongest candidates for the next round.
		ranked := rankByQuality(snapshot(candidates), minQuality)
		if len(ranked) > limit*4 {
			ranked = ranked[:limit*4]
		}
		candidates = make(map[string]*types.Memory, len(ranked))
		for _, mem := range ranked {
			candidates[mem.ID] = mem
		}

		if len(candidates) == before {
			break
		}
	}

	ranked := rankByQuality(snapshot(candidates), minQuality)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// admissible checks owner, scope, category, and supersession constraints for
// memories surfaced by keyword or neighborhood expansion.
func (m *Manager) admissible(mem *types.Memory, filter db.Filter) bool {
	if mem == nil {
		return false
	}
	if !filter.AllRoles && mem.AgentRole != filter.Role {
		return false
	}
	if mem.Project != "" {
		if filter.Project == "" || mem.Project != filter.Project {
			return false
		}
	} else if !filter.IncludeGlobal {
		return false
	}
	if filter.Category != "" && mem.Category != filter.Category {
		return false
	}
	if mem.Superseded && !filter.IncludeSuperseded {
		return false
	}
	return true
}

// rankByQuality computes quality scores, drops memories below the floor, and
// orders by (quality desc, recency desc).
func rankByQuality(memories []*types.Memory, minQuality float64) []*types.Memory {
	var kept []*types.Memory
	for _, mem := range memories {
		mem.Quality = ComputeQuality(mem)
		if mem.Quality >= minQuality {
			kept = append(kept, mem)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Quality != kept[j].Quality {
			return kept[i].Quality > kept[j].Quality
		}
		return kept[i].Seq > kept[j].Seq
	})
	return kept
}

// ComputeQuality derives the 0-1 ranking signal for a memory. Always
// recomputed on read, never persisted.
func ComputeQuality(m *types.Memory) float64 {
	score := 0.5
	if m.Metadata.Outcome != "" {
		score += 0.2
	}
	if m.Metadata.Reasoning != "" {
		score += 0.15
	}
	if m.Type == types.TypeAntiPattern {
		score += 0.2
	}
	if m.Metadata.Success {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Get retrieves a specific memory by ID
func (e *Engine) Get(ctx context.Context, id string) (*types.Memory, error) {
	m, err := e.db.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Quality = ComputeQuality(m)
	return m, nil
}

// List returns memories matching the filter, quality annotated
func (e *Engine) List(ctx context.Context, f db.Filter) ([]*types.Memory, error) {
	memories, err := e.db.ListMemories(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, m := range memories {
		m.Quality = ComputeQuality(m)
	}
	return memories, nil
}

// Delete removes a memory and its edges
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.db.DeleteMemory(ctx, id)
}

// Reference links a memory to an external code entity
func (e *Engine) Reference(ctx context.Context, memoryID, entity string) (*types.Edge, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	edge := &types.Edge{
		ID:        generateID(),
		FromID:    memoryID,
		ToID:      entity,
		Type:      types.EdgeReferences,
		CreatedAt: timeNow(),
	}
	if err := e.db.InsertEdge(ctx, edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// Edges returns a memory's outgoing and incoming edges of the given type
func (e *Engine) Edges(ctx context.Context, memoryID string, edgeType types.EdgeType) ([]*types.Edge, error) {
	out, err := e.db.OutgoingEdges(ctx, memoryID, edgeType)
	if err != nil {
		return nil, err
	}
	in, err := e.db.IncomingEdges(ctx, memoryID, edgeType)
	if err != nil {
		return nil, err
	}
	return append(out, in...), nil
}

// Stats returns store statistics
func (e *Engine) Stats(ctx context.Context) (map[string]int, error) {
	return e.db.Stats(ctx)
}

func snapshot(m map[string]*types.Memory) []*types.Memory {
	out := make([]*types.Memory, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func tokenSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
