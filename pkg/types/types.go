// Package types defines the core data structures for Strand
package types

import (
	"fmt"
	"time"
)

// AgentRole identifies an agent role. Memories are owned by a role, not by an
// individual agent instance, so every architect shares what any architect
// learned. The set of roles is closed: unknown role strings are a parse
// error, never a silent no-op.
type AgentRole string

const (
	RoleArchitect AgentRole = "architect"
	RoleBuilder   AgentRole = "builder"
	RoleReviewer  AgentRole = "reviewer"
	RoleTester    AgentRole = "tester"
	RoleOptimizer AgentRole = "optimizer"
)

// AllRoles lists every known role, in stable order.
var AllRoles = []AgentRole{RoleArchitect, RoleBuilder, RoleReviewer, RoleTester, RoleOptimizer}

// ParseRole maps a role string onto the closed role set.
func ParseRole(s string) (AgentRole, error) {
	for _, r := range AllRoles {
		if s == string(r) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown agent role %q", ErrValidation, s)
}

// CanReadCrossRole reports whether this role may read other roles' memories
// via LearnFromOthers. Architects and builders coordinate across the whole
// task, so they get the wider view; the rest stay inside their own lane.
func (r AgentRole) CanReadCrossRole() bool {
	return r == RoleArchitect || r == RoleBuilder
}

// MemoryType categorizes what kind of knowledge a memory holds
type MemoryType string

const (
	TypeDeclarative MemoryType = "declarative"  // A fact or decision
	TypeProcedural  MemoryType = "procedural"   // How to do something
	TypeAntiPattern MemoryType = "anti_pattern" // Something to avoid
)

// ParseMemoryType validates a memory type string.
func ParseMemoryType(s string) (MemoryType, error) {
	switch MemoryType(s) {
	case TypeDeclarative, TypeProcedural, TypeAntiPattern:
		return MemoryType(s), nil
	}
	return "", fmt.Errorf("%w: unknown memory type %q", ErrValidation, s)
}

// Scope is the visibility boundary for a memory
type Scope string

const (
	ScopeGlobal  Scope = "global"  // Visible to every project
	ScopeProject Scope = "project" // Visible only within the owning project
)

// Memory represents a single stored fact, lesson, or anti-pattern
type Memory struct {
	ID         string     `json:"id"`
	Seq        int64      `json:"seq"` // Creation order index, assigned by the store
	AgentRole  AgentRole  `json:"agent_role"`
	Project    string     `json:"project,omitempty"` // Empty for global scope
	Content    string     `json:"content"`
	Category   string     `json:"category"`
	Type       MemoryType `json:"memory_type"`
	Tags       []string   `json:"tags,omitempty"`
	Confidence float64    `json:"confidence"`
	Quality    float64    `json:"quality_score"` // Derived on read, never persisted
	UsageCount int        `json:"usage_count"`
	Superseded bool       `json:"superseded"`
	Metadata   Metadata   `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AccessedAt time.Time  `json:"accessed_at"`
}

// Scope reports the memory's visibility boundary, derived from the scope edge.
func (m *Memory) Scope() Scope {
	if m.Project == "" {
		return ScopeGlobal
	}
	return ScopeProject
}

// Metadata holds optional provenance for a memory
type Metadata struct {
	SourceTask string            `json:"source_task,omitempty"` // Task that produced this memory
	Outcome    string            `json:"outcome,omitempty"`     // What happened as a result
	Reasoning  string            `json:"reasoning,omitempty"`   // Why the agent believes this
	Success    bool              `json:"success,omitempty"`     // Whether the source task succeeded
	DurationMS int64             `json:"duration_ms,omitempty"`
	ExtraData  map[string]string `json:"extra,omitempty"`
}

// EdgeType defines how two graph nodes are connected
type EdgeType string

const (
	EdgeSimilarTo  EdgeType = "similar_to" // Lexical/tag/category overlap above threshold
	EdgeSupersedes EdgeType = "supersedes" // Newer memory invalidates or updates an older one
	EdgeReferences EdgeType = "references" // Link into an externally-owned code graph
)

// Edge represents a directed, typed connection between two memories
type Edge struct {
	ID        string    `json:"id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Type      EdgeType  `json:"type"`
	Weight    float64   `json:"weight,omitempty"` // Similarity score for similar_to edges
	CreatedAt time.Time `json:"created_at"`
}

// RecallIntent hints at why a recall is happening. Some intents always take
// the simple retrieval path because exhaustive context is cheaper and more
// reliable for them than iterative narrowing.
type RecallIntent string

const (
	IntentDefault           RecallIntent = ""
	IntentSimpleRecall      RecallIntent = "simple_recall"
	IntentIncrementalUpdate RecallIntent = "incremental_update"
)

// RetrievalStrategy names which recall path answered a query
type RetrievalStrategy string

const (
	StrategySimple    RetrievalStrategy = "simple"
	StrategyIterative RetrievalStrategy = "iterative"
)

// RememberOptions configures how a memory is stored
type RememberOptions struct {
	Category   string
	Type       MemoryType
	Tags       []string
	Confidence float64
	Scope      Scope
	Metadata   Metadata
}

// RecallOptions configures how memories are retrieved
type RecallOptions struct {
	Category        string
	MinQuality      float64
	IncludeGlobal   bool
	IncludeOutdated bool // Include superseded memories (historical view)
	Limit           int
	Intent          RecallIntent
}

// RecallResult wraps recalled memories with retrieval telemetry
type RecallResult struct {
	Memories []*Memory         `json:"memories"`
	Strategy RetrievalStrategy `json:"strategy"`
}

// ConsolidationReport summarizes one consolidation pass
type ConsolidationReport struct {
	SupersededFlagged int `json:"superseded_flagged"`
	Promoted          int `json:"promoted"`
	Expired           int `json:"expired"`
}

// Changed reports whether the pass mutated anything.
func (r ConsolidationReport) Changed() bool {
	return r.SupersededFlagged > 0 || r.Promoted > 0 || r.Expired > 0
}

// Config holds Strand configuration. It is loaded once at session start and
// passed by injection; nothing mutates it at runtime.
type Config struct {
	DBPath                string  `json:"db_path"`
	Enabled               bool    `json:"enabled"` // Opt-in: memory is off until enabled
	DefaultProject        string  `json:"default_project,omitempty"`
	MinQualityThreshold   float64 `json:"min_quality_threshold"`
	MaxContextMemories    int     `json:"max_context_memories"`
	IterativeThreshold    int     `json:"iterative_threshold"` // Candidate count above which recall goes iterative
	SimilarityThreshold   float64 `json:"similarity_threshold"`
	ConsolidationEnabled  bool    `json:"consolidation_enabled"`
	PromoteUsageThreshold int     `json:"promote_usage_threshold"`
}

// DefaultConfig returns the stock configuration. Memory is disabled until the
// user opts in.
func DefaultConfig() *Config {
	return &Config{
		Enabled:               false,
		MinQualityThreshold:   0.6,
		MaxContextMemories:    10,
		IterativeThreshold:    150,
		SimilarityThreshold:   0.3,
		ConsolidationEnabled:  true,
		PromoteUsageThreshold: 3,
	}
}
