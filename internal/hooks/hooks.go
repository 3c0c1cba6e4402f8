// Package hooks adapts pre-task and post-task agent lifecycle events into
// memory engine calls. This is the one boundary where the engine talks to
// the outside world, and it must never block or break the calling agent:
// every failure here degrades into "no memory", never into an error the
// agent sees.
package hooks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/strandmem/strand/internal/core"
	"github.com/strandmem/strand/pkg/types"
)

// Call bounds. Exceeding them is a soft failure, never a hang.
const (
	recallTimeout   = 100 * time.Millisecond
	rememberTimeout = 200 * time.Millisecond
)

// Adapter translates hook payloads into Memory Manager calls
type Adapter struct {
	engine *core.Engine
	config *types.Config
	log    *zap.Logger
}

// NewAdapter creates a hook adapter around an engine
func NewAdapter(engine *core.Engine, cfg *types.Config, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{engine: engine, config: cfg, log: logger}
}

// PreTaskInput is the payload delivered before an agent runs
type PreTaskInput struct {
	AgentRole    string `json:"agent_role"`
	Task         string `json:"task"`
	TaskCategory string `json:"task_category,omitempty"`
	Project      string `json:"project,omitempty"`
}

// PostTaskInput is the payload delivered after an agent finishes
type PostTaskInput struct {
	AgentRole    string `json:"agent_role"`
	Task         string `json:"task"`
	TaskCategory string `json:"task_category,omitempty"`
	Project      string `json:"project,omitempty"`
	Output       string `json:"output"`
	Success      bool   `json:"success"`
	DurationMS   int64  `json:"duration_ms,omitempty"`
}

// PreTask retrieves relevant memories and formats them into a bounded
// context block for prompt injection. Returns the empty string when memory
// is disabled or anything fails: the agent then runs exactly as if memory
// were never enabled.
func (a *Adapter) PreTask(ctx context.Context, in PreTaskInput) string {
	if !a.config.Enabled {
		return ""
	}

	role, err := types.ParseRole(in.AgentRole)
	if err != nil {
		a.log.Warn("pre-task hook skipped", zap.Error(err))
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, recallTimeout)
	defer cancel()

	project := in.Project
	if project == "" {
		project = a.config.DefaultProject
	}
	mgr := a.engine.Manager(role, project)

	result, err := mgr.Recall(ctx, types.RecallOptions{
		Category:      in.TaskCategory,
		MinQuality:    a.config.MinQualityThreshold,
		IncludeGlobal: true,
		Limit:         sameRoleLimit,
	})
	if err != nil {
		a.log.Warn("pre-task recall failed", zap.Error(err))
		return ""
	}

	var crossRole []*types.Memory
	if role.CanReadCrossRole() {
		crossRole, err = mgr.LearnFromOthers(ctx, in.TaskCategory, a.config.MinQualityThreshold, crossRoleLimit)
		if err != nil {
			// Same-role memories are still worth injecting.
			a.log.Warn("pre-task cross-role recall failed", zap.Error(err))
			crossRole = nil
		}
	}

	return FormatContext(role, result.Memories, crossRole)
}

// PostTask extracts structured learnings from agent output and stores each
// one. Returns the number of learnings stored; failures are logged and
// swallowed. Output with no extractable pattern is not an error, it simply
// stores nothing.
func (a *Adapter) PostTask(ctx context.Context, in PostTaskInput) int {
	if !a.config.Enabled {
		return 0
	}

	role, err := types.ParseRole(in.AgentRole)
	if err != nil {
		a.log.Warn("post-task hook skipped", zap.Error(err))
		return 0
	}

	learnings := ExtractLearnings(in.Output)
	if len(learnings) == 0 {
		return 0
	}

	project := in.Project
	if project == "" {
		project = a.config.DefaultProject
	}
	mgr := a.engine.Manager(role, project)

	category := in.TaskCategory
	if category == "" {
		category = "general"
	}

	stored := 0
	for _, l := range learnings {
		callCtx, cancel := context.WithTimeout(ctx, rememberTimeout)
		_, err := mgr.Remember(callCtx, l.Content, types.RememberOptions{
			Category:   category,
			Type:       l.Type,
			Tags:       l.Tags,
			Confidence: l.Confidence,
			Scope:      types.ScopeProject,
			Metadata: types.Metadata{
				SourceTask: in.Task,
				Success:    in.Success,
				DurationMS: in.DurationMS,
			},
		})
		cancel()
		if err != nil {
			a.log.Warn("post-task remember failed", zap.Error(err))
			continue
		}
		stored++
	}

	a.log.Debug("post-task hook done",
		zap.String("role", in.AgentRole),
		zap.Int("extracted", len(learnings)),
		zap.Int("stored", stored))

	return stored
}
