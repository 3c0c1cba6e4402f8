package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/strandmem/strand/internal/db"
	"github.com/strandmem/strand/pkg/types"
)

// Consolidation thresholds. Promotion lifts a memory to global scope once it
// has proven itself; expiry clears out stale, unused, low-quality records.
const (
	promotionQuality = 0.85
	staleQuality     = 0.5
	staleAge         = 90 * 24 * time.Hour
	unusedAge        = 60 * 24 * time.Hour
)

// Consolidate runs the end-of-session batch pass over the whole store:
//
//  1. memories with incoming supersedes edges get their superseded flag set
//  2. high-quality, well-used project memories are promoted to global scope
//  3. stale low-quality or never-used old memories are expired
//
// The pass is idempotent: running it twice produces no further change.
// All mutations commit as one transaction: an interrupted pass leaves the
// store exactly as it was.
func (e *Engine) Consolidate(ctx context.Context) (types.ConsolidationReport, error) {
	var report types.ConsolidationReport

	if !e.config.ConsolidationEnabled {
		return report, nil
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return report, err
	}
	defer tx.Rollback()

	memories, err := tx.ListMemories(ctx, db.Filter{AllRoles: true, AnyProject: true, IncludeSuperseded: true})
	if err != nil {
		return report, err
	}

	now := timeNow()
	for _, m := range memories {
		m.Quality = ComputeQuality(m)

		if !m.Superseded {
			incoming, err := tx.IncomingEdges(ctx, m.ID, types.EdgeSupersedes)
			if err != nil {
				return types.ConsolidationReport{}, err
			}
			if len(incoming) > 0 {
				if err := tx.SetSuperseded(ctx, m.ID); err != nil {
					return types.ConsolidationReport{}, err
				}
				m.Superseded = true
				report.SupersededFlagged++
			}
		}

		age := now.Sub(m.CreatedAt)
		expired := (age > staleAge && m.Quality < staleQuality) ||
			(m.UsageCount == 0 && age > unusedAge)
		if expired {
			if err := tx.DeleteMemory(ctx, m.ID); err != nil {
				return types.ConsolidationReport{}, err
			}
			report.Expired++
			continue
		}

		if m.Project != "" && m.Quality >= promotionQuality &&
			m.UsageCount >= e.config.PromoteUsageThreshold {
			if err := tx.PromoteToGlobal(ctx, m.ID); err != nil {
				return types.ConsolidationReport{}, err
			}
			report.Promoted++
		}
	}

	if err := tx.Commit(); err != nil {
		return types.ConsolidationReport{}, err
	}

	e.log.Info("consolidation complete",
		zap.Int("superseded_flagged", report.SupersededFlagged),
		zap.Int("promoted", report.Promoted),
		zap.Int("expired", report.Expired))

	return report, nil
}
