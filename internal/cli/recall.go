package cli

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/strandmem/strand/pkg/types"
)

var recallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Retrieve memories for an agent role",
	Long: `Retrieve memories for an agent role, ranked by quality and recency.

The retrieval strategy (simple full scan vs. iterative graph narrowing) is
chosen automatically from the knowledge-base size unless forced by intent.

Examples:
  strand recall -r architect -c system_design
  strand recall -r builder -c implementation --limit 10
  strand recall -r reviewer -c review --include-outdated
  strand recall -r architect -c api_design --intent simple_recall`,
	RunE: runRecall,
}

var (
	recallRole            string
	recallCategory        string
	recallLimit           int
	recallMinQuality      float64
	recallProject         string
	recallIncludeOutdated bool
	recallIntent          string
	recallCrossRole       bool
)

func init() {
	recallCmd.Flags().StringVarP(&recallRole, "role", "r", "", "Agent role (required)")
	recallCmd.Flags().StringVarP(&recallCategory, "category", "c", "", "Filter by category")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 0, "Maximum results (default: config max_context_memories)")
	recallCmd.Flags().Float64Var(&recallMinQuality, "min-quality", -1, "Minimum quality score (default: config threshold)")
	recallCmd.Flags().StringVar(&recallProject, "project", "", "Project scope (default: config default project)")
	recallCmd.Flags().BoolVar(&recallIncludeOutdated, "include-outdated", false, "Include superseded memories")
	recallCmd.Flags().StringVar(&recallIntent, "intent", "", "Recall intent (simple_recall, incremental_update)")
	recallCmd.Flags().BoolVar(&recallCrossRole, "cross-role", false, "Also show what other roles learned (permitted roles only)")
	recallCmd.MarkFlagRequired("role")
}

func runRecall(cmd *cobra.Command, args []string) error {
	role, err := types.ParseRole(recallRole)
	if err != nil {
		return err
	}

	engine, cfg, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	project := recallProject
	if project == "" {
		project = cfg.DefaultProject
	}

	minQuality := recallMinQuality
	if minQuality < 0 {
		minQuality = cfg.MinQualityThreshold
	}

	mgr := engine.Manager(role, project)
	result, err := mgr.Recall(context.Background(), types.RecallOptions{
		Category:        recallCategory,
		MinQuality:      minQuality,
		IncludeGlobal:   true,
		IncludeOutdated: recallIncludeOutdated,
		Limit:           recallLimit,
		Intent:          types.RecallIntent(recallIntent),
	})
	if err != nil {
		return fmt.Errorf("recall failed: %w", err)
	}

	if len(result.Memories) == 0 {
		fmt.Println("No memories found.")
		return nil
	}

	if verbose {
		printJSON(result)
	} else {
		fmt.Printf("Strategy: %s\n", result.Strategy)
		for i, m := range result.Memories {
			fmt.Printf("\n[%d] %s (quality %.2f, confidence %.2f)\n", i+1, formatType(m.Type), m.Quality, m.Confidence)
			fmt.Printf("    ID: %s\n", m.ID)
			fmt.Printf("    Category: %s  Scope: %s\n", m.Category, m.Scope())
			fmt.Printf("    Content: %s\n", truncate(m.Content, 200))
			if len(m.Tags) > 0 {
				fmt.Printf("    Tags: %s\n", strings.Join(m.Tags, ", "))
			}
		}
	}

	if recallCrossRole {
		others, err := mgr.LearnFromOthers(context.Background(), recallCategory, minQuality, 3)
		if err != nil {
			printError("cross-role recall failed: %v", err)
		} else if len(others) > 0 {
			fmt.Println("\nFrom other roles:")
			for _, m := range others {
				fmt.Printf("  [%s] %s\n", m.AgentRole, truncate(m.Content, 120))
			}
		}
	}

	return nil
}

func formatType(t types.MemoryType) string {
	switch t {
	case types.TypeProcedural:
		return "PROCEDURAL"
	case types.TypeAntiPattern:
		return "ANTI-PATTERN"
	default:
		return "DECLARATIVE"
	}
}

func truncate(s string, maxLen int) string {
	// Replace newlines with spaces for single-line display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
