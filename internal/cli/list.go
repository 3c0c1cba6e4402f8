package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/strandmem/strand/internal/db"
	"github.com/strandmem/strand/pkg/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored memories",
	Long: `List stored memories with optional filters.

Examples:
  strand list
  strand list --role architect
  strand list --category implementation --limit 20
  strand list --include-superseded`,
	RunE: runList,
}

var (
	listLimit             int
	listRole              string
	listCategory          string
	listProject           string
	listIncludeSuperseded bool
)

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum results")
	listCmd.Flags().StringVarP(&listRole, "role", "r", "", "Filter by agent role")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "Filter by category")
	listCmd.Flags().StringVar(&listProject, "project", "", "Filter by project")
	listCmd.Flags().BoolVar(&listIncludeSuperseded, "include-superseded", false, "Include superseded memories")
}

func runList(cmd *cobra.Command, args []string) error {
	filter := db.Filter{
		Category:          listCategory,
		IncludeSuperseded: listIncludeSuperseded,
		Limit:             listLimit,
	}
	if listRole != "" {
		role, err := types.ParseRole(listRole)
		if err != nil {
			return err
		}
		filter.Role = role
	} else {
		filter.AllRoles = true
	}
	if listProject != "" {
		filter.Project = listProject
		filter.IncludeGlobal = true
	} else {
		filter.AnyProject = true
	}

	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	memories, err := engine.List(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if len(memories) == 0 {
		fmt.Println("No memories found.")
		return nil
	}

	if verbose {
		printJSON(memories)
	} else {
		// Table header
		fmt.Printf("%-10s %-12s %-16s %-7s %-12s %s\n", "ROLE", "TYPE", "CATEGORY", "QUALITY", "CREATED", "CONTENT")
		fmt.Println(strings.Repeat("-", 100))

		for _, m := range memories {
			typeStr := string(m.Type)
			if len(typeStr) > 12 {
				typeStr = typeStr[:12]
			}

			category := m.Category
			if len(category) > 16 {
				category = category[:13] + "..."
			}

			contentPreview := truncate(m.Content, 40)
			if m.Superseded {
				contentPreview = "(superseded) " + contentPreview
			}

			fmt.Printf("%-10s %-12s %-16s %-7.2f %-12s %s\n",
				m.AgentRole, typeStr, category, m.Quality, formatTimeAgo(m.CreatedAt), contentPreview)
		}

		fmt.Printf("\nTotal: %d memories\n", len(memories))
	}

	return nil
}

func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
