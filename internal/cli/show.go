package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strandmem/strand/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a memory",
	Long: `Show full details of a specific memory including its graph edges.

Examples:
  strand show 5f0c4a6e-...
  strand show 5f0c4a6e-... --edges=false`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var showEdges bool

func init() {
	showCmd.Flags().BoolVar(&showEdges, "edges", true, "Show similarity/supersession/reference edges")
}

func runShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := context.Background()

	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	memory, err := engine.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get memory: %w", err)
	}

	if verbose {
		printJSON(memory)
	} else {
		fmt.Printf("┌─────────────────────────────────────────────────────────────┐\n")
		fmt.Printf("│ %s\n", memory.ID)
		fmt.Printf("├─────────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Owner:      %s\n", memory.AgentRole)
		fmt.Printf("│ Scope:      %s", memory.Scope())
		if memory.Project != "" {
			fmt.Printf(" (%s)", memory.Project)
		}
		fmt.Println()
		fmt.Printf("│ Type:       %s\n", formatType(memory.Type))
		fmt.Printf("│ Category:   %s\n", memory.Category)
		if len(memory.Tags) > 0 {
			fmt.Printf("│ Tags:       %s\n", strings.Join(memory.Tags, ", "))
		}
		fmt.Printf("│ Confidence: %.2f   Quality: %.2f\n", memory.Confidence, memory.Quality)
		fmt.Printf("│ Superseded: %v\n", memory.Superseded)
		fmt.Printf("│ Created:    %s\n", memory.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("│ Accessed:   %s (%d times)\n", memory.AccessedAt.Format("2006-01-02 15:04"), memory.UsageCount)
		fmt.Printf("├─────────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Content:\n")
		for _, line := range strings.Split(memory.Content, "\n") {
			fmt.Printf("│   %s\n", line)
		}
		fmt.Printf("└─────────────────────────────────────────────────────────────┘\n")
	}

	if showEdges {
		for _, edgeType := range []types.EdgeType{types.EdgeSimilarTo, types.EdgeSupersedes, types.EdgeReferences} {
			edges, err := engine.Edges(ctx, id, edgeType)
			if err != nil {
				printError("failed to get %s edges: %v", edgeType, err)
				continue
			}
			if len(edges) == 0 {
				continue
			}
			fmt.Printf("\n%s:\n", edgeType)
			for _, e := range edges {
				direction := "→"
				otherID := e.ToID
				if e.ToID == id {
					direction = "←"
					otherID = e.FromID
				}
				fmt.Printf("  %s %s", direction, otherID)
				if e.Type == types.EdgeSimilarTo {
					fmt.Printf(" (weight %.2f)", e.Weight)
				}
				fmt.Println()
			}
		}
	}

	return nil
}
