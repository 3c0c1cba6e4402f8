package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var relateCmd = &cobra.Command{
	Use:   "relate <memory-id> <code-entity>",
	Short: "Link a memory to a code entity",
	Long: `Create a references edge from a memory to an external code entity.

Similarity and supersession edges are built automatically at store time;
references links are the one edge kind created by hand, pointing into a
separately-owned code graph (a file, symbol, or module identifier).

Examples:
  strand relate 5f0c4a6e-... internal/auth/jwt.go
  strand relate 5f0c4a6e-... "pkg/api.Server.Start"`,
	Args: cobra.ExactArgs(2),
	RunE: runRelate,
}

func runRelate(cmd *cobra.Command, args []string) error {
	memoryID := args[0]
	entity := args[1]

	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	edge, err := engine.Reference(context.Background(), memoryID, entity)
	if err != nil {
		return fmt.Errorf("failed to create reference: %w", err)
	}

	if verbose {
		printJSON(edge)
	} else {
		fmt.Printf("✓ Created reference: %s -[references]-> %s\n", memoryID, entity)
	}

	return nil
}
