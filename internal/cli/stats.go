package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory store statistics",
	Long: `Show statistics about the Strand memory store.

Examples:
  strand stats`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if verbose {
		printJSON(stats)
	} else {
		fmt.Println("Strand Statistics")
		fmt.Println("─────────────────")
		fmt.Printf("Memories:         %d (%d superseded)\n", stats["memories"], stats["superseded"])
		fmt.Printf("Roles:            %d\n", stats["roles"])
		fmt.Printf("Projects:         %d\n", stats["projects"])
		fmt.Printf("Similarity edges: %d\n", stats["similar_to"])
		fmt.Printf("Supersessions:    %d\n", stats["supersedes"])
		fmt.Printf("Code references:  %d\n", stats["references"])
	}

	return nil
}
