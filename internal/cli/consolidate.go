package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run the end-of-session consolidation pass",
	Long: `Run the end-of-session consolidation pass over the store:

  - memories with incoming supersedes edges get their superseded flag set
  - high-quality, well-used project memories are promoted to global scope
  - stale low-quality or never-used old memories are expired

The pass is idempotent: running it twice changes nothing the second time.

Examples:
  strand consolidate
  strand consolidate -v`,
	RunE: runConsolidate,
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	engine, cfg, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if !cfg.ConsolidationEnabled {
		fmt.Println("Consolidation is disabled in config.")
		return nil
	}

	report, err := engine.Consolidate(context.Background())
	if err != nil {
		return fmt.Errorf("consolidation failed: %w", err)
	}

	if verbose {
		printJSON(report)
	} else {
		fmt.Println("✓ Consolidation complete")
		fmt.Printf("  Superseded flagged: %d\n", report.SupersededFlagged)
		fmt.Printf("  Promoted to global: %d\n", report.Promoted)
		fmt.Printf("  Expired:            %d\n", report.Expired)
	}

	return nil
}
