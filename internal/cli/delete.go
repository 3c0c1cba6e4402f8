package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a memory",
	Long: `Delete a memory and every edge touching it.

Normally memories are retired by supersession and consolidation expiry;
delete is the manual override.

Examples:
  strand delete 5f0c4a6e-...
  strand delete 5f0c4a6e-... --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteForce bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	// Confirm deletion
	if !deleteForce {
		fmt.Printf("Memory to delete:\n")
		fmt.Printf("  ID: %s\n", memory.ID)
		fmt.Printf("  Owner: %s\n", memory.AgentRole)
		fmt.Printf("  Content: %s\n", truncate(memory.Content, 100))
		fmt.Print("\nAre you sure? (y/N): ")

		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := engine.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	fmt.Printf("✓ Deleted memory: %s\n", id)

	return nil
}
