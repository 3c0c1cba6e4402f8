package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/strandmem/strand/internal/hooks"
)

var preTaskCmd = &cobra.Command{
	Use:   "pre-task",
	Short: "Pre-task hook: print memory context for an agent turn",
	Long: `Pre-task hook adapter. Reads the hook payload from stdin as JSON:

  {"agent_role": "architect", "task": "design auth", "task_category": "system_design"}

and prints a bounded context block of relevant memories to stdout. Prints
nothing when memory is disabled or retrieval fails — the calling agent must
never be blocked or broken by its memory.`,
	RunE: runPreTask,
}

func runPreTask(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil // Soft failure: no payload, no context
	}

	var in hooks.PreTaskInput
	if err := json.Unmarshal(data, &in); err != nil {
		printError("invalid pre-task payload: %v", err)
		return nil
	}

	engine, cfg, err := getEngine()
	if err != nil {
		// Store unavailable behaves exactly like memory disabled.
		return nil
	}
	defer engine.Close()

	adapter := hooks.NewAdapter(engine, cfg, getLogger())
	block := adapter.PreTask(context.Background(), in)
	if block != "" {
		fmt.Println(block)
	}
	return nil
}
