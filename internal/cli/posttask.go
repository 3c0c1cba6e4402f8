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

var postTaskCmd = &cobra.Command{
	Use:   "post-task",
	Short: "Post-task hook: harvest learnings from agent output",
	Long: `Post-task hook adapter. Reads the hook payload from stdin as JSON:

  {"agent_role": "builder", "task": "add auth", "task_category": "implementation",
   "output": "...agent output...", "success": true, "duration_ms": 5400}

extracts structured learnings (Decision:, Recommendation:, Warning:,
Error:/Solution: patterns) from the output and stores each one. Prints the
number stored. Failures are swallowed: a broken memory store must not fail
the agent's session.`,
	RunE: runPostTask,
}

func runPostTask(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil
	}

	var in hooks.PostTaskInput
	if err := json.Unmarshal(data, &in); err != nil {
		printError("invalid post-task payload: %v", err)
		return nil
	}

	engine, cfg, err := getEngine()
	if err != nil {
		return nil
	}
	defer engine.Close()

	adapter := hooks.NewAdapter(engine, cfg, getLogger())
	stored := adapter.PostTask(context.Background(), in)
	fmt.Printf("%d\n", stored)
	return nil
}
