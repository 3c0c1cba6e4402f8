package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strandmem/strand/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start the Model Context Protocol (MCP) server.

This exposes Strand's memory operations as tools for AI agents, alongside
the pre-task/post-task hook commands.

The server communicates over stdio using JSON-RPC.

Example usage with Claude Desktop:
  Add to claude_desktop_config.json:
  {
    "mcpServers": {
      "strand": {
        "command": "strand",
        "args": ["mcp", "-d", "/path/to/project"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, cfg, err := getEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	server := mcp.NewServer(engine, cfg)
	return server.Run()
}
