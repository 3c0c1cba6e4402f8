// Package cli implements the Strand command-line interface
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strandmem/strand/internal/core"
	"github.com/strandmem/strand/pkg/types"
)

const (
	configDir  = ".strand"
	configFile = "config.json"
	dbFile     = "strand.db"
)

var (
	// Global flags
	projectDir string
	verbose    bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "strand",
		Short: "Strand - Graph memory for coding agents",
		Long: `Strand is a persistent, graph-structured memory engine for
autonomous coding agents.

Agents of the same role share what any of them learned; projects stay
isolated unless a memory earns global scope. Pre-task and post-task hooks
inject and harvest memories around each agent turn.

Use 'strand init' to initialize a new memory store.`,
	}
)

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "d", "", "Store directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(preTaskCmd)
	rootCmd.AddCommand(postTaskCmd)
}

// getProjectDir returns the store directory
func getProjectDir() string {
	if projectDir != "" {
		return projectDir
	}
	cwd, _ := os.Getwd()
	return cwd
}

// getConfigPath returns the path to the config directory
func getConfigPath() string {
	return filepath.Join(getProjectDir(), configDir)
}

// loadConfig loads the configuration. It is read once per invocation and
// never mutated at runtime.
func loadConfig() (*types.Config, error) {
	configPath := filepath.Join(getConfigPath(), configFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config not found. Run 'strand init' first")
	}

	cfg := types.DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(getConfigPath(), dbFile)
	}

	return cfg, nil
}

// saveConfig saves the configuration
func saveConfig(cfg *types.Config) error {
	configPath := filepath.Join(getConfigPath(), configFile)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// getLogger builds the CLI logger: quiet by default, structured stderr
// output under --verbose.
func getLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// getEngine creates and returns a Strand engine
func getEngine() (*core.Engine, *types.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	engine, err := core.New(cfg, getLogger())
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

// printJSON prints a value as JSON
func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
