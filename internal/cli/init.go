package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strandmem/strand/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Strand memory store",
	Long: `Initialize a new Strand memory store in the current directory.

This creates a .strand directory with configuration and database files.
Memory stays disabled until initialized with --enable or the config's
"enabled" flag is set: the engine is strictly opt-in.`,
	RunE: runInit,
}

var (
	initEnable  bool
	initProject string
)

func init() {
	initCmd.Flags().BoolVar(&initEnable, "enable", false, "Enable memory immediately")
	initCmd.Flags().StringVar(&initProject, "project", "", "Default project scope for this store")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	// Check if already initialized
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("strand already initialized in this directory")
	}

	// Create config directory
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create config
	cfg := types.DefaultConfig()
	cfg.DBPath = filepath.Join(configPath, dbFile)
	cfg.Enabled = initEnable
	cfg.DefaultProject = initProject

	// Save config
	if err := saveConfig(cfg); err != nil {
		os.RemoveAll(configPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Initialize database by opening engine
	engine, _, err := getEngine()
	if err != nil {
		os.RemoveAll(configPath)
		return fmt.Errorf("failed to initialize: %w", err)
	}
	engine.Close()

	fmt.Println("✓ Strand initialized successfully")
	fmt.Printf("  Config: %s\n", filepath.Join(configPath, configFile))
	fmt.Printf("  Database: %s\n", cfg.DBPath)
	if !cfg.Enabled {
		fmt.Println("  Memory is disabled. Set \"enabled\": true in the config to opt in.")
	}

	return nil
}
