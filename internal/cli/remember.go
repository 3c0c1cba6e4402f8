package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strandmem/strand/pkg/types"
)

var rememberCmd = &cobra.Command{
	Use:   "remember [content]",
	Short: "Store a new memory",
	Long: `Store a new memory for an agent role.

Content can be provided as an argument or piped from stdin. Similarity and
supersession edges against existing memories are built automatically.

Examples:
  strand remember -r architect -c system_design "Use JWT for auth"
  strand remember -r builder -c implementation -t procedural "Run migrations before seeding"
  echo "Important fact" | strand remember -r reviewer -c review
  strand remember -r tester -c testing -t anti_pattern --tags "flaky,ci" "Never sleep() in tests"`,
	RunE: runRemember,
}

var (
	rememberRole       string
	rememberCategory   string
	rememberType       string
	rememberTags       string
	rememberConfidence float64
	rememberGlobal     bool
	rememberProject    string
	rememberTask       string
	rememberOutcome    string
)

func init() {
	rememberCmd.Flags().StringVarP(&rememberRole, "role", "r", "", "Agent role owning the memory (required)")
	rememberCmd.Flags().StringVarP(&rememberCategory, "category", "c", "", "Task-domain category (required)")
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", "declarative", "Memory type (declarative, procedural, anti_pattern)")
	rememberCmd.Flags().StringVar(&rememberTags, "tags", "", "Comma-separated tags")
	rememberCmd.Flags().Float64Var(&rememberConfidence, "confidence", 0.7, "Confidence in [0,1]")
	rememberCmd.Flags().BoolVar(&rememberGlobal, "global", false, "Store at global scope (visible to every project)")
	rememberCmd.Flags().StringVar(&rememberProject, "project", "", "Project scope (default: config default project)")
	rememberCmd.Flags().StringVar(&rememberTask, "task", "", "Source task that produced this memory")
	rememberCmd.Flags().StringVar(&rememberOutcome, "outcome", "", "Outcome of acting on this knowledge")
	rememberCmd.MarkFlagRequired("role")
	rememberCmd.MarkFlagRequired("category")
}

func runRemember(cmd *cobra.Command, args []string) error {
	// Get content from args or stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			content = strings.TrimSpace(string(data))
		}
	}

	if content == "" {
		return fmt.Errorf("no content provided. Usage: strand remember -r <role> -c <category> \"content\"")
	}

	role, err := types.ParseRole(rememberRole)
	if err != nil {
		return err
	}

	var tags []string
	if rememberTags != "" {
		for _, tag := range strings.Split(rememberTags, ",") {
			tags = append(tags, strings.TrimSpace(tag))
		}
	}

	engine, cfg, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	project := rememberProject
	if project == "" {
		project = cfg.DefaultProject
	}

	scope := types.ScopeProject
	if rememberGlobal || project == "" {
		scope = types.ScopeGlobal
	}

	mgr := engine.Manager(role, project)
	id, err := mgr.Remember(context.Background(), content, types.RememberOptions{
		Category:   rememberCategory,
		Type:       types.MemoryType(rememberType),
		Tags:       tags,
		Confidence: rememberConfidence,
		Scope:      scope,
		Metadata: types.Metadata{
			SourceTask: rememberTask,
			Outcome:    rememberOutcome,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to remember: %w", err)
	}

	if verbose {
		memory, err := engine.Get(context.Background(), id)
		if err == nil {
			printJSON(memory)
			return nil
		}
	}
	fmt.Printf("✓ Stored memory: %s\n", id)
	fmt.Printf("  Owner: %s  Scope: %s\n", role, scope)

	return nil
}
