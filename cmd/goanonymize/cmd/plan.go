package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goanonymize/internal/anonymizer"
	"github.com/dbsmedya/goanonymize/internal/config"
	"github.com/dbsmedya/goanonymize/internal/guard"
	"github.com/dbsmedya/goanonymize/pkg/anonymize"
)

var (
	planModels   []string
	planExcludes []string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the order models would be anonymized in",
	Long: `Plan resolves priority_models and the --model/--exclude-model filters
against the registered models and prints the run order. It does not connect
to the database.

The plan shows:
  - Run order (priority models first, then registration order)
  - Table, primary key and scope of each model
  - Relations updated before each record

Example:
  goanonymize plan --config goanonymize.yaml --exclude-model AuditLog`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringSliceVarP(&planModels, "model", "m", nil,
		"Only plan these models (repeatable)")
	planCmd.Flags().StringSliceVarP(&planExcludes, "exclude-model", "x", nil,
		"Skip these models (repeatable)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(GetCLIOverrides())

	plan, err := anonymizer.PlanRegistry(registry, cfg.Anonymize.PriorityModels, planModels, planExcludes)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}

	env := cfg.ResolveEnvironment(envName)
	g := guard.New(cfg, env)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Environment: %s (restricted: %v)\n", env, g.IsRestricted())
	fmt.Fprintf(out, "Chunk size:  %d\n\n", cfg.Anonymize.ChunkSize)

	if plan.Len() == 0 {
		fmt.Fprintln(out, "No models planned.")
		return nil
	}

	priority := make(map[string]bool, len(plan.Priority))
	for _, t := range plan.Priority {
		priority[t.Name] = true
	}

	rows := make([][]string, 0, plan.Len())
	for i, t := range plan.Types() {
		name := t.Name
		if priority[name] {
			name += "*"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			name,
			t.Table,
			t.PrimaryKey,
			describeScope(t),
			describeRelations(t),
		})
	}
	renderTable(out, []string{"#", "MODEL", "TABLE", "KEY", "SCOPE", "RELATIONS"}, rows)

	if len(plan.Priority) > 0 {
		fmt.Fprintln(out, "\n* priority model")
	}
	return nil
}

func describeScope(t *anonymize.Type) string {
	var parts []string
	if t.Condition != nil && t.Condition.Where != "" {
		parts = append(parts, t.Condition.Where)
	}
	if t.SoftDeleteColumn != "" && !t.IncludeSoftDeleted {
		parts = append(parts, t.SoftDeleteColumn+" IS NULL")
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " AND ")
}

func describeRelations(t *anonymize.Type) string {
	if len(t.Relations) == 0 {
		return "-"
	}
	names := make([]string, 0, len(t.Relations))
	for name := range t.Relations {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s(%s %s)", name, t.Relations[name].Kind, t.Relations[name].Table)
	}
	return strings.Join(parts, ", ")
}
