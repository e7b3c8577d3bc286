package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goanonymize/internal/anonymizer"
	"github.com/dbsmedya/goanonymize/internal/database"
	"github.com/dbsmedya/goanonymize/internal/lock"
)

var validateForceTriggers bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and runs preflight checks
against the target database to ensure safe execution.

Checks performed:
  - Configuration syntax and required fields
  - Model declarations (identifiers, relation kinds)
  - Database connectivity (target, replica)
  - Table, primary key and relation key existence
  - UPDATE trigger detection
  - ON UPDATE CASCADE warnings
  - Whether another anonymize run currently holds the lock

Example:
  goanonymize validate --config goanonymize.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateForceTriggers, "force-triggers", false,
		"Only warn about UPDATE triggers instead of failing")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting validation checks...")

	fmt.Fprintf(out, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(out, "Config file: %s\n", GetConfigFile())
	fmt.Fprintf(out, "Environment: %s\n", cfg.ResolveEnvironment(envName))
	fmt.Fprintf(out, "Models registered: %d\n\n", registry.Len())

	plan, err := anonymizer.PlanRegistry(registry, cfg.Anonymize.PriorityModels, nil, nil)
	if err != nil {
		fmt.Fprintf(out, "❌ Plan failed: %v\n", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	dbManager := database.NewManager(cfg)
	ctx := context.Background()

	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	fmt.Fprintln(out, "✅ Database connectivity")

	if dbManager.Replica != nil {
		lag := anonymizer.NewLagMonitor(dbManager.Replica, cfg.Safety, log)
		ok, seconds, err := lag.CheckLag(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(out, "⚠️  Replica status: %v\n", err)
		case !ok:
			fmt.Fprintf(out, "⚠️  Replica lag %ds exceeds threshold %ds\n", seconds, lag.Threshold())
		default:
			fmt.Fprintf(out, "✅ Replica lag %ds\n", seconds)
		}
	}

	running, err := lock.IsRunning(ctx, dbManager.Target, cfg.Database.Database)
	if err != nil {
		return fmt.Errorf("failed to check run lock: %w", err)
	}
	if running {
		fmt.Fprintf(out, "⚠️  Another anonymize run holds the lock on %q\n", cfg.Database.Database)
	}

	checker, err := anonymizer.NewPreflightChecker(dbManager.Target, cfg.Database.Database, log)
	if err != nil {
		return fmt.Errorf("failed to create preflight checker: %w", err)
	}
	if err := checker.RunAllChecks(ctx, plan, validateForceTriggers); err != nil {
		fmt.Fprintf(out, "❌ Preflight checks failed: %v\n", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "✅ Preflight checks passed for %d model(s)\n\n", plan.Len())
	fmt.Fprintln(out, "=== Validation Complete ===")
	return nil
}
