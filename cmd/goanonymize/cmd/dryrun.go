package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goanonymize/internal/anonymizer"
	"github.com/dbsmedya/goanonymize/internal/database"
	"github.com/dbsmedya/goanonymize/internal/guard"
	"github.com/dbsmedya/goanonymize/pkg/faker"
)

var (
	dryrunModels   []string
	dryrunExcludes []string
)

var dryrunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Count what an anonymize run would touch without writing",
	Long: `Dry-run counts the eligible records of every planned model and reports
how many chunks the run would take, without changing anything.

The dry-run shows:
  - Run order and priority models
  - Records and chunks per model
  - Whether the environment requires confirmation

Example:
  goanonymize dry-run --config goanonymize.yaml`,
	RunE: runDryrun,
}

func init() {
	dryrunCmd.Flags().StringSliceVarP(&dryrunModels, "model", "m", nil,
		"Only estimate these models (repeatable)")
	dryrunCmd.Flags().StringSliceVarP(&dryrunExcludes, "exclude-model", "x", nil,
		"Skip these models (repeatable)")

	rootCmd.AddCommand(dryrunCmd)
}

func runDryrun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	plan, err := anonymizer.PlanRegistry(registry, cfg.Anonymize.PriorityModels, dryrunModels, dryrunExcludes)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}

	dbManager := database.NewManager(cfg)
	ctx := context.Background()

	if err := dbManager.ConnectTarget(ctx); err != nil {
		return err
	}
	defer dbManager.Close()

	f, err := faker.New(cfg.Anonymize.Locale, cfg.Anonymize.FakerSeed)
	if err != nil {
		return err
	}
	engine := anonymizer.NewEngine(dbManager.Target, f, cfg.Anonymize, anonymizer.WithEngineLogger(log))

	estimator := anonymizer.NewEstimator(engine, engine.ChunkSize(), log)
	result, err := estimator.Estimate(ctx, plan)
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}

	env := cfg.ResolveEnvironment(envName)
	printEstimate(cmd.OutOrStdout(), env, guard.New(cfg, env).IsRestricted(), result)
	return nil
}
