package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goanonymize/internal/anonymizer"
	"github.com/dbsmedya/goanonymize/internal/database"
	"github.com/dbsmedya/goanonymize/internal/guard"
	"github.com/dbsmedya/goanonymize/internal/lock"
	"github.com/dbsmedya/goanonymize/internal/progress"
	"github.com/dbsmedya/goanonymize/pkg/faker"
)

var (
	anonymizeModels   []string
	anonymizeExcludes []string
	anonymizeForce    bool
	anonymizeSkipLock bool
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize",
	Short: "Anonymize every registered model",
	Long: `Anonymize rewrites the records of every registered model with the values
the model returns, chunk by chunk.

The run follows these steps:
  1. Acquire the advisory lock for the target database
  2. Ask for confirmation when the environment is restricted
  3. Process priority_models first, then the rest in registration order
  4. For each chunk: update related records, then the record itself, in one transaction

ON UPDATE CURRENT_TIMESTAMP columns keep their values.

Example:
  goanonymize anonymize --config goanonymize.yaml --exclude-model AuditLog`,
	RunE: runAnonymize,
}

func init() {
	anonymizeCmd.Flags().StringSliceVarP(&anonymizeModels, "model", "m", nil,
		"Only anonymize these models (repeatable)")
	anonymizeCmd.Flags().StringSliceVarP(&anonymizeExcludes, "exclude-model", "x", nil,
		"Skip these models (repeatable)")
	anonymizeCmd.Flags().BoolVar(&anonymizeForce, "force", false,
		"Proceed in restricted environments without confirmation")
	anonymizeCmd.Flags().BoolVar(&anonymizeSkipLock, "skip-lock", false,
		"Do not take the advisory run lock (use with caution)")

	rootCmd.AddCommand(anonymizeCmd)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	env := cfg.ResolveEnvironment(envName)
	log.Infow("Starting anonymize operation",
		"environment", env,
		"connection", cfg.Database.Connection,
		"config", GetConfigFile(),
	)

	ctx := database.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Warnw("Received shutdown signal - completing current chunk...", "signal", sig.String())
	})

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if anonymizeSkipLock || cfg.Safety.SkipLock {
		log.Warnw("Skipping advisory lock acquisition", "database", cfg.Database.Database)
	} else {
		runLock := lock.NewDatabaseLock(dbManager.Target, cfg.Database.Database)
		if err := runLock.AcquireOrFail(ctx); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("another anonymize run holds the lock on %q (use --skip-lock to override)", cfg.Database.Database)
			}
			return fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer func() { _, _ = runLock.ReleaseLock(context.Background()) }()
		log.Infow("Acquired advisory lock", "lock", runLock.LockName())
	}

	f, err := faker.New(cfg.Anonymize.Locale, cfg.Anonymize.FakerSeed)
	if err != nil {
		return err
	}

	checker, err := anonymizer.NewPreflightChecker(dbManager.Target, cfg.Database.Database, log)
	if err != nil {
		return err
	}
	pinned, err := checker.AutoUpdateColumns(ctx, anonymizer.PlanTables(registry.Discover()))
	if err != nil {
		return err
	}

	lag := anonymizer.NewLagMonitor(dbManager.Replica, cfg.Safety, log)
	engine := anonymizer.NewEngine(dbManager.Target, f, cfg.Anonymize,
		anonymizer.WithLagMonitor(lag),
		anonymizer.WithEngineLogger(log),
		anonymizer.WithPinnedColumns(pinned),
	)

	g := guard.New(cfg, env,
		guard.WithForce(anonymizeForce),
		guard.WithLogger(log),
	)

	bars := progress.New(cmd.ErrOrStderr(), noProgress)
	orch, err := anonymizer.NewOrchestrator(registry, engine, g, cfg.Anonymize.PriorityModels,
		anonymizer.WithLogger(log),
		anonymizer.WithProgress(bars),
		anonymizer.WithEnvironment(env),
	)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	report, runErr := orch.Run(ctx, anonymizer.RunOptions{
		Include: anonymizeModels,
		Exclude: anonymizeExcludes,
	})
	bars.Wait()

	printReport(cmd.OutOrStdout(), report)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("Anonymize operation cancelled by user; committed chunks are kept")
			return nil
		}
		return fmt.Errorf("anonymize operation failed: %w", runErr)
	}
	return nil
}
